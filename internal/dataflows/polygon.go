package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

const polygonHistoryDays = 200

// PolygonClient reads daily aggregates from the Polygon.io REST API.
type PolygonClient struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
}

func NewPolygonClient(baseURL, apiKey string, timeout time.Duration) *PolygonClient {
	if baseURL == "" {
		baseURL = "https://api.polygon.io"
	}
	return &PolygonClient{
		client: newRestyClient(baseURL, timeout, ""),
		apiKey: apiKey,
		now:    time.Now,
	}
}

func (c *PolygonClient) Name() string { return "polygon" }

type polygonAgg struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"`
}

type polygonAggsResponse struct {
	Status  string       `json:"status"`
	Results []polygonAgg `json:"results"`
	Error   string       `json:"error"`
}

func (c *PolygonClient) aggs(ctx context.Context, op, path string, params map[string]string) (*polygonAggsResponse, error) {
	if err := requireKey(op, "POLYGON_API_KEY", c.apiKey); err != nil {
		return nil, err
	}
	params["apiKey"] = c.apiKey
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err := checkResponse(op, resp, err); err != nil {
		return nil, err
	}

	var out polygonAggsResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, result.Wrap(result.KindParse, op, err)
	}
	return &out, nil
}

// History returns up to 200 daily bars ending today, oldest first.
func (c *PolygonClient) History(ctx context.Context, ticker string) (*models.PriceSeries, error) {
	const op = "polygon.history"
	sym := symbolPath(ticker)
	end := c.now()
	start := end.AddDate(0, 0, -polygonHistoryDays)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", sym, start.Format("2006-01-02"), end.Format("2006-01-02"))

	data, err := c.aggs(ctx, op, path, map[string]string{
		"sort":  "asc",
		"limit": "200",
	})
	if err != nil {
		return nil, err
	}

	series := &models.PriceSeries{Symbol: sym, Source: c.Name(), Bars: make([]models.PriceBar, 0, len(data.Results))}
	for _, a := range data.Results {
		series.Bars = append(series.Bars, models.PriceBar{
			Date:   time.UnixMilli(a.Time).UTC(),
			Open:   a.Open,
			High:   a.High,
			Low:    a.Low,
			Close:  a.Close,
			Volume: a.Volume,
		})
	}
	return series, nil
}

// LatestPrice returns the previous session's close.
func (c *PolygonClient) LatestPrice(ctx context.Context, ticker string) (*models.Quote, error) {
	const op = "polygon.prev"
	sym := symbolPath(ticker)
	data, err := c.aggs(ctx, op, fmt.Sprintf("/v2/aggs/ticker/%s/prev", sym), map[string]string{
		"adjusted": "true",
	})
	if err != nil {
		return nil, err
	}
	if len(data.Results) == 0 {
		return nil, result.Errorf(result.KindNotFound, op, "no price data found for %s", sym)
	}
	latest := data.Results[0]
	return &models.Quote{
		Symbol: sym,
		Price:  latest.Close,
		Time:   time.UnixMilli(latest.Time).UTC(),
		Source: c.Name(),
	}, nil
}
