package dataflows

import (
	"context"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

const yahooHistoryYears = 5

// YahooClient reads quotes and daily history through finance-go. The
// library has no context support, so cancellation is checked up front.
type YahooClient struct {
	now func() time.Time
}

func NewYahooClient() *YahooClient {
	return &YahooClient{now: time.Now}
}

func (c *YahooClient) Name() string { return "yahoo" }

func (c *YahooClient) LatestPrice(ctx context.Context, ticker string) (*models.Quote, error) {
	const op = "yahoo.quote"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym := symbolPath(ticker)
	q, err := quote.Get(sym)
	if err != nil {
		return nil, result.Wrap(result.KindUpstream, op, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return nil, result.Errorf(result.KindNotFound, op, "no quote for %s", sym)
	}
	ts := c.now().UTC()
	if q.RegularMarketTime > 0 {
		ts = time.Unix(int64(q.RegularMarketTime), 0).UTC()
	}
	return &models.Quote{Symbol: sym, Price: q.RegularMarketPrice, Time: ts, Source: c.Name()}, nil
}

// History returns five years of daily bars.
func (c *YahooClient) History(ctx context.Context, ticker string) (*models.PriceSeries, error) {
	const op = "yahoo.chart"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym := symbolPath(ticker)
	end := c.now()
	start := end.AddDate(-yahooHistoryYears, 0, 0)

	iter := chart.Get(&chart.Params{
		Symbol:   sym,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	series := &models.PriceSeries{Symbol: sym, Source: c.Name()}
	for iter.Next() {
		bar := iter.Bar()
		series.Bars = append(series.Bars, models.PriceBar{
			Date:   time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, result.Wrap(result.KindUpstream, op, err)
	}
	if len(series.Bars) == 0 {
		return nil, result.Errorf(result.KindNotFound, op, "no history for %s", sym)
	}
	return series, nil
}
