package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/models"
)

const defaultHistoryDays = 30

type TickerInput struct {
	Ticker string `json:"ticker"`
}

type PriceOutput struct {
	Ticker string        `json:"ticker"`
	Quote  *models.Quote `json:"quote,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type HistoryInput struct {
	Ticker string `json:"ticker"`
	Days   int    `json:"days"`
}

type HistoryOutput struct {
	Ticker string            `json:"ticker"`
	Source string            `json:"source,omitempty"`
	Bars   []models.PriceBar `json:"bars,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func NewPriceTool(src dataflows.QuoteSource) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_price",
			Desc: "Get the latest price for a stock or crypto ticker",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol, e.g. AAPL or BTC-USD",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input TickerInput) (*PriceOutput, error) {
			ticker := strings.ToUpper(strings.TrimSpace(input.Ticker))
			if ticker == "" {
				return nil, fmt.Errorf("ticker parameter is required")
			}
			if err := dataflows.Pace(ctx); err != nil {
				return nil, err
			}
			q, err := src.LatestPrice(ctx, ticker)
			return &PriceOutput{Ticker: ticker, Quote: q, Error: failure(err)}, nil
		},
	)
}

func NewHistoryTool(src dataflows.HistorySource) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_history",
			Desc: "Get daily OHLCV price history for a ticker, most recent days last",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol",
					Required: true,
				},
				"days": {
					Type:     "integer",
					Desc:     "Number of trading days to return (default: 30)",
					Required: false,
				},
			}),
		},
		func(ctx context.Context, input HistoryInput) (*HistoryOutput, error) {
			ticker := strings.ToUpper(strings.TrimSpace(input.Ticker))
			if ticker == "" {
				return nil, fmt.Errorf("ticker parameter is required")
			}
			days := input.Days
			if days <= 0 {
				days = defaultHistoryDays
			}
			if err := dataflows.Pace(ctx); err != nil {
				return nil, err
			}
			series, err := src.History(ctx, ticker)
			if err != nil {
				return &HistoryOutput{Ticker: ticker, Error: failure(err)}, nil
			}
			bars := series.Bars
			if len(bars) > days {
				bars = bars[len(bars)-days:]
			}
			return &HistoryOutput{Ticker: ticker, Source: series.Source, Bars: bars}, nil
		},
	)
}
