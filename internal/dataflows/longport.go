package dataflows

import (
	"context"
	"errors"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportClient is an optional quote source backed by the Longport
// OpenAPI quote context.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg LongportConfig) (*LongportClient, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}
	return &LongportClient{quoteCtx: quoteContext}, nil
}

func (c *LongportClient) Name() string { return "longport" }

// Symbol maps a bare US ticker to Longport's market-suffixed form.
func (c *LongportClient) Symbol(ticker string) string {
	sym := symbolPath(ticker)
	if strings.Contains(sym, ".") {
		return sym
	}
	return sym + ".US"
}

// LatestPrice returns the close of the most recent daily candlestick.
func (c *LongportClient) LatestPrice(ctx context.Context, ticker string) (*models.Quote, error) {
	const op = "longport.candlesticks"
	sym := c.Symbol(ticker)
	sticks, err := c.quoteCtx.Candlesticks(ctx, sym, quote.PeriodDay, 1, quote.AdjustTypeNo)
	if err != nil {
		return nil, result.Wrap(result.KindUpstream, op, err)
	}
	if len(sticks) == 0 || sticks[len(sticks)-1] == nil || sticks[len(sticks)-1].Close == nil {
		return nil, result.Errorf(result.KindNotFound, op, "no candlestick for %s", sym)
	}
	last := sticks[len(sticks)-1]
	price, _ := last.Close.Float64()
	return &models.Quote{
		Symbol: symbolPath(ticker),
		Price:  price,
		Time:   time.Unix(last.Timestamp, 0).UTC(),
		Source: c.Name(),
	}, nil
}

func (c *LongportClient) Close() {
	if c.quoteCtx != nil {
		c.quoteCtx.Close()
	}
}
