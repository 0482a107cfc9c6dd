package dataflows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dyike/CortexFolio/internal/cache"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

// QuoteSource returns the latest price for a ticker.
type QuoteSource interface {
	Name() string
	LatestPrice(ctx context.Context, ticker string) (*models.Quote, error)
}

// HistorySource returns daily bars for a ticker.
type HistorySource interface {
	Name() string
	History(ctx context.Context, ticker string) (*models.PriceSeries, error)
}

// PriceChain asks each source in order and returns the first positive price.
type PriceChain struct {
	sources []QuoteSource
	onError func(source string, err error)
	cache   *cache.TTL[*models.Quote]
}

func NewPriceChain(sources ...QuoteSource) *PriceChain {
	chain := &PriceChain{}
	for _, s := range sources {
		if s != nil {
			chain.sources = append(chain.sources, s)
		}
	}
	return chain
}

// OnError registers a hook called for every failing source.
func (c *PriceChain) OnError(fn func(source string, err error)) *PriceChain {
	c.onError = fn
	return c
}

// WithCache keeps successful quotes for ttl. A zero ttl disables caching.
func (c *PriceChain) WithCache(ttl time.Duration) *PriceChain {
	if ttl > 0 {
		c.cache = cache.New[*models.Quote](ttl)
	}
	return c
}

func (c *PriceChain) Name() string { return "chain" }

func (c *PriceChain) LatestPrice(ctx context.Context, ticker string) (*models.Quote, error) {
	if c.cache == nil {
		return c.latest(ctx, ticker)
	}
	return c.cache.GetOrLoad(ctx, strings.ToUpper(ticker), func(ctx context.Context) (*models.Quote, error) {
		return c.latest(ctx, ticker)
	})
}

func (c *PriceChain) latest(ctx context.Context, ticker string) (*models.Quote, error) {
	const op = "prices.latest"
	if len(c.sources) == 0 {
		return nil, result.Errorf(result.KindPrecondition, op, "no price source configured")
	}
	var errs []error
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := src.LatestPrice(ctx, ticker)
		if err == nil && q != nil && q.Price > 0 {
			return q, nil
		}
		if err == nil {
			err = result.Errorf(result.KindNotFound, src.Name(), "no price for %s", ticker)
		}
		if c.onError != nil {
			c.onError(src.Name(), err)
		}
		errs = append(errs, err)
	}
	return nil, result.Wrap(result.KindUpstream, op, errors.Join(errs...))
}
