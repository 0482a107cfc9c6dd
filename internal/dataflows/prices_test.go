package dataflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

type stubQuotes struct {
	name  string
	price float64
	err   error
	calls int
}

func (s *stubQuotes) Name() string { return s.name }

func (s *stubQuotes) LatestPrice(_ context.Context, ticker string) (*models.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Quote{Symbol: ticker, Price: s.price, Source: s.name}, nil
}

func TestPriceChainFirstPositiveWins(t *testing.T) {
	failing := &stubQuotes{name: "polygon", err: errors.New("down")}
	zero := &stubQuotes{name: "longport", price: 0}
	good := &stubQuotes{name: "yahoo", price: 187.2}
	never := &stubQuotes{name: "spare", price: 1}

	var failed []string
	chain := NewPriceChain(failing, nil, zero, good, never).OnError(func(src string, _ error) {
		failed = append(failed, src)
	})

	q, err := chain.LatestPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if q.Source != "yahoo" || q.Price != 187.2 {
		t.Fatalf("quote = %+v", q)
	}
	if never.calls != 0 {
		t.Fatalf("chain kept going after a hit")
	}
	if len(failed) != 2 || failed[0] != "polygon" || failed[1] != "longport" {
		t.Fatalf("failed sources = %v", failed)
	}
}

func TestPriceChainAllFail(t *testing.T) {
	chain := NewPriceChain(&stubQuotes{name: "a", err: errors.New("x")})
	if _, err := chain.LatestPrice(context.Background(), "AAPL"); !result.IsKind(err, result.KindUpstream) {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewPriceChain().LatestPrice(context.Background(), "AAPL"); !result.IsKind(err, result.KindPrecondition) {
		t.Fatalf("empty chain err = %v", err)
	}
}

func TestPriceChainCachesQuotes(t *testing.T) {
	src := &stubQuotes{name: "yahoo", price: 99}
	chain := NewPriceChain(src).WithCache(time.Minute)

	for _, ticker := range []string{"AAPL", "aapl", "AAPL"} {
		q, err := chain.LatestPrice(context.Background(), ticker)
		if err != nil || q.Price != 99 {
			t.Fatalf("LatestPrice(%s) = %+v, %v", ticker, q, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("upstream called %d times, want 1", src.calls)
	}

	uncached := &stubQuotes{name: "yahoo", price: 99}
	chain = NewPriceChain(uncached).WithCache(0)
	chain.LatestPrice(context.Background(), "AAPL")
	chain.LatestPrice(context.Background(), "AAPL")
	if uncached.calls != 2 {
		t.Fatalf("zero ttl still cached: %d calls", uncached.calls)
	}
}
