package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/models"
)

var testNow = time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	return config.Config{
		CashReservePct:       10,
		DefaultStopLossPct:   8,
		DefaultTakeProfitPct: 20,
		MaxSinglePositionPct: 25,
		CronMinSnapshotAge:   12 * time.Hour,
	}
}

func price(v float64) *models.Quote {
	return &models.Quote{Price: v, Source: "stub", Time: testNow}
}

// stubResearch returns canned records and remembers what it was asked for.
type stubResearch struct {
	mu      sync.Mutex
	records map[string]models.ResearchRecord
	asked   [][]string
}

func (r *stubResearch) Research(ctx context.Context, tickers []string) ([]models.ResearchRecord, error) {
	r.mu.Lock()
	r.asked = append(r.asked, append([]string(nil), tickers...))
	r.mu.Unlock()
	out := make([]models.ResearchRecord, 0, len(tickers))
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rec, ok := r.records[t]
		if !ok {
			rec = models.ResearchRecord{Ticker: t, Errors: []string{"polygon: no data"}}
		}
		rec.Ticker = t
		out = append(out, rec)
	}
	return out, nil
}

func (r *stubResearch) lastAsked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.asked) == 0 {
		return nil
	}
	return r.asked[len(r.asked)-1]
}

// stubWeb answers searches by query shape and scrapes every URL.
type stubWeb struct {
	mu       sync.Mutex
	searches []string
	scraped  []string
	pages    map[string][]models.WebPage
}

func (w *stubWeb) Search(_ context.Context, q dataflows.SearchQuery) ([]models.WebPage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.searches = append(w.searches, q.Query)
	for key, pages := range w.pages {
		if strings.Contains(q.Query, key) {
			return pages, nil
		}
	}
	if strings.Contains(q.Query, "official website") {
		name := strings.TrimSuffix(q.Query, " official website financial data")
		slug := strings.ToLower(strings.ReplaceAll(name, " ", ""))
		return []models.WebPage{{URL: "https://" + slug + ".example", Title: name, Markdown: name + " home"}}, nil
	}
	return nil, errors.New("search unavailable")
}

func (w *stubWeb) Scrape(_ context.Context, url string) (*models.WebPage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scraped = append(w.scraped, url)
	return &models.WebPage{URL: url, Markdown: "pricing and data coverage for " + url}, nil
}

type stubNews struct {
	articles []models.Article
	err      error
	got      dataflows.ArticleFilter
}

func (n *stubNews) Articles(_ context.Context, f dataflows.ArticleFilter) ([]models.Article, error) {
	n.got = f
	return n.articles, n.err
}

type stubQuotes struct{}

func (stubQuotes) Name() string { return "stub" }

func (stubQuotes) LatestPrice(_ context.Context, ticker string) (*models.Quote, error) {
	return &models.Quote{Symbol: ticker, Price: 42, Source: "stub", Time: testNow}, nil
}
