package dataflows

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/internal/models"
)

const defaultArticlesPerTicker = 10

type SentimentSource interface {
	Search(ctx context.Context, query string) ([]models.RedditPost, error)
}

type NewsSource interface {
	Articles(ctx context.Context, filter ArticleFilter) ([]models.Article, error)
}

// ResearchDeps lists the adapters a Researcher may use. Nil entries are skipped.
type ResearchDeps struct {
	Prices    QuoteSource
	Polygon   HistorySource
	Yahoo     HistorySource
	Sentiment SentimentSource
	News      NewsSource
	// OnError is called with the provider name for every failed call.
	OnError func(provider string, err error)
}

// Researcher gathers a ResearchRecord per ticker. Provider failures are
// recorded on the record and never abort the run.
type Researcher struct {
	deps   ResearchDeps
	logger *zap.Logger
	now    func() time.Time
}

func NewResearcher(deps ResearchDeps, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{deps: deps, logger: logger, now: time.Now}
}

// Research fetches tickers sequentially. It only returns an error when ctx
// is cancelled; records gathered so far are returned alongside it.
func (r *Researcher) Research(ctx context.Context, tickers []string) ([]models.ResearchRecord, error) {
	records := make([]models.ResearchRecord, 0, len(tickers))
	for _, ticker := range tickers {
		rec, err := r.ResearchTicker(ctx, ticker)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *Researcher) ResearchTicker(ctx context.Context, ticker string) (models.ResearchRecord, error) {
	sym := symbolPath(ticker)
	rec := models.ResearchRecord{Ticker: sym, FetchedAt: r.now().UTC()}
	log := r.logger.With(zap.String("ticker", sym))

	steps := []struct {
		name string
		run  func() error
	}{
		{"reddit", func() error {
			if r.deps.Sentiment == nil {
				return nil
			}
			posts, err := r.deps.Sentiment.Search(ctx, sym)
			rec.RedditSentiment = posts
			return err
		}},
		{"yahoo", func() error {
			if r.deps.Yahoo == nil {
				return nil
			}
			series, err := r.deps.Yahoo.History(ctx, sym)
			rec.YahooData = series
			return err
		}},
		{"polygon", func() error {
			if r.deps.Polygon == nil {
				return nil
			}
			series, err := r.deps.Polygon.History(ctx, sym)
			rec.PolygonData = series
			return err
		}},
		{"price", func() error {
			if r.deps.Prices == nil {
				return nil
			}
			q, err := r.deps.Prices.LatestPrice(ctx, sym)
			rec.LatestPrice = q
			return err
		}},
		{"articles", func() error {
			if r.deps.News == nil {
				return nil
			}
			articles, err := r.deps.News.Articles(ctx, ArticleFilter{Symbol: sym, Limit: defaultArticlesPerTicker})
			rec.Articles = articles
			return err
		}},
	}

	for _, step := range steps {
		if err := Pace(ctx); err != nil {
			return rec, err
		}
		if err := step.run(); err != nil {
			if ctx.Err() != nil {
				return rec, ctx.Err()
			}
			log.Warn("research step failed", zap.String("provider", step.name), zap.Error(err))
			rec.Errors = append(rec.Errors, fmt.Sprintf("%s: %v", step.name, err))
			if r.deps.OnError != nil {
				r.deps.OnError(step.name, err)
			}
		}
	}
	rec.Indicators = ComputeIndicators(longer(rec.PolygonData, rec.YahooData))
	if rec.RedditSentiment == nil {
		rec.RedditSentiment = []models.RedditPost{}
	}
	if rec.Articles == nil {
		rec.Articles = []models.Article{}
	}
	return rec, nil
}

func longer(a, b *models.PriceSeries) *models.PriceSeries {
	if a == nil || (b != nil && len(b.Bars) > len(a.Bars)) {
		return b
	}
	return a
}
