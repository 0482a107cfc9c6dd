package dataflows

import (
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
)

// Providers holds every adapter built from one config snapshot.
type Providers struct {
	Polygon   *PolygonClient
	Yahoo     *YahooClient
	Longport  *LongportClient
	Reddit    *RedditClient
	Articles  *ArticlesClient
	Firecrawl *FirecrawlClient
	Prices    *PriceChain
}

// NewProviders builds the adapters. Longport is optional and skipped with
// a warning when its credentials are missing or invalid.
func NewProviders(cfg config.Config, logger *zap.Logger) *Providers {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Providers{
		Polygon: NewPolygonClient(cfg.PolygonBaseURL, cfg.PolygonAPIKey, cfg.HTTPTimeout),
		Reddit: NewRedditClient(RedditConfig{
			ClientID:  cfg.RedditClientID,
			Secret:    cfg.RedditSecret,
			UserAgent: cfg.RedditUserAgent,
			BaseURL:   cfg.RedditBaseURL,
			OAuthURL:  cfg.RedditOAuthURL,
			Timeout:   cfg.HTTPTimeout,
		}),
		Articles:  NewArticlesClient(cfg.ArticlesURL, cfg.HTTPTimeout),
		Firecrawl: NewFirecrawlClient(cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKey, cfg.HTTPTimeout, NewPageScraper(cfg.HTTPTimeout)),
	}
	if cfg.YahooEnabled {
		p.Yahoo = NewYahooClient()
	}

	if cfg.LongportConfigured() {
		lp, err := NewLongportClient(LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		})
		if err != nil {
			logger.Warn("longport disabled", zap.Error(err))
		} else {
			p.Longport = lp
		}
	}

	sources := []QuoteSource{}
	if cfg.PolygonAPIKey != "" {
		sources = append(sources, p.Polygon)
	}
	if p.Longport != nil {
		sources = append(sources, p.Longport)
	}
	if p.Yahoo != nil {
		sources = append(sources, p.Yahoo)
	}
	p.Prices = NewPriceChain(sources...).WithCache(cfg.QuoteCacheTTL)
	return p
}

// ResearchDeps wires the providers into a Researcher. Sources without
// credentials are left out so they do not add an error per ticker.
func (p *Providers) ResearchDeps(onError func(provider string, err error)) ResearchDeps {
	deps := ResearchDeps{
		Prices:    p.Prices,
		Sentiment: p.Reddit,
		OnError:   onError,
	}
	if p.Polygon.apiKey != "" {
		deps.Polygon = p.Polygon
	}
	if p.Yahoo != nil {
		deps.Yahoo = p.Yahoo
	}
	if p.Articles.endpoint != "" {
		deps.News = p.Articles
	}
	return deps
}

func (p *Providers) Close() {
	if p.Longport != nil {
		p.Longport.Close()
	}
}
