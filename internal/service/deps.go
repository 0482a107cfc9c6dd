package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/metrics"
	"github.com/dyike/CortexFolio/internal/storage"
	"github.com/dyike/CortexFolio/internal/tools"
)

// BuildDeps wires the provider adapters, the chat model and the store into
// workflow dependencies. Collaborators whose configuration is missing are
// left nil; the workflows that need them report it when built.
func BuildDeps(ctx context.Context, cfg config.Config, store storage.Store, logger *zap.Logger, m *metrics.Collector) (graph.Deps, *dataflows.Providers) {
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := dataflows.NewProviders(cfg, logger)

	onError := func(provider string, err error) {
		m.UpstreamError(provider)
		logger.Debug("provider call failed", zap.String("provider", provider), zap.Error(err))
	}
	rd := providers.ResearchDeps(onError)

	deps := graph.Deps{
		Config:   cfg,
		Research: dataflows.NewResearcher(rd, logger),
		Prices:   providers.Prices,
		Store:    store,
		Logger:   logger,
	}

	if err := cfg.RequireChatModel(); err != nil {
		logger.Warn("chat model disabled", zap.Error(err))
	} else if chat, err := llm.NewChatModel(ctx, cfg); err != nil {
		logger.Warn("chat model disabled", zap.Error(err))
	} else {
		deps.Chat = chat
		if cfg.StructuredOutput {
			deps.Structured = llm.NewStructuredClient(cfg)
		}
	}

	if cfg.RequireArticles() == nil {
		deps.Articles = providers.Articles
	}

	td := tools.Deps{
		Prices:    providers.Prices,
		Sentiment: providers.Reddit,
		News:      rd.News,
	}
	if rd.Polygon != nil {
		td.History = rd.Polygon
	} else if rd.Yahoo != nil {
		td.History = rd.Yahoo
	}
	if cfg.RequireFirecrawl() == nil {
		deps.Web = providers.Firecrawl
		td.Search = providers.Firecrawl
	}
	deps.Tools = tools.New(td)

	return deps, providers
}
