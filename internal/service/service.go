// Package service runs the workflows on behalf of the HTTP server, the CLI
// and the scheduler.
package service

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/metrics"
	"github.com/dyike/CortexFolio/internal/storage"
)

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// Service owns one compiled instance of every workflow. A workflow whose
// dependencies are missing keeps its build error, which every call to it
// returns.
type Service struct {
	cfg       config.Config
	store     storage.Store
	providers *dataflows.Providers
	logger    *zap.Logger
	metrics   *metrics.Collector

	chatbot   *graph.Chatbot
	articles  *graph.ArticlesChat
	agent     *graph.ToolsAgent
	trading   *graph.TradingAgent
	rebalance *graph.Rebalance
	research  *graph.FinancialResearch

	buildErrs map[string]error
}

// New builds the service from configuration. The store is owned by the
// service and closed with it.
func New(ctx context.Context, cfg config.Config, store storage.Store, opts ...Option) (*Service, error) {
	s := &Service{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	deps, providers := BuildDeps(ctx, cfg, store, s.logger, s.metrics)
	svc, err := NewWithDeps(ctx, deps, opts...)
	if err != nil {
		providers.Close()
		return nil, err
	}
	svc.providers = providers
	return svc, nil
}

// NewWithDeps builds the service over prepared dependencies.
func NewWithDeps(ctx context.Context, deps graph.Deps, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:       deps.Config,
		store:     deps.Store,
		logger:    zap.NewNop(),
		buildErrs: map[string]error{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if deps.Logger == nil {
		deps.Logger = s.logger
	}

	var err error
	if s.chatbot, err = graph.NewChatbot(ctx, deps); err != nil {
		s.buildErrs[consts.Chatbot] = err
	}
	if s.articles, err = graph.NewArticlesChat(ctx, deps); err != nil {
		s.buildErrs[consts.ChatbotTools] = err
	}
	if s.agent, err = graph.NewToolsAgent(ctx, deps); err != nil {
		s.buildErrs[consts.NodeToolsAgent] = err
	}
	if s.trading, err = graph.NewTradingAgent(ctx, deps); err != nil {
		s.buildErrs[consts.TradingAgent] = err
	}
	if s.rebalance, err = graph.NewRebalance(ctx, deps); err != nil {
		s.buildErrs[consts.Rebalance] = err
	}
	if s.research, err = graph.NewFinancialResearch(ctx, deps); err != nil {
		s.buildErrs[consts.FinancialResearch] = err
	}
	for name, err := range s.buildErrs {
		s.logger.Warn("workflow unavailable", zap.String("workflow", name), zap.Error(err))
	}
	return s, nil
}

func (s *Service) Config() config.Config { return s.cfg }

// Unavailable reports the workflows that could not be built and why.
func (s *Service) Unavailable() map[string]error {
	out := make(map[string]error, len(s.buildErrs))
	for k, v := range s.buildErrs {
		out[k] = v
	}
	return out
}

func (s *Service) Close() error {
	if s.providers != nil {
		s.providers.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// observe starts a run: it returns a run id, the node logging callback and
// a func that records the outcome.
func (s *Service) observe(workflow string) (string, callbacks.Handler, func(error)) {
	runID := uuid.NewString()
	started := time.Now()
	log := s.logger.With(zap.String("workflow", workflow), zap.String("run", runID))
	log.Info("workflow started")
	return runID, graph.NewLoggerCallback(s.logger.With(zap.String("workflow", workflow)), runID), func(err error) {
		s.metrics.ObserveWorkflow(workflow, started, err)
		if err != nil {
			log.Error("workflow failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
			return
		}
		log.Info("workflow finished", zap.Duration("elapsed", time.Since(started)))
	}
}
