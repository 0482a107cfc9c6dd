package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/metrics"
	"github.com/dyike/CortexFolio/internal/service"
	"github.com/dyike/CortexFolio/internal/storage"
	"github.com/dyike/CortexFolio/internal/storage/mongo"
	"github.com/dyike/CortexFolio/internal/storage/sqlite"
)

// Engine is one generation of the running service, built from a single
// config snapshot.
type Engine struct {
	Config  config.Config
	Service *service.Service
	BuiltAt time.Time
	Version uint64
}

func (e *Engine) Close() error {
	if e == nil || e.Service == nil {
		return nil
	}
	return e.Service.Close()
}

var engineSeq atomic.Uint64

// OpenStore opens the store selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}
	switch cfg.StoreDriver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "mongo":
		s, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// NewBuilder returns the production EngineBuilder: it opens the store and
// wires every provider the config enables.
func NewBuilder(logger *zap.Logger, m *metrics.Collector) EngineBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, cfg config.Config) (*Engine, error) {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		store, err := OpenStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
		}
		svc, err := service.New(ctx, cfg, store, service.WithLogger(logger), service.WithMetrics(m))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return newEngine(cfg, svc), nil
	}
}

func newEngine(cfg config.Config, svc *service.Service) *Engine {
	return &Engine{
		Config:  cfg,
		Service: svc,
		BuiltAt: time.Now(),
		Version: engineSeq.Add(1),
	}
}
