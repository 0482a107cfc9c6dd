package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
)

type EngineBuilder func(context.Context, config.Config) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDrain sets how long a replaced engine stays open for requests that
// are still using it. Zero closes it immediately.
func WithDrain(d time.Duration) Option {
	return func(r *Runtime) { r.drain = d }
}

// Runtime keeps the current Engine and rebuilds it whenever the config
// file changes. A failed rebuild leaves the previous engine in place.
type Runtime struct {
	cfgMgr *config.Manager
	engine atomic.Pointer[Engine]

	builder EngineBuilder
	notify  func(string, string)
	logger  *zap.Logger
	drain   time.Duration
	cancel  context.CancelFunc
}

func NewRuntime(ctx context.Context, cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr: cfgMgr,
		logger: zap.NewNop(),
		drain:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.builder == nil {
		rt.builder = NewBuilder(rt.logger, nil)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel
	if err := rt.reload(watchCtx, cfgMgr.Get()); err != nil {
		cancel()
		return nil, err
	}

	if err := cfgMgr.Watch(watchCtx, func(cfg config.Config) {
		if err := rt.reload(watchCtx, cfg); err != nil {
			rt.logger.Error("engine reload failed", zap.Error(err))
		}
	}); err != nil {
		cancel()
		_ = rt.Engine().Close()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

// Close stops watching and closes the current engine.
func (r *Runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if e := r.engine.Swap(nil); e != nil {
		return e.Close()
	}
	return nil
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

func (r *Runtime) reload(ctx context.Context, cfg config.Config) error {
	engine, err := r.builder(ctx, cfg)
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	old := r.engine.Swap(engine)
	r.retire(old)
	r.logger.Info("engine ready", zap.Uint64("version", engine.Version),
		zap.Any("unavailable", unavailableNames(engine)))
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) retire(old *Engine) {
	if old == nil {
		return
	}
	closeOld := func() {
		if err := old.Close(); err != nil {
			r.logger.Warn("close replaced engine", zap.Uint64("version", old.Version), zap.Error(err))
		}
	}
	if r.drain <= 0 {
		closeOld()
		return
	}
	time.AfterFunc(r.drain, closeOld)
}

func unavailableNames(e *Engine) []string {
	if e == nil || e.Service == nil {
		return nil
	}
	var out []string
	for name := range e.Service.Unavailable() {
		out = append(out, name)
	}
	return out
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify("engine.reloaded", string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify("engine.reload_failed", string(payload))
}
