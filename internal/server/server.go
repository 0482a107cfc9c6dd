// Package server exposes the workflows over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/internal/metrics"
	"github.com/dyike/CortexFolio/internal/service"
)

// ServiceFunc returns the service to use for one request. It is called per
// request so a reloaded service is picked up without restarting.
type ServiceFunc func() *service.Service

type Options struct {
	Addr    string
	Debug   bool
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// New builds the gin engine with every route registered.
func New(svc ServiceFunc, opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if opts.Metrics != nil {
		engine.Use(opts.Metrics.Middleware())
		engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	h := &Handler{Service: svc, Logger: logger}
	h.Register(engine)
	return engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, engine *gin.Engine, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
