package graph

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type startKey struct{}

// LoggerCallback logs node lifecycle events of a running graph.
type LoggerCallback struct {
	Logger *zap.Logger
	// Run is attached to every entry so one run's nodes can be grouped.
	Run string
}

func NewLoggerCallback(logger *zap.Logger, run string) *LoggerCallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerCallback{Logger: logger, Run: run}
}

func (cb *LoggerCallback) fields(info *callbacks.RunInfo) []zap.Field {
	fields := []zap.Field{zap.String("run", cb.Run)}
	if info != nil {
		fields = append(fields,
			zap.String("node", info.Name),
			zap.String("type", info.Type),
			zap.String("component", string(info.Component)),
		)
	}
	return fields
}

func (cb *LoggerCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	cb.Logger.Debug("node started", cb.fields(info)...)
	return context.WithValue(ctx, startKey{}, time.Now())
}

func (cb *LoggerCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	fields := cb.fields(info)
	if started, ok := ctx.Value(startKey{}).(time.Time); ok {
		fields = append(fields, zap.Duration("elapsed", time.Since(started)))
	}
	cb.Logger.Debug("node finished", fields...)
	return ctx
}

func (cb *LoggerCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	cb.Logger.Warn("node failed", append(cb.fields(info), zap.Error(err))...)
	return ctx
}

func (cb *LoggerCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	defer input.Close()
	cb.Logger.Debug("node started (stream)", cb.fields(info)...)
	return context.WithValue(ctx, startKey{}, time.Now())
}

func (cb *LoggerCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	// each handler gets its own copy of the stream and must close it
	output.Close()
	cb.Logger.Debug("node streaming", cb.fields(info)...)
	return ctx
}
