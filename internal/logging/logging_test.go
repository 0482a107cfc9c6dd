package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewFallsBackOnUnknownLevel(t *testing.T) {
	l, err := New(Options{Level: "loud", Encoding: "xml"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be enabled")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be disabled at default level")
	}
}

func TestDebugEnablesDebugLevel(t *testing.T) {
	l := MustNew(Options{Level: "warn", Encoding: "console", Debug: true})
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be enabled")
	}
}
