package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWithFormat_Levels(t *testing.T) {
	if l := NewWithFormat("debug", "json"); !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
	if l := NewWithFormat("error", "console"); l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled at error level")
	}
}

func TestNewWithFormat_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewWithFormat("verbose", "json")
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected fallback to info, debug should be disabled")
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be enabled after fallback")
	}
}

func TestNamed(t *testing.T) {
	base := NewWithFormat("info", "json")
	sugared := Named(base, "signal")
	if sugared.Desugar().Name() != "signal" {
		t.Errorf("expected logger name 'signal', got %q", sugared.Desugar().Name())
	}
}
