package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewWithFormat creates a zap logger with the given level ("debug", "info",
// "warn", "error") and output format ("json" or "console"). Unknown levels
// fall back to info.
func NewWithFormat(level, format string) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		// Config built from zap presets cannot fail on level alone
		return zap.NewNop()
	}
	return logger
}

// Named returns a sugared logger scoped to a component name.
func Named(base *zap.Logger, name string) *zap.SugaredLogger {
	return base.Named(name).Sugar()
}
