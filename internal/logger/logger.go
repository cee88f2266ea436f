// Package logger builds the JSON zap logger shared by every binary. Each line
// carries the service name under "context" and the process id under "pid".
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New(service, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{
		"context": service,
		"pid":     os.Getpid(),
	}
	return cfg.Build()
}

// Must is New for main packages; it falls back to a production logger if the
// configured level is invalid.
func Must(service, level string) *zap.Logger {
	l, err := New(service, level)
	if err == nil {
		return l
	}
	l, _ = zap.NewProduction(zap.Fields(zap.String("context", service), zap.Int("pid", os.Getpid())))
	l.Warn("invalid log level, using info", zap.String("level", level))
	return l
}
