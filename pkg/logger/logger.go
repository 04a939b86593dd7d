// Package logger holds the process-wide zap logger. Packages obtain a child
// logger with WithModule rather than passing loggers around.
package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	current atomic.Pointer[zap.Logger]
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	current.Store(zap.NewNop())
}

// Options configures Init.
type Options struct {
	Level string
	// Format is "json" (default) or "console".
	Format string
	// Service is attached to every entry when set.
	Service string
}

// Init builds the global logger. An unknown level falls back to info.
func Init(opts Options) error {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	SetLevel(opts.Level)

	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("logger: build: %w", err)
	}
	if service := strings.TrimSpace(opts.Service); service != "" {
		log = log.With(zap.String("service", service))
	}
	Replace(log)
	return nil
}

// SetLevel changes the level of loggers built by Init without rebuilding them.
func SetLevel(name string) {
	parsed, err := zapcore.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)
}

// Replace swaps the global logger; nil installs a no-op logger.
func Replace(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	current.Store(log)
}

func Logger() *zap.Logger {
	return current.Load()
}

// Sync flushes buffered entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger tagged with module.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
