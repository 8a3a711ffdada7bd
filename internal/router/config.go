package router

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-sign/walletbridge/pkg/executor"
)

const tracerName = "github.com/aegis-sign/walletbridge/internal/router"

// Config 控制 Router 行为。
type Config struct {
	Dialect    string
	Background executor.Executor
	Delegate   executor.Executor
	Logger     *slog.Logger
	Metrics    *Metrics
	Tracer     trace.Tracer
}

func (c *Config) normalize() (Config, error) {
	cfg := *c
	if cfg.Background == nil {
		return cfg, errors.New("background executor is required")
	}
	if cfg.Delegate == nil {
		return cfg, errors.New("delegate executor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return cfg, nil
}
