package transport

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-sign/walletbridge/internal/router"
	"github.com/aegis-sign/walletbridge/pkg/executor"
	"github.com/aegis-sign/walletbridge/pkg/host"
)

// Config 控制 Transport 行为。
type Config struct {
	Channel     string
	Setup       host.UserScript
	Background  executor.Executor
	Delegate    executor.Executor
	Delivery    executor.Executor
	RateLimit   float64
	RateBurst   int
	EvalTimeout time.Duration
	Logger      *slog.Logger
	Metrics     *Metrics
	Router      *router.Metrics
	Tracer      trace.Tracer
}

func (c *Config) normalize() (Config, error) {
	cfg := *c
	if cfg.Channel == "" {
		return cfg, errors.New("channel is required")
	}
	if cfg.Setup.Source == "" {
		return cfg, errors.New("setup script is required")
	}
	if cfg.Background == nil || cfg.Delegate == nil || cfg.Delivery == nil {
		return cfg, errors.New("background, delegate and delivery executors are required")
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg, nil
}
