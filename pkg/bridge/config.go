package bridge

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-sign/walletbridge/internal/assets"
	"github.com/aegis-sign/walletbridge/pkg/executor"
)

// Dialect 是需要启用的方言集合。
type Dialect uint8

const (
	// BrowserExtension 启用浏览器插件方言。
	BrowserExtension Dialect = 1 << iota
	// DesktopApplication 启用桌面应用方言。
	DesktopApplication
)

// Has 判断集合中是否包含 other。
func (d Dialect) Has(other Dialect) bool { return d&other != 0 }

const (
	DefaultBrowserChannel = "pushMessage"
	DefaultDesktopChannel = "scatterKit"
)

// Config 控制 Dispatcher 行为。未提供的执行器由 Dispatcher 创建并在 Close 时关闭。
type Config struct {
	Dialects       Dialect
	BrowserChannel string
	DesktopChannel string
	ScriptTimeout  time.Duration

	Background executor.Executor
	Delegate   executor.Executor
	Delivery   executor.Executor
	// DedicatedBackground 为每个方言创建独立的后台执行器。
	DedicatedBackground bool
	BackgroundWorkers   int
	QueueSize           int

	RateLimit   float64
	RateBurst   int
	EvalTimeout time.Duration

	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Tracer     trace.Tracer
}

func (c *Config) normalize() Config {
	cfg := *c
	if cfg.BrowserChannel == "" {
		cfg.BrowserChannel = DefaultBrowserChannel
	}
	if cfg.DesktopChannel == "" {
		cfg.DesktopChannel = DefaultDesktopChannel
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = assets.DefaultTimeout
	}
	if cfg.BackgroundWorkers <= 0 {
		cfg.BackgroundWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	return cfg
}
