package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/aegis-sign/walletbridge/pkg/bridge"
)

// EnvPrefix 是环境变量覆盖的前缀。
const EnvPrefix = "WALLETBRIDGE"

const (
	HostCDP       = "cdp"
	HostWebSocket = "ws"
)

// AppConfig 描述 stub delegate 返回的应用信息。
type AppConfig struct {
	Name     string `yaml:"name" split_words:"true"`
	Version  string `yaml:"version" split_words:"true"`
	Language string `yaml:"language" split_words:"true"`
}

// CDPConfig 是 chromedp 宿主配置。
type CDPConfig struct {
	RemoteURL string        `yaml:"remoteURL" split_words:"true"`
	Headless  bool          `yaml:"headless" split_words:"true"`
	StartURL  string        `yaml:"startURL" split_words:"true"`
	Timeout   time.Duration `yaml:"timeout" split_words:"true"`
}

// WSConfig 是 WebSocket 宿主配置。
type WSConfig struct {
	Addr string `yaml:"addr" split_words:"true"`
	Path string `yaml:"path" split_words:"true"`
}

// HostConfig 选择内容宿主实现。
type HostConfig struct {
	Kind string    `yaml:"kind" split_words:"true"`
	CDP  CDPConfig `yaml:"cdp" split_words:"true"`
	WS   WSConfig  `yaml:"ws" split_words:"true"`
}

// Config 是 walletbridge 进程配置，先读 YAML 再应用环境变量覆盖。
type Config struct {
	Dialects            []string      `yaml:"dialects" split_words:"true"`
	BrowserChannel      string        `yaml:"browserChannel" split_words:"true"`
	DesktopChannel      string        `yaml:"desktopChannel" split_words:"true"`
	ClientIdentity      string        `yaml:"clientIdentity" split_words:"true"`
	ScriptTimeout       time.Duration `yaml:"scriptTimeout" split_words:"true"`
	BackgroundWorkers   int           `yaml:"backgroundWorkers" split_words:"true"`
	DedicatedBackground bool          `yaml:"dedicatedBackground" split_words:"true"`
	QueueSize           int           `yaml:"queueSize" split_words:"true"`
	RateLimit           float64       `yaml:"rateLimit" split_words:"true"`
	RateBurst           int           `yaml:"rateBurst" split_words:"true"`
	EvalTimeout         time.Duration `yaml:"evalTimeout" split_words:"true"`
	MetricsAddr         string        `yaml:"metricsAddr" split_words:"true"`
	LogLevel            string        `yaml:"logLevel" split_words:"true"`
	Host                HostConfig    `yaml:"host" split_words:"true"`
	App                 AppConfig     `yaml:"app" split_words:"true"`
}

// Load 读取 path 指向的 YAML（可为空），再用 WALLETBRIDGE_* 环境变量覆盖。
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("env overrides: %w", err)
	}
	cfg = cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) normalize() Config {
	cfg := c
	if len(cfg.Dialects) == 0 {
		cfg.Dialects = []string{"browser", "desktop"}
	}
	if cfg.BrowserChannel == "" {
		cfg.BrowserChannel = bridge.DefaultBrowserChannel
	}
	if cfg.DesktopChannel == "" {
		cfg.DesktopChannel = bridge.DefaultDesktopChannel
	}
	if cfg.ClientIdentity == "" {
		cfg.ClientIdentity = "walletbridge/1.0"
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = 60 * time.Second
	}
	if cfg.BackgroundWorkers <= 0 {
		cfg.BackgroundWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = 5 * time.Second
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9102"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Host.Kind == "" {
		cfg.Host.Kind = HostWebSocket
	}
	if cfg.Host.WS.Addr == "" {
		cfg.Host.WS.Addr = ":8765"
	}
	if cfg.Host.WS.Path == "" {
		cfg.Host.WS.Path = "/bridge"
	}
	if cfg.Host.CDP.Timeout <= 0 {
		cfg.Host.CDP.Timeout = 30 * time.Second
	}
	if cfg.App.Name == "" {
		cfg.App.Name = "walletbridge"
	}
	if cfg.App.Language == "" {
		cfg.App.Language = "en"
	}
	return cfg
}

// Validate 校验方言、宿主类型与日志级别。
func (c Config) Validate() error {
	if _, err := c.BridgeDialects(); err != nil {
		return err
	}
	switch c.Host.Kind {
	case HostCDP, HostWebSocket:
	default:
		return fmt.Errorf("unsupported host kind %q", c.Host.Kind)
	}
	if c.BrowserChannel == c.DesktopChannel {
		return errors.New("browser and desktop channels must differ")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// BridgeDialects 将方言名转换为 bridge.Dialect 集合。
func (c Config) BridgeDialects() (bridge.Dialect, error) {
	var set bridge.Dialect
	for _, name := range c.Dialects {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "browser":
			set |= bridge.BrowserExtension
		case "desktop":
			set |= bridge.DesktopApplication
		default:
			return 0, fmt.Errorf("unknown dialect %q", name)
		}
	}
	if set == 0 {
		return 0, errors.New("at least one dialect is required")
	}
	return set, nil
}

// SlogLevel 解析日志级别。
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// BridgeConfig 生成 bridge.Config，logger 与注册器由调用方提供。
func (c Config) BridgeConfig() (bridge.Config, error) {
	dialects, err := c.BridgeDialects()
	if err != nil {
		return bridge.Config{}, err
	}
	return bridge.Config{
		Dialects:            dialects,
		BrowserChannel:      c.BrowserChannel,
		DesktopChannel:      c.DesktopChannel,
		ScriptTimeout:       c.ScriptTimeout,
		DedicatedBackground: c.DedicatedBackground,
		BackgroundWorkers:   c.BackgroundWorkers,
		QueueSize:           c.QueueSize,
		RateLimit:           c.RateLimit,
		RateBurst:           c.RateBurst,
		EvalTimeout:         c.EvalTimeout,
	}, nil
}
