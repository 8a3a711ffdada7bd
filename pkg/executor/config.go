package executor

import "log/slog"

// Config 控制 Pool 行为。
type Config struct {
	Name     string
	MaxQueue int
	Workers  int
	Logger   *slog.Logger
	Metrics  *Metrics
}

func (c *Config) normalize() Config {
	cfg := *c
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
