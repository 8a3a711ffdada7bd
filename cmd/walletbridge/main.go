package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aegis-sign/walletbridge/internal/app/stub"
	"github.com/aegis-sign/walletbridge/internal/config"
	"github.com/aegis-sign/walletbridge/internal/logging"
	"github.com/aegis-sign/walletbridge/pkg/bridge"
	"github.com/aegis-sign/walletbridge/pkg/host"
	"github.com/aegis-sign/walletbridge/pkg/host/cdphost"
	"github.com/aegis-sign/walletbridge/pkg/host/wshost"
)

func main() {
	cfg, err := config.Load(envOrDefault("WALLETBRIDGE_CONFIG", ""))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := logging.New(os.Stdout, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var servers []*http.Server
	contentHost, hostCloser, err := configureHost(cfg, logger, &servers)
	if err != nil {
		logger.Error("failed to configure content host", "kind", cfg.Host.Kind, "error", err)
		os.Exit(1)
	}
	defer hostCloser()

	bridgeCfg, err := cfg.BridgeConfig()
	if err != nil {
		logger.Error("invalid bridge config", "error", err)
		os.Exit(1)
	}
	bridgeCfg.Logger = logger
	dispatcher, err := bridge.New(contentHost, bridgeCfg)
	if err != nil {
		logger.Error("failed to start bridge", "error", err)
		os.Exit(1)
	}
	defer dispatcher.Close()
	dispatcher.SetDelegate(stub.New(cfg.App.Name, cfg.App.Version, cfg.App.Language))

	if ch, ok := contentHost.(*cdphost.Host); ok && cfg.Host.CDP.StartURL != "" {
		if err := ch.Navigate(ctx, cfg.Host.CDP.StartURL); err != nil {
			logger.Error("failed to open start url", "url", cfg.Host.CDP.StartURL, "error", err)
		}
	}

	// metrics 与调试端点
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/bridge", dispatcher.DebugHandler())
	servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux})

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server closed unexpectedly", "addr", srv.Addr, "error", err)
				stop()
			}
		}(srv)
	}

	<-ctx.Done()
	logger.Info("shutting down servers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "addr", srv.Addr, "error", err)
		}
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func configureHost(cfg config.Config, logger *slog.Logger, servers *[]*http.Server) (host.ContentHost, func(), error) {
	switch cfg.Host.Kind {
	case config.HostCDP:
		h, err := cdphost.New(cdphost.Config{
			RemoteURL: cfg.Host.CDP.RemoteURL,
			Headless:  cfg.Host.CDP.Headless,
			Identity:  cfg.ClientIdentity,
			Timeout:   cfg.Host.CDP.Timeout,
			Logger:    logger,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return h, h.Close, nil
	default:
		h := wshost.New(cfg.ClientIdentity, logger)
		mux := http.NewServeMux()
		h.Register(mux, cfg.Host.WS.Path)
		*servers = append(*servers, &http.Server{Addr: cfg.Host.WS.Addr, Handler: mux})
		return h, func() {}, nil
	}
}
