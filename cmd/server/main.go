package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/elevatorsim/engine/internal/engine"
	httpPkg "github.com/elevatorsim/engine/internal/http"
	"github.com/elevatorsim/engine/internal/infra/config"
	"github.com/elevatorsim/engine/internal/infra/logging"
	"github.com/elevatorsim/engine/internal/infra/observability"
	"github.com/elevatorsim/engine/internal/traffic"
)

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		slog.Error("failed to initialize configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.InitLogger(cfg.SlogLevel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.InfoContext(ctx, "elevator simulation engine starting up",
		slog.Any("config_summary", cfg.EnvironmentInfo()))

	obsCfg := &observability.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "elevator-sim-engine",
		Environment: cfg.Environment,
		Version:     "1.0.0",
	}
	telemetry, err := observability.NewTelemetryProvider(obsCfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialize telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			logger.ErrorContext(ctx, "telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	scenarios, err := loadScenarios(cfg.TrafficDir)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load traffic scenarios",
			slog.String("traffic_dir", cfg.TrafficDir), slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.InfoContext(ctx, "traffic scenarios loaded",
		slog.Int("count", len(scenarios)), slog.String("traffic_dir", cfg.TrafficDir))

	eng, err := engine.New(scenarios,
		engine.WithLogger(logger.With(slog.String("component", "engine"))),
		engine.WithBreaker(engine.NewBreaker(
			cfg.CircuitBreakerMaxFailures, cfg.CircuitBreakerResetTimeout, cfg.CircuitBreakerHalfOpenMax)),
	)
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialize engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := httpPkg.NewServer(cfg, eng, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting HTTP server", slog.Int("port", cfg.Port))
		if err := server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	select {
	case err := <-serverErrCh:
		logger.ErrorContext(ctx, "HTTP server failed to start", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)

	case sig := <-quit:
		logger.InfoContext(ctx, "received shutdown signal", slog.String("signal", sig.String()))
	}

	cancel()

	if err := server.Shutdown(); err != nil {
		logger.ErrorContext(ctx, "HTTP server shutdown failed", slog.String("error", err.Error()))
	} else {
		logger.InfoContext(ctx, "HTTP server shutdown completed")
	}

	time.Sleep(cfg.ShutdownGrace)
	logger.InfoContext(ctx, "graceful shutdown completed")
}

// loadScenarios parses every *.json file under dir into a traffic.Pattern,
// in filename order, so operators can control round rotation order just by
// naming files (spec §6: traffic files are a CLI-level loading concern, not
// something the engine itself resolves from disk).
func loadScenarios(dir string) ([]*traffic.Pattern, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	patterns := make([]*traffic.Pattern, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		pattern, err := traffic.ParseFile(data)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}
