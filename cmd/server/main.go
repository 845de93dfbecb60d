package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/gendb/internal/config"
	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/logging"
	"github.com/JonMunkholm/gendb/internal/metrics"
	"github.com/JonMunkholm/gendb/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	closeLog, err := logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		slog.Error("failed to open log file", "path", cfg.Logging.File, "error", err)
		os.Exit(1)
	}
	defer closeLog()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"sample_size", cfg.Generation.SampleSize,
		"max_concurrent_runs", cfg.Generation.MaxConcurrent,
		"export_concurrency", cfg.Export.Concurrency,
		"output_dir", cfg.Export.OutputDir,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Load reference data and wire the service
	ctx := context.Background()
	m := metrics.New(prometheus.DefaultRegisterer)
	service, err := core.NewServiceFromConfig(ctx, cfg, m, core.WithOutputDir(cfg.Export.OutputDir))
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	ref := service.Reference()
	slog.Info("reference data ready",
		"localities", ref.Localities,
		"name_rows", ref.NameRows,
		"surnames", ref.Surnames,
	)

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active runs to complete (with timeout)
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
