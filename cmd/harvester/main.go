package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oludev/solar-market-scraper/internal/config"
	"github.com/oludev/solar-market-scraper/internal/database"
	"github.com/oludev/solar-market-scraper/internal/events"
	"github.com/oludev/solar-market-scraper/internal/export"
	"github.com/oludev/solar-market-scraper/internal/harvest"
	"github.com/oludev/solar-market-scraper/internal/metrics"
	"github.com/oludev/solar-market-scraper/internal/sites"
	"github.com/oludev/solar-market-scraper/internal/useragent"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, letting in-flight work finish")
	}()

	m := metrics.New()
	var metricsServer *http.Server
	if cfg.Sinks.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.Sinks.MetricsAddr,
			Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("metrics endpoint enabled", "addr", cfg.Sinks.MetricsAddr)
	}

	sink := export.NewCSVSink(cfg.Harvester.OutputDir)

	var archiver *export.Archiver
	if cfg.Harvester.ArchivePages {
		archiver = export.NewArchiver(cfg.Harvester.OutputDir)
	}

	var store harvest.ItemStore
	if cfg.Sinks.DatabaseURL != "" {
		dbStore, err := database.NewStore(ctx, cfg.Sinks.DatabaseURL, logger)
		if err != nil {
			logger.Error("database sink unavailable, continuing without it", "error", err)
		} else {
			defer dbStore.Close()
			store = dbStore
		}
	}

	var publisher harvest.EventPublisher
	if cfg.Sinks.RedisAddr != "" {
		pub := events.NewPublisher(cfg.Sinks.RedisAddr, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("failed to close event publisher", "error", err)
			}
		}()
		publisher = pub
	}

	coordinator := harvest.NewCoordinator(
		cfg.Harvester.Query,
		sink,
		archiver,
		store,
		publisher,
		m,
		useragent.Static{},
		logger,
	)

	summary := coordinator.Run(ctx, sites.Defaults())

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
		cancel()
	}

	printSummary(summary)
}

func printSummary(summary *harvest.Summary) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Harvest run %s complete\n", summary.RunID)
	for _, r := range summary.Results {
		file := r.File
		if file == "" {
			file = "(not persisted)"
		}
		fmt.Printf("  %-10s %4d items  %s\n", r.Site, r.Items, file)
	}
	fmt.Printf("  Total items: %d\n", summary.TotalItems())
	fmt.Printf("  Duration:    %v\n", summary.Duration.Round(time.Millisecond))
	fmt.Println(separator)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
