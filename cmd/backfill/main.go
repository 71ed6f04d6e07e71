// Command backfill geocodes directory entries that have an address but no
// coordinates, using the same provider, cache and rate limit settings as the
// service.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/backfill [-report report.json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/logistics-locator/internal/app"
	"github.com/couchcryptid/logistics-locator/internal/backfill"
	"github.com/couchcryptid/logistics-locator/internal/config"
	"github.com/couchcryptid/logistics-locator/internal/observability"
)

func main() {
	reportPath := flag.String("report", "", "write the run report as JSON to this path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, *reportPath, logger); err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, reportPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set; results will not outlive this process")
	}
	st, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := observability.NewMetrics()
	limiter := app.NewLimiter(cfg)
	geocoder := app.NewGeocoder(cfg, app.NewProvider(cfg, logger), limiter, metrics, logger)
	region := cfg.Region

	runner := backfill.New(st, geocoder, backfill.Options{
		Region:      &region,
		MaxAttempts: cfg.BackfillMaxAttempts,
	}, metrics, logger)

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if reportPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
