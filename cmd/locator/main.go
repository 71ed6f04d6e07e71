package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/logistics-locator/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/logistics-locator/internal/adapter/kafka"
	"github.com/couchcryptid/logistics-locator/internal/app"
	"github.com/couchcryptid/logistics-locator/internal/config"
	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open directory store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	limiter := app.NewLimiter(cfg)
	geocoder := app.NewGeocoder(cfg, app.NewProvider(cfg, logger), limiter, metrics, logger)

	// Submission notifications are feature-flagged via KAFKA_BROKERS.
	var (
		notifier  domain.SubmissionNotifier
		publisher *kafkaadapter.Publisher
	)
	if cfg.NotificationsEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		notifier = publisher
		logger.Info("submission notifications enabled", "topic", cfg.KafkaSubmissionTopic)
	} else {
		logger.Info("submission notifications disabled")
	}

	svc := app.NewLocator(cfg, st, geocoder, notifier, metrics, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, cfg.CORSAllowedOrigins, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
