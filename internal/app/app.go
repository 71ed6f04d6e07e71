// Package app builds the service graph shared by the commands from a Config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/logistics-locator/internal/adapter/mapbox"
	"github.com/couchcryptid/logistics-locator/internal/adapter/nominatim"
	"github.com/couchcryptid/logistics-locator/internal/config"
	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/geocache"
	"github.com/couchcryptid/logistics-locator/internal/locator"
	"github.com/couchcryptid/logistics-locator/internal/observability"
	"github.com/couchcryptid/logistics-locator/internal/store"
)

// OpenStore returns Postgres when DATABASE_URL is set and an in-memory store
// otherwise, optionally preloaded from DIRECTORY_SEED_FILE. The returned func
// releases the store.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.DirectoryStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("directory store: postgres")
		return pg, pg.Close, nil
	}

	var seed []domain.DirectoryEntry
	if cfg.DirectorySeedFile != "" {
		var err error
		if seed, err = store.LoadFixture(cfg.DirectorySeedFile); err != nil {
			return nil, nil, err
		}
	}
	logger.Info("directory store: memory", "seed_file", cfg.DirectorySeedFile, "entries", len(seed))
	return store.NewMemory(seed...), func() {}, nil
}

// NewProvider returns the geocoding client selected by GEOCODER_PROVIDER.
func NewProvider(cfg *config.Config, logger *slog.Logger) domain.Geocoder {
	if cfg.GeocoderProvider == config.ProviderMapbox {
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderCountryCodes, cfg.GeocoderTimeout, logger).
			WithBaseURL(cfg.GeocoderBaseURL)
	}
	return nominatim.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderCountryCodes, cfg.GeocoderTimeout, logger)
}

// NewLimiter builds the process-wide provider rate limiter. Build it once in
// main and pass it to every NewGeocoder call.
func NewLimiter(cfg *config.Config) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.GeocoderRateLimit), 1)
}

// NewGeocoder wraps provider in the cache and the shared rate limiter.
func NewGeocoder(cfg *config.Config, provider domain.Geocoder, limiter *rate.Limiter, metrics *observability.Metrics, logger *slog.Logger) *geocache.Resolver {
	logger.Info("geocoding enabled",
		"provider", cfg.GeocoderProvider,
		"rate_limit", cfg.GeocoderRateLimit,
		"cache_size", cfg.GeocodeCacheSize,
		"cache_ttl", cfg.GeocodeCacheTTL,
	)
	return geocache.NewResolver(provider, geocache.Options{
		Provider:  cfg.GeocoderProvider,
		CacheSize: cfg.GeocodeCacheSize,
		TTL:       cfg.GeocodeCacheTTL,
		Timeout:   cfg.GeocoderTimeout,
		Limiter:   limiter,
	}, metrics, logger)
}

// NewLocator builds the locator service. notifier may be nil.
func NewLocator(cfg *config.Config, st domain.DirectoryStore, geocoder domain.Geocoder, notifier domain.SubmissionNotifier, metrics *observability.Metrics, logger *slog.Logger) *locator.Service {
	region := cfg.Region
	return locator.New(locator.Options{
		Store:            st,
		Geocoder:         geocoder,
		Notifier:         notifier,
		Region:           &region,
		DefaultCenter:    cfg.DefaultCenter,
		DefaultRadiusKm:  cfg.DefaultRadiusKm,
		MaxRadiusKm:      cfg.MaxRadiusKm,
		SuggestMinLength: cfg.SuggestMinLength,
		SuggestLimit:     cfg.SuggestLimit,
		SuggestMaxLimit:  cfg.SuggestMaxLimit,
		SnapshotTTL:      cfg.DirectorySnapshotTTL,
	}, metrics, logger)
}
