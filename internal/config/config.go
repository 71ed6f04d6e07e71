package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// Geocoding providers selectable with GEOCODER_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding provider configuration.
	GeocoderProvider     string
	GeocoderBaseURL      string
	GeocoderUserAgent    string
	GeocoderCountryCodes string
	GeocoderTimeout      time.Duration
	GeocoderRateLimit    float64 // requests per second
	MapboxToken          string

	GeocodeCacheSize int
	GeocodeCacheTTL  time.Duration

	Region          domain.BBox
	DefaultCenter   domain.Coordinate
	DefaultRadiusKm float64
	MaxRadiusKm     float64

	SuggestMinLength int
	SuggestLimit     int
	SuggestMaxLimit  int

	// Directory store: Postgres when DatabaseURL is set, memory otherwise.
	DatabaseURL          string
	DirectorySeedFile    string
	DirectorySnapshotTTL time.Duration

	// Submission notifications are published only when KafkaBrokers is non-empty.
	KafkaBrokers         []string
	KafkaSubmissionTopic string

	CORSAllowedOrigins []string

	BackfillMaxAttempts int
}

// NotificationsEnabled reports whether submission events should be published.
func (c *Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderProvider:     strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		GeocoderBaseURL:      os.Getenv("GEOCODER_BASE_URL"),
		GeocoderUserAgent:    sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "logistics-locator/1.0"),
		GeocoderCountryCodes: sharedcfg.EnvOrDefault("GEOCODER_COUNTRY_CODES", "in"),
		MapboxToken:          os.Getenv("MAPBOX_TOKEN"),

		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DirectorySeedFile:    os.Getenv("DIRECTORY_SEED_FILE"),
		KafkaSubmissionTopic: sharedcfg.EnvOrDefault("KAFKA_SUBMISSION_TOPIC", "logistics-submissions"),
		CORSAllowedOrigins:   splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(raw)
	}

	if cfg.GeocoderTimeout, err = parseDuration("GEOCODER_TIMEOUT", "10s", false); err != nil {
		return nil, err
	}
	if cfg.GeocoderRateLimit, err = parsePositiveFloat("GEOCODER_RATE_LIMIT", "1"); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheSize, err = parsePositiveInt("GEOCODE_CACHE_SIZE", "1000"); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheTTL, err = parseDuration("GEOCODE_CACHE_TTL", "24h", false); err != nil {
		return nil, err
	}
	if cfg.DirectorySnapshotTTL, err = parseDuration("DIRECTORY_SNAPSHOT_TTL", "0s", true); err != nil {
		return nil, err
	}

	if cfg.Region, err = domain.ParseBBox(sharedcfg.EnvOrDefault("REGION_BOUNDS", domain.IndiaBounds.String())); err != nil {
		return nil, fmt.Errorf("invalid REGION_BOUNDS: %w", err)
	}
	if cfg.DefaultCenter, err = domain.ParseCoordinates(sharedcfg.EnvOrDefault("DEFAULT_CENTER", "28.6139, 77.2090")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_CENTER: %w", err)
	}
	if err := domain.ValidateRegion(cfg.DefaultCenter, &cfg.Region); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_CENTER: %w", err)
	}
	if cfg.DefaultRadiusKm, err = parsePositiveFloat("DEFAULT_RADIUS_KM", "50"); err != nil {
		return nil, err
	}
	if cfg.MaxRadiusKm, err = parsePositiveFloat("MAX_RADIUS_KM", "500"); err != nil {
		return nil, err
	}

	if cfg.SuggestMinLength, err = parsePositiveInt("SUGGEST_MIN_LENGTH", "3"); err != nil {
		return nil, err
	}
	if cfg.SuggestLimit, err = parsePositiveInt("SUGGEST_LIMIT", "5"); err != nil {
		return nil, err
	}
	if cfg.SuggestMaxLimit, err = parsePositiveInt("SUGGEST_MAX_LIMIT", "10"); err != nil {
		return nil, err
	}
	if cfg.BackfillMaxAttempts, err = parsePositiveInt("BACKFILL_MAX_ATTEMPTS", "3"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.GeocoderProvider {
	case ProviderNominatim:
		if c.GeocoderUserAgent == "" {
			return errors.New("GEOCODER_USER_AGENT is required for nominatim")
		}
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return fmt.Errorf("invalid GEOCODER_PROVIDER: %q (want nominatim or mapbox)", c.GeocoderProvider)
	}
	if c.DefaultRadiusKm > c.MaxRadiusKm {
		return errors.New("DEFAULT_RADIUS_KM exceeds MAX_RADIUS_KM")
	}
	if c.SuggestLimit > c.SuggestMaxLimit {
		return errors.New("SUGGEST_LIMIT exceeds SUGGEST_MAX_LIMIT")
	}
	if c.NotificationsEnabled() && c.KafkaSubmissionTopic == "" {
		return errors.New("KAFKA_SUBMISSION_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	v := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func parsePositiveInt(key, def string) (int, error) {
	v := sharedcfg.EnvOrDefault(key, def)
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func parsePositiveFloat(key, def string) (float64, error) {
	v := sharedcfg.EnvOrDefault(key, def)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !(f > 0) || f > 1e9 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
