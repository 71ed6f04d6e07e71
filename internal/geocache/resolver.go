package geocache

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/observability"
)

// Options configures a Resolver.
type Options struct {
	// Provider names the upstream in ProviderErrors and logs.
	Provider  string
	CacheSize int
	TTL       time.Duration
	// Timeout bounds the rate-limit wait and the provider call separately.
	Timeout time.Duration
	// Limiter is shared by every resolver in the process. Nil disables limiting.
	Limiter *rate.Limiter
	Clock   clockwork.Clock
}

// Resolver wraps a provider Geocoder with a TTL cache, request coalescing and
// a shared rate limiter. It implements domain.Geocoder.
type Resolver struct {
	provider    domain.Geocoder
	name        string
	results     *Cache[domain.GeocodingResult]
	suggestions *Cache[[]domain.Suggestion]
	ttl         time.Duration
	timeout     time.Duration
	limiter     *rate.Limiter
	clock       clockwork.Clock
	group       singleflight.Group
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewResolver creates a caching, coalescing resolver in front of provider.
func NewResolver(provider domain.Geocoder, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	if opts.Provider == "" {
		opts.Provider = "geocoder"
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Resolver{
		provider:    provider,
		name:        opts.Provider,
		results:     NewCache(opts.CacheSize, opts.Clock, domain.GeocodingResult.Clone),
		suggestions: NewCache(opts.CacheSize, opts.Clock, cloneSuggestions),
		ttl:         opts.TTL,
		timeout:     opts.Timeout,
		limiter:     opts.Limiter,
		clock:       opts.Clock,
		metrics:     metrics,
		logger:      logger,
	}
}

func (r *Resolver) ForwardGeocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.GeocodingResult{}, &domain.FormatError{Input: address, Reason: "empty address"}
	}
	return resolve(ctx, r, r.results, "forward", domain.ForwardQuery(address), hasAddress,
		func(ctx context.Context) (domain.GeocodingResult, error) {
			return r.provider.ForwardGeocode(ctx, address)
		})
}

func (r *Resolver) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	if err := domain.ValidateRange(domain.Coordinate{Lat: lat, Lon: lon}); err != nil {
		return domain.GeocodingResult{}, err
	}
	return resolve(ctx, r, r.results, "reverse", domain.ReverseQuery(lat, lon), hasAddress,
		func(ctx context.Context) (domain.GeocodingResult, error) {
			return r.provider.ReverseGeocode(ctx, lat, lon)
		})
}

func (r *Resolver) Suggest(ctx context.Context, text string, limit int) ([]domain.Suggestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.Suggestion{}, nil
	}
	return resolve(ctx, r, r.suggestions, "suggest", domain.SuggestQuery(text, limit),
		func(s []domain.Suggestion) bool { return len(s) > 0 },
		func(ctx context.Context) ([]domain.Suggestion, error) {
			return r.provider.Suggest(ctx, text, limit)
		})
}

// resolve serves key from cache, or joins the single in-flight provider call
// for key. The flight is detached from every caller's cancellation; each
// caller returns as soon as its own context is done.
func resolve[V any](
	ctx context.Context,
	r *Resolver,
	cache *Cache[V],
	method string,
	key domain.GeocodeQuery,
	cacheable func(V) bool,
	call func(context.Context) (V, error),
) (V, error) {
	var zero V
	if e, ok := cache.Get(key); ok {
		r.metrics.GeocodeCache.WithLabelValues(method, "hit").Inc()
		return e.Value, nil
	}
	r.metrics.GeocodeCache.WithLabelValues(method, "miss").Inc()

	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(string(key), func() (any, error) {
		// A flight that finished between our miss and this call may have filled it.
		if e, ok := cache.Get(key); ok {
			return e.Value, nil
		}
		if err := r.wait(flightCtx, method); err != nil {
			return zero, err
		}

		callCtx, cancel := context.WithTimeout(flightCtx, r.timeout)
		defer cancel()
		start := r.clock.Now()
		v, err := call(callCtx)
		r.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(r.clock.Since(start).Seconds())

		switch {
		case err == nil:
			r.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()
			if cacheable(v) {
				cache.Put(key, v, r.ttl)
			}
			return v, nil
		case errors.Is(err, domain.ErrNotFound):
			r.metrics.GeocodeRequests.WithLabelValues(method, "not_found").Inc()
			return zero, err
		default:
			r.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
			err = r.providerError(method, err)
			r.logger.Warn("geocoding provider failed", "provider", r.name, "method", method, "query", string(key), "error", err)
			return zero, err
		}
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.metrics.GeocodeCoalesced.WithLabelValues(method).Inc()
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return cache.clone(res.Val.(V)), nil
	case <-ctx.Done():
		return zero, &domain.ProviderError{Provider: r.name, Op: method, Err: ctx.Err()}
	}
}

func (r *Resolver) wait(ctx context.Context, method string) error {
	if r.limiter == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.clock.Now()
	err := r.limiter.Wait(ctx)
	r.metrics.GeocodeRateLimitWait.Observe(r.clock.Since(start).Seconds())
	if err != nil {
		r.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return &domain.ProviderError{Provider: r.name, Op: method, Err: err}
	}
	return nil
}

// providerError keeps typed errors from the adapter and wraps anything else.
func (r *Resolver) providerError(method string, err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) || domain.IsInputError(err) {
		return err
	}
	return &domain.ProviderError{Provider: r.name, Op: method, Err: err}
}

func hasAddress(res domain.GeocodingResult) bool {
	return res.FormattedAddress != ""
}

func cloneSuggestions(s []domain.Suggestion) []domain.Suggestion {
	return slices.Clone(s)
}
