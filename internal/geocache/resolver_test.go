package geocache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/observability"
)

// --- fake provider ---

type fakeProvider struct {
	forwardCalls atomic.Int32
	reverseCalls atomic.Int32
	suggestCalls atomic.Int32

	result      domain.GeocodingResult
	suggestions []domain.Suggestion
	err         error

	// When set, calls block until release is closed or the call context ends.
	release chan struct{}
	started chan struct{}
}

func (f *fakeProvider) block(ctx context.Context) error {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release == nil {
		return nil
	}
	select {
	case <-f.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeProvider) ForwardGeocode(ctx context.Context, _ string) (domain.GeocodingResult, error) {
	f.forwardCalls.Add(1)
	if err := f.block(ctx); err != nil {
		return domain.GeocodingResult{}, err
	}
	return f.result.Clone(), f.err
}

func (f *fakeProvider) ReverseGeocode(ctx context.Context, _, _ float64) (domain.GeocodingResult, error) {
	f.reverseCalls.Add(1)
	if err := f.block(ctx); err != nil {
		return domain.GeocodingResult{}, err
	}
	return f.result.Clone(), f.err
}

func (f *fakeProvider) Suggest(ctx context.Context, _ string, _ int) ([]domain.Suggestion, error) {
	f.suggestCalls.Add(1)
	if err := f.block(ctx); err != nil {
		return nil, err
	}
	return f.suggestions, f.err
}

var connaught = domain.GeocodingResult{
	Coordinate:       domain.Coordinate{Lat: 28.6315, Lon: 77.2167},
	FormattedAddress: "Connaught Place, New Delhi, Delhi, India",
	Locality:         "New Delhi",
	Components:       map[string]string{"city": "New Delhi", "state": "Delhi"},
	Confidence:       0.62,
	Source:           domain.SourceForward,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(p domain.Geocoder, opts Options) (*Resolver, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	return NewResolver(p, opts, m, discardLogger()), m
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// --- tests ---

func TestResolver_ForwardCacheHit(t *testing.T) {
	p := &fakeProvider{result: connaught}
	r, m := newTestResolver(p, Options{})

	r1, err := r.ForwardGeocode(context.Background(), "Connaught Place, New Delhi")
	require.NoError(t, err)
	r2, err := r.ForwardGeocode(context.Background(), "  connaught place,   NEW DELHI ")
	require.NoError(t, err)

	assert.Equal(t, connaught, r1)
	assert.Equal(t, r1, r2)
	assert.Equal(t, int32(1), p.forwardCalls.Load(), "normalized queries share a cache entry")
	assert.InDelta(t, 1, counterValue(t, m.GeocodeCache.WithLabelValues("forward", "hit")), 0)
	assert.InDelta(t, 1, counterValue(t, m.GeocodeCache.WithLabelValues("forward", "miss")), 0)
	assert.InDelta(t, 1, counterValue(t, m.GeocodeRequests.WithLabelValues("forward", "success")), 0)
}

func TestResolver_ReturnsCopies(t *testing.T) {
	p := &fakeProvider{result: connaught}
	r, _ := newTestResolver(p, Options{})

	r1, err := r.ForwardGeocode(context.Background(), "Connaught Place")
	require.NoError(t, err)
	r1.Components["city"] = "Mumbai"

	r2, err := r.ForwardGeocode(context.Background(), "Connaught Place")
	require.NoError(t, err)
	assert.Equal(t, "New Delhi", r2.Components["city"])
}

func TestResolver_NotFoundIsNotCached(t *testing.T) {
	p := &fakeProvider{err: domain.ErrNotFound}
	r, m := newTestResolver(p, Options{})

	for range 2 {
		_, err := r.ForwardGeocode(context.Background(), "Atlantis")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, int32(2), p.forwardCalls.Load())
	assert.InDelta(t, 2, counterValue(t, m.GeocodeRequests.WithLabelValues("forward", "not_found")), 0)
}

func TestResolver_ProviderFailureIsWrappedAndNotCached(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection reset")}
	r, m := newTestResolver(p, Options{Provider: "nominatim"})

	for range 2 {
		_, err := r.ForwardGeocode(context.Background(), "Connaught Place")
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "nominatim", pe.Provider)
		assert.Equal(t, "forward", pe.Op)
	}
	assert.Equal(t, int32(2), p.forwardCalls.Load())
	assert.InDelta(t, 2, counterValue(t, m.GeocodeRequests.WithLabelValues("forward", "error")), 0)
}

func TestResolver_TypedProviderErrorPassesThrough(t *testing.T) {
	orig := &domain.ProviderError{Provider: "nominatim", Op: "search", StatusCode: 503, Err: errors.New("busy")}
	r, _ := newTestResolver(&fakeProvider{err: orig}, Options{})

	_, err := r.ForwardGeocode(context.Background(), "Connaught Place")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 503, pe.StatusCode)
}

func TestResolver_EmptyAddressRejected(t *testing.T) {
	p := &fakeProvider{result: connaught}
	r, _ := newTestResolver(p, Options{})

	_, err := r.ForwardGeocode(context.Background(), "   ")
	var fe *domain.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int32(0), p.forwardCalls.Load())
}

func TestResolver_ResultWithoutAddressNotCached(t *testing.T) {
	p := &fakeProvider{result: domain.GeocodingResult{Coordinate: domain.Coordinate{Lat: 1, Lon: 1}}}
	r, _ := newTestResolver(p, Options{})

	_, _ = r.ForwardGeocode(context.Background(), "somewhere")
	_, _ = r.ForwardGeocode(context.Background(), "somewhere")
	assert.Equal(t, int32(2), p.forwardCalls.Load())
}

func TestResolver_TTLExpiry(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := &fakeProvider{result: connaught}
	r, _ := newTestResolver(p, Options{TTL: time.Hour, Clock: clk})

	_, err := r.ForwardGeocode(context.Background(), "Connaught Place")
	require.NoError(t, err)
	clk.Advance(59 * time.Minute)
	_, err = r.ForwardGeocode(context.Background(), "Connaught Place")
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.forwardCalls.Load())

	clk.Advance(time.Minute)
	_, err = r.ForwardGeocode(context.Background(), "Connaught Place")
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.forwardCalls.Load())
}

func TestResolver_ReverseKeyRounding(t *testing.T) {
	p := &fakeProvider{result: connaught}
	r, _ := newTestResolver(p, Options{})

	_, err := r.ReverseGeocode(context.Background(), 28.63150001, 77.21670004)
	require.NoError(t, err)
	_, err = r.ReverseGeocode(context.Background(), 28.6315, 77.2167)
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.reverseCalls.Load())

	_, err = r.ReverseGeocode(context.Background(), 28.6316, 77.2167)
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.reverseCalls.Load())
}

func TestResolver_ReverseRejectsOutOfRange(t *testing.T) {
	p := &fakeProvider{result: connaught}
	r, _ := newTestResolver(p, Options{})

	_, err := r.ReverseGeocode(context.Background(), 200, 10)
	var re *domain.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int32(0), p.reverseCalls.Load())
}

func TestResolver_CoalescesConcurrentLookups(t *testing.T) {
	p := &fakeProvider{
		result:  connaught,
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	r, _ := newTestResolver(p, Options{})

	const callers = 25
	var wg sync.WaitGroup
	results := make([]domain.GeocodingResult, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.ForwardGeocode(context.Background(), "Connaught Place, New Delhi")
		}()
	}

	<-p.started
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.forwardCalls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, connaught, results[i])
	}
}

func TestResolver_CallerCancelDoesNotFailOthers(t *testing.T) {
	p := &fakeProvider{
		result:  connaught,
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	r, _ := newTestResolver(p, Options{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.ForwardGeocode(ctxA, "Connaught Place")
		errA <- err
	}()
	<-p.started

	resB := make(chan error, 1)
	go func() {
		_, err := r.ForwardGeocode(context.Background(), "Connaught Place")
		resB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	err := <-errA
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, context.Canceled)

	close(p.release)
	require.NoError(t, <-resB)
	assert.Equal(t, int32(1), p.forwardCalls.Load())
}

func TestResolver_ProviderTimeout(t *testing.T) {
	p := &fakeProvider{result: connaught, release: make(chan struct{})}
	defer close(p.release)
	r, _ := newTestResolver(p, Options{Timeout: 20 * time.Millisecond})

	_, err := r.ForwardGeocode(context.Background(), "Connaught Place")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolver_RateLimitsProviderCalls(t *testing.T) {
	p := &fakeProvider{result: connaught}
	limiter := rate.NewLimiter(rate.Every(40*time.Millisecond), 1)
	r, _ := newTestResolver(p, Options{Limiter: limiter})

	start := time.Now()
	for _, q := range []string{"Connaught Place", "Karol Bagh", "Chandni Chowk"} {
		_, err := r.ForwardGeocode(context.Background(), q)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	assert.Equal(t, int32(3), p.forwardCalls.Load())

	// Cache hits do not consume tokens.
	start = time.Now()
	_, err := r.ForwardGeocode(context.Background(), "Connaught Place")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 30*time.Millisecond)
}

func TestResolver_SuggestCaching(t *testing.T) {
	p := &fakeProvider{suggestions: []domain.Suggestion{
		{DisplayName: "Connaught Place, New Delhi", Relevance: 0.6},
	}}
	r, _ := newTestResolver(p, Options{})

	s1, err := r.Suggest(context.Background(), "Connaught", 5)
	require.NoError(t, err)
	require.Len(t, s1, 1)
	s1[0].DisplayName = "mutated"

	s2, err := r.Suggest(context.Background(), "connaught", 5)
	require.NoError(t, err)
	assert.Equal(t, "Connaught Place, New Delhi", s2[0].DisplayName)
	assert.Equal(t, int32(1), p.suggestCalls.Load())

	_, err = r.Suggest(context.Background(), "connaught", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.suggestCalls.Load(), "limit is part of the key")
}

func TestResolver_EmptySuggestionsNotCached(t *testing.T) {
	p := &fakeProvider{suggestions: []domain.Suggestion{}}
	r, _ := newTestResolver(p, Options{})

	for range 2 {
		s, err := r.Suggest(context.Background(), "zzzz", 5)
		require.NoError(t, err)
		assert.Empty(t, s)
	}
	assert.Equal(t, int32(2), p.suggestCalls.Load())
}
