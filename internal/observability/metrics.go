package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "logistics_locator"

// Metrics holds the Prometheus counters, histograms, and gauges for the locator.
type Metrics struct {
	// Geocoding metrics.
	GeocodeRequests      *prometheus.CounterVec   // labels: method={forward,reverse,suggest}, outcome={success,not_found,error}
	GeocodeCache         *prometheus.CounterVec   // labels: method, result={hit,miss}
	GeocodeCoalesced     *prometheus.CounterVec   // labels: method
	GeocodeAPIDuration   *prometheus.HistogramVec // labels: method
	GeocodeRateLimitWait prometheus.Histogram

	// Proximity search metrics.
	NearbyQueries     *prometheus.CounterVec // labels: mode={scan,index}
	NearbyResults     prometheus.Histogram
	SnapshotRefreshes prometheus.Counter

	SubmissionsPublished *prometheus.CounterVec // labels: outcome={success,error}
	BackfillEntries      *prometheus.CounterVec // labels: outcome (domain.Outcome)
}

func newMetrics() *Metrics {
	return &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeCoalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_coalesced_total",
			Help:      "Lookups answered by a provider call shared with concurrent callers.",
		}, []string{"method"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		GeocodeRateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_rate_limit_wait_seconds",
			Help:      "Time spent waiting on the provider rate limiter.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
		}),
		NearbyQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nearby_queries_total",
			Help:      "Proximity queries by evaluation mode.",
		}, []string{"mode"}),
		NearbyResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "nearby_results",
			Help:      "Number of matches returned per proximity query.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		SnapshotRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_snapshot_refreshes_total",
			Help:      "Directory snapshot reloads from the store.",
		}),
		SubmissionsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_published_total",
			Help:      "Submission events published by outcome.",
		}, []string{"outcome"}),
		BackfillEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_entries_total",
			Help:      "Entries processed by the coordinate backfill, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeCoalesced,
		m.GeocodeAPIDuration,
		m.GeocodeRateLimitWait,
		m.NearbyQueries,
		m.NearbyResults,
		m.SnapshotRefreshes,
		m.SubmissionsPublished,
		m.BackfillEntries,
	}
}

// NewMetrics creates and registers all locator metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
