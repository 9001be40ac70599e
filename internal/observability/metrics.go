package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeTimeout  = "timeout"
	OutcomeCacheHit = "cache_hit"
	OutcomeSkipped  = "skipped"
)

// Metrics contains all Prometheus metrics for the literature search service.
// Metrics are organized by subsystem: searches, providers and the provider
// cache. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// SearchesStarted counts aggregated searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts aggregated searches that produced a result.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts aggregated searches rejected or aborted.
	SearchesFailed prometheus.Counter

	// SearchDuration observes end-to-end search duration in seconds.
	SearchDuration prometheus.Histogram

	// ResultsReturned observes the number of records in each final result.
	ResultsReturned prometheus.Histogram

	// DuplicatesRemoved counts records dropped by deduplication.
	DuplicatesRemoved prometheus.Counter

	// ProviderRequests counts provider tasks, labeled by provider and outcome.
	ProviderRequests *prometheus.CounterVec

	// ProviderDuration observes provider task duration in seconds, labeled by provider.
	ProviderDuration *prometheus.HistogramVec

	// RecordsPerProvider observes records returned per provider task, labeled by provider.
	RecordsPerProvider *prometheus.HistogramVec

	// ProviderRateLimited counts rate-limited provider responses, labeled by provider.
	ProviderRateLimited *prometheus.CounterVec

	// CacheHits counts provider cache hits, labeled by provider.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts provider cache misses, labeled by provider.
	CacheMisses *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance registered with reg.
func NewMetricsWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Searches
		SearchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of aggregated searches started",
		}),
		SearchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of aggregated searches completed",
		}),
		SearchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of aggregated searches that failed",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of aggregated searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}),
		ResultsReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "results_returned",
			Help:      "Number of records returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		DuplicatesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Total number of records removed as duplicates",
		}),

		// Providers
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider tasks by outcome",
		}, []string{"provider", "outcome"}),
		ProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Duration of provider tasks in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"provider"}),
		RecordsPerProvider: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_records",
			Help:      "Number of records returned per provider task",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"provider"}),
		ProviderRateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_rate_limited_total",
			Help:      "Total number of rate-limited provider responses",
		}, []string{"provider"}),

		// Cache
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of provider cache hits",
		}, []string{"provider"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of provider cache misses",
		}, []string{"provider"}),
	}
}

// RecordSearchStarted records that a search has started.
func (m *Metrics) RecordSearchStarted() {
	if m == nil {
		return
	}
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records a completed search.
func (m *Metrics) RecordSearchCompleted(durationSeconds float64, results, duplicates int) {
	if m == nil {
		return
	}
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.ResultsReturned.Observe(float64(results))
	m.DuplicatesRemoved.Add(float64(duplicates))
}

// RecordSearchFailed records that a search has failed.
func (m *Metrics) RecordSearchFailed(durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesFailed.Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordProviderResult records a finished provider task.
func (m *Metrics) RecordProviderResult(provider, outcome string, records int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(durationSeconds)
	m.RecordsPerProvider.WithLabelValues(provider).Observe(float64(records))
}

// RecordProviderRateLimited records a rate limit response from a provider.
func (m *Metrics) RecordProviderRateLimited(provider string) {
	if m == nil {
		return
	}
	m.ProviderRateLimited.WithLabelValues(provider).Inc()
}

// RecordCacheHit records a provider cache hit.
func (m *Metrics) RecordCacheHit(provider string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(provider).Inc()
}

// RecordCacheMiss records a provider cache miss.
func (m *Metrics) RecordCacheMiss(provider string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(provider).Inc()
}
