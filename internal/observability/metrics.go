package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the aggregation service.
// Metrics are organized by subsystem: dispatch, providers, enrichment, and
// scoring. All counters and histograms are registered via promauto for
// automatic registration with the default Prometheus registry.
type Metrics struct {
	// DispatchesStarted counts scatter-gather dispatch runs initiated.
	DispatchesStarted prometheus.Counter

	// DispatchesCompleted counts dispatch runs that emitted their terminal event.
	DispatchesCompleted prometheus.Counter

	// DispatchesCancelled counts dispatch runs aborted by the caller.
	DispatchesCancelled prometheus.Counter

	// DispatchDuration observes end-to-end dispatch duration in seconds.
	DispatchDuration prometheus.Histogram

	// ProviderSearches counts provider searches, labeled by provider.
	ProviderSearches *prometheus.CounterVec

	// ProviderFailures counts provider failures, labeled by provider and error kind.
	ProviderFailures *prometheus.CounterVec

	// ProviderTimeouts counts per-provider timeout cancellations, labeled by provider.
	ProviderTimeouts *prometheus.CounterVec

	// ProviderSearchDuration observes per-provider search duration in seconds.
	ProviderSearchDuration *prometheus.HistogramVec

	// RecordsPerProvider observes the distribution of records returned per search.
	RecordsPerProvider *prometheus.HistogramVec

	// EnrichmentBatches counts citation enrichment batch calls.
	EnrichmentBatches prometheus.Counter

	// EnrichmentBatchFailures counts whole-batch enrichment failures.
	EnrichmentBatchFailures prometheus.Counter

	// EnrichmentRecordsMatched counts records that received citation metrics.
	EnrichmentRecordsMatched prometheus.Counter

	// EnrichmentRecordsUnmatched counts records the batch response did not cover.
	EnrichmentRecordsUnmatched prometheus.Counter

	// EnrichmentBatchDuration observes enrichment batch duration in seconds.
	EnrichmentBatchDuration prometheus.Histogram

	// ScoringRequests counts similarity scoring calls.
	ScoringRequests prometheus.Counter

	// ScoringCandidates observes the distribution of candidate list sizes.
	ScoringCandidates prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		DispatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_started_total",
			Help:      "Total number of scatter-gather dispatches started",
		}),
		DispatchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_completed_total",
			Help:      "Total number of dispatches that reached their terminal event",
		}),
		DispatchesCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_cancelled_total",
			Help:      "Total number of dispatches cancelled by the caller",
		}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "End-to-end duration of dispatch runs in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),

		ProviderSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_searches_total",
			Help:      "Total number of provider searches by provider",
		}, []string{"provider"}),
		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Total number of provider failures by provider and error kind",
		}, []string{"provider", "kind"}),
		ProviderTimeouts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_timeouts_total",
			Help:      "Total number of per-provider timeout cancellations",
		}, []string{"provider"}),
		ProviderSearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_search_duration_seconds",
			Help:      "Duration of provider searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		RecordsPerProvider: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_provider",
			Help:      "Number of records returned per provider search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200},
		}, []string{"provider"}),

		EnrichmentBatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_batches_total",
			Help:      "Total number of citation enrichment batch calls",
		}),
		EnrichmentBatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_batch_failures_total",
			Help:      "Total number of whole-batch enrichment failures",
		}),
		EnrichmentRecordsMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_records_matched_total",
			Help:      "Total number of records that received citation metrics",
		}),
		EnrichmentRecordsUnmatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_records_unmatched_total",
			Help:      "Total number of unenriched records the batch response did not cover",
		}),
		EnrichmentBatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_batch_duration_seconds",
			Help:      "Duration of citation enrichment batch calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		ScoringRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_requests_total",
			Help:      "Total number of similarity scoring calls",
		}),
		ScoringCandidates: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_candidates",
			Help:      "Number of candidates per scoring call",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
}
