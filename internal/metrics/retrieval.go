package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pass labels.
const (
	PassFirst    = "first"
	PassRetry    = "retry"
	PassBackfill = "backfill"
)

// Retrieval Prometheus metrics.
var (
	RetrievalPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_passes_total",
			Help:      "Search passes issued by the retrieval engine",
		},
		[]string{"pass"},
	)

	RetrievalPassFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_pass_failures_total",
			Help:      "Search passes that failed and contributed no candidates",
		},
		[]string{"pass", "stage"}, // stage: embed / search
	)

	RetrievalPassHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_pass_hits",
			Help:      "Candidates returned per search pass",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"pass"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Results returned per retrieval request",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

func retrievalCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		RetrievalPassesTotal,
		RetrievalPassFailuresTotal,
		RetrievalPassHits,
		RetrievalResults,
		RetrievalDuration,
	}
}
