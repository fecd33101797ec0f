package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation and text generation Prometheus metrics.
var (
	RecommendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_requests_total",
			Help:      "Recommendation requests by detected intent",
		},
		[]string{"intent"},
	)

	RecommendFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_fallbacks_total",
			Help:      "Recommendations answered with templated text",
		},
		[]string{"reason"}, // no_results, no_results_price, generator_unavailable, generation_failed, retrieval_failed
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Text generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_request_duration_seconds",
			Help:      "Text generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)
)

func recommendCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		RecommendRequestsTotal,
		RecommendFallbacksTotal,
		GenerationRequestsTotal,
		GenerationRequestDuration,
	}
}
