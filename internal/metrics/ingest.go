package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion Prometheus metrics.
var (
	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Catalog records processed by the loader",
		},
		[]string{"status"}, // loaded / invalid
	)

	IngestEmbeddingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_embeddings_total",
			Help:      "Items processed by the embedding backfill",
		},
		[]string{"status"}, // embedded / skipped
	)
)

func ingestCollectors() []prometheus.Collector {
	return []prometheus.Collector{IngestRecordsTotal, IngestEmbeddingsTotal}
}
