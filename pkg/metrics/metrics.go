package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed tracks per-record outcomes. The stage label tells
	// where a failed record left the pipeline
	RecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enricher_records_processed_total",
		Help: "Total number of records processed by the enrichment pipeline",
	}, []string{"outcome", "stage"})

	// BatchSize tracks the number of decoded payloads per invocation
	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "enricher_batch_size",
		Help:    "Number of decoded records per batch envelope",
		Buckets: []float64{1, 5, 10, 50, 100, 500},
	})

	// BatchDuration measures how long a whole invocation takes
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "enricher_batch_duration_seconds",
		Help:    "Duration of batch processing in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ResolveDuration measures the relation lookup, the most expensive
	// operation in the pipeline
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "enricher_relation_lookup_duration_seconds",
		Help:    "Duration of business relation lookups in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// PublishDuration measures blocking broker sends per topic
	PublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enricher_publish_duration_seconds",
		Help:    "Duration of broker publishes in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"topic"})

	// HistoryWriteDuration measures audit-trail inserts
	HistoryWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "enricher_history_write_duration_seconds",
		Help:    "Duration of history store writes in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// HealthStatus provides a binary 0/1 signal for the process' health
	HealthStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "enricher_healthy",
		Help: "Current health status of the enricher (1 for healthy, 0 for unhealthy)",
	})
)
