// Package metrics declares the Prometheus collectors exported by telexd.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TelexProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telex_processed_total",
			Help: "Total number of telexes run through the pipeline (count)",
		},
		[]string{"type", "outcome"},
	)

	TelexProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telex_processing_duration_ms",
			Help:    "Pipeline duration per telex in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		},
		[]string{"type"},
	)

	SourceMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telex_source_messages_total",
			Help: "Total number of raw messages received per source (count)",
		},
		[]string{"source", "status"},
	)

	EnrichmentLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_lookups_total",
			Help: "Total number of reference lookups made by the enrichment engine (count)",
		},
		[]string{"table", "result"},
	)

	ReferenceTableSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reference_table_size",
			Help: "Number of codes loaded per local reference table (count)",
		},
		[]string{"table"},
	)

	ArchiveEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_entries",
			Help: "Number of telexes held in the in-memory archive (count)",
		},
	)

	ExportBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_batches_total",
			Help: "Total number of batches flushed to export sinks (count)",
		},
		[]string{"sink", "status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"operation"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of telexes sent to a dead letter queue (count)",
		},
		[]string{"queue", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			TelexProcessedTotal,
			TelexProcessingDuration,
			SourceMessagesTotal,
			EnrichmentLookupsTotal,
			ReferenceTableSize,
			ArchiveEntries,
			ExportBatchesTotal,
			RetryAttemptsTotal,
			DLQMessagesTotal,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
		)
	})
}

func ObserveProcessing(messageType string, outcome string, d time.Duration) {
	TelexProcessedTotal.WithLabelValues(messageType, outcome).Inc()
	TelexProcessingDuration.WithLabelValues(messageType).Observe(float64(d.Microseconds()) / 1000)
}

func SetReferenceTableSize(table string, size int) {
	ReferenceTableSize.WithLabelValues(table).Set(float64(size))
}
