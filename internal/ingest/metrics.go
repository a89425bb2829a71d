package ingest

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineMetrics sync.Once

	linesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushdump",
			Name:      "lines_total",
			Help:      "Number of dump lines read, by record kind",
		},
		[]string{"kind"})
	decodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushdump",
			Name:      "decode_errors_total",
			Help:      "Number of dump lines that failed to decode, by record kind and error kind",
		},
		[]string{"kind", "reason"})
	recordsStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushdump",
			Name:      "records_stored_total",
			Help:      "Number of records newly written to the store, by record kind",
		},
		[]string{"kind"})
	recordsDuplicateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushdump",
			Name:      "records_duplicate_total",
			Help:      "Number of records skipped because their id was already stored, by record kind",
		},
		[]string{"kind"})
	batchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pushdump",
			Name:      "batch_duration_seconds",
			Help:      "Time spent committing one batch to the store, by record kind",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"kind"})
)

// RegisterMetrics registers the pipeline collectors with the default
// registry. It is safe to call more than once.
func RegisterMetrics() {
	pipelineMetrics.Do(func() {
		prometheus.MustRegister(linesTotal)
		prometheus.MustRegister(decodeErrorsTotal)
		prometheus.MustRegister(recordsStoredTotal)
		prometheus.MustRegister(recordsDuplicateTotal)
		prometheus.MustRegister(batchDurationSeconds)
	})
}
