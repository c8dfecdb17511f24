// Package metric provides Prometheus metrics for the catalog subsystem:
// validation outcomes, store operations, distribution downloads and query
// latency, plus an HTTP server exposing them.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core catalog metrics.
type Metrics struct {
	ValidationChecks *prometheus.CounterVec
	ValidationIssues *prometheus.CounterVec
	StoreOperations  *prometheus.CounterVec
	Downloads        *prometheus.CounterVec
	DownloadBytes    prometheus.Counter
	QueryDuration    *prometheus.HistogramVec
}

// NewMetrics creates the core metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		ValidationChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcat",
				Subsystem: "validation",
				Name:      "checks_total",
				Help:      "Total number of objects validated against a convention",
			},
			[]string{"convention", "result"},
		),

		ValidationIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcat",
				Subsystem: "validation",
				Name:      "issues_total",
				Help:      "Total number of validation findings by severity",
			},
			[]string{"convention", "severity"},
		),

		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcat",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of store operations",
			},
			[]string{"store", "operation", "status"},
		),

		Downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcat",
				Subsystem: "catalog",
				Name:      "downloads_total",
				Help:      "Total number of distribution downloads by outcome",
			},
			[]string{"status"},
		),

		DownloadBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "semcat",
				Subsystem: "catalog",
				Name:      "download_bytes_total",
				Help:      "Total bytes downloaded for distributions",
			},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "semcat",
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Query execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"store"},
		),
	}
}

// RecordValidation counts one validated object and its findings.
func (m *Metrics) RecordValidation(convention string, errorCount, warningCount int) {
	result := "clean"
	if errorCount > 0 {
		result = "invalid"
	}
	m.ValidationChecks.WithLabelValues(convention, result).Inc()
	if errorCount > 0 {
		m.ValidationIssues.WithLabelValues(convention, "error").Add(float64(errorCount))
	}
	if warningCount > 0 {
		m.ValidationIssues.WithLabelValues(convention, "warning").Add(float64(warningCount))
	}
}

// RecordStoreOperation counts one store operation.
func (m *Metrics) RecordStoreOperation(storeName, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(storeName, operation, status).Inc()
}

// RecordDownload counts one download outcome: "ok", "cached",
// "checksum_mismatch" or "failed".
func (m *Metrics) RecordDownload(status string, bytes int64) {
	m.Downloads.WithLabelValues(status).Inc()
	if bytes > 0 {
		m.DownloadBytes.Add(float64(bytes))
	}
}

// RecordQueryDuration records one query execution.
func (m *Metrics) RecordQueryDuration(storeName string, duration time.Duration) {
	m.QueryDuration.WithLabelValues(storeName).Observe(duration.Seconds())
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ValidationChecks,
		m.ValidationIssues,
		m.StoreOperations,
		m.Downloads,
		m.DownloadBytes,
		m.QueryDuration,
	}
}
