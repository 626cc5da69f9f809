// Package metrics provides Prometheus-compatible metrics collection for the
// backup run. A run is a short-lived batch job, so metrics are registered on
// a private registry and pushed to a Pushgateway when one is configured.
package metrics

import (
	"context"
	"fmt"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeName turns a service or component name into a valid metric prefix.
func SanitizeName(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}

// PrometheusMetrics implements the Metrics interface using the Prometheus
// client library. All metric names carry the prefix given to New.
type PrometheusMetrics struct {
	prefix string

	// processedTotal tracks operations by status (success/error) and type
	processedTotal *prometheus.CounterVec
	// errorsTotal tracks errors by error type and operation
	errorsTotal *prometheus.CounterVec
	// durationSeconds tracks operation duration; buckets span the
	// 10s-30s retry backoffs and long archive downloads
	durationSeconds *prometheus.HistogramVec
	// fileSizeBytes tracks downloaded file sizes
	fileSizeBytes *prometheus.HistogramVec
	// inProgress tracks operations currently running
	inProgress *prometheus.GaugeVec
}

// New creates a PrometheusMetrics instance and registers its collectors
// with reg.
//
// Registered metrics:
//   - {prefix}_processed_total
//   - {prefix}_errors_total
//   - {prefix}_duration_seconds
//   - {prefix}_file_size_bytes
//   - {prefix}_in_progress
//
// Panics if registration fails (e.g., duplicate metric names).
func New(prefix string, reg prometheus.Registerer) *PrometheusMetrics {
	prefix = SanitizeName(prefix)
	m := &PrometheusMetrics{prefix: prefix}

	m.processedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_total", prefix),
			Help: fmt.Sprintf("Total operations processed by %s", prefix),
		},
		[]string{"status", "type"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_errors_total", prefix),
			Help: fmt.Sprintf("Total errors in %s", prefix),
		},
		[]string{"error_type", "operation"},
	)

	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_duration_seconds", prefix),
			Help:    fmt.Sprintf("Operation duration in %s", prefix),
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"operation"},
	)

	m.fileSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: fmt.Sprintf("%s_file_size_bytes", prefix),
			Help: fmt.Sprintf("File sizes downloaded by %s", prefix),
			Buckets: []float64{
				1024,       // 1KB
				1048576,    // 1MB
				10485760,   // 10MB
				104857600,  // 100MB
				1073741824, // 1GB
				5368709120, // 5GB
			},
		},
		[]string{"file_type"},
	)

	m.inProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_in_progress", prefix),
			Help: fmt.Sprintf("Operations in progress in %s", prefix),
		},
		[]string{"operation"},
	)

	reg.MustRegister(
		m.processedTotal,
		m.errorsTotal,
		m.durationSeconds,
		m.fileSizeBytes,
		m.inProgress,
	)

	return m
}

// RecordSuccess increments the success counter for an operation type.
func (m *PrometheusMetrics) RecordSuccess(operationType string) {
	m.processedTotal.WithLabelValues("success", operationType).Inc()
}

// RecordError increments both the processed counter (status="error") and
// the detailed error counter.
func (m *PrometheusMetrics) RecordError(operationType string, errorType string) {
	m.processedTotal.WithLabelValues("error", operationType).Inc()
	m.errorsTotal.WithLabelValues(errorType, operationType).Inc()
}

// RecordDuration records the duration of an operation in seconds.
func (m *PrometheusMetrics) RecordDuration(operation string, duration float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(duration)
}

// RecordFileSize records the size of a downloaded file in bytes.
func (m *PrometheusMetrics) RecordFileSize(fileType string, bytes int64) {
	m.fileSizeBytes.WithLabelValues(fileType).Observe(float64(bytes))
}

// StartOperation increments the in-progress gauge for an operation.
func (m *PrometheusMetrics) StartOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Inc()
}

// EndOperation decrements the in-progress gauge for an operation.
func (m *PrometheusMetrics) EndOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Dec()
}

// Push sends everything gathered by g to the Pushgateway at url, replacing
// any metrics previously pushed under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer, grouping map[string]string) error {
	pusher := push.New(url, job).Gatherer(g)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
