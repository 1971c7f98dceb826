package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetcher. The registry is
// shared with the pipeline collectors.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseBytes   prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all fetch metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfsync_fetch_requests_total",
			Help: "Total HTTP requests issued by the fetcher.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfsync_fetch_duration_seconds",
			Help:    "HTTP request latency for profile and feed fetches.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	responseBytes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfsync_fetch_response_bytes",
			Help:    "Size of fetched documents.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfsync_fetch_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"phase", "error_type"},
	)

	registry.MustRegister(requests, requestDuration, responseBytes, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ResponseBytes:   responseBytes,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveBytes records the size of a fetched document.
func (m *Metrics) ObserveBytes(n int) {
	if m == nil {
		return
	}
	m.ResponseBytes.Observe(float64(n))
}

// IncError increments the errors counter for a phase and type label.
func (m *Metrics) IncError(phase, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(phase, errorType).Inc()
}
