package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for ingestion and reconciliation.
type Metrics struct {
	IngestionsTotal   *prometheus.CounterVec
	EntriesParsed     prometheus.Counter
	EntriesSkipped    prometheus.Counter
	BooksPersisted    *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
	RecordsExported   prometheus.Counter
}

// NewMetrics constructs the pipeline collectors and registers them on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		IngestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelfsync_ingestions_total",
				Help: "Ingestion attempts by outcome.",
			},
			[]string{"outcome"},
		),
		EntriesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfsync_feed_entries_parsed_total",
			Help: "Feed entries normalized into books.",
		}),
		EntriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfsync_feed_entries_skipped_total",
			Help: "Feed entries skipped after a parse failure.",
		}),
		BooksPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelfsync_books_persisted_total",
				Help: "Catalog rows written during reconciliation.",
			},
			[]string{"action"},
		),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfsync_reconcile_duration_seconds",
			Help:    "Time spent reconciling one snapshot.",
			Buckets: prometheus.DefBuckets,
		}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfsync_records_exported_total",
			Help: "Reading records written by library exports.",
		}),
	}

	if registry != nil {
		registry.MustRegister(
			m.IngestionsTotal,
			m.EntriesParsed,
			m.EntriesSkipped,
			m.BooksPersisted,
			m.ReconcileDuration,
			m.RecordsExported,
		)
	}
	return m
}

func (m *Metrics) incIngestion(outcome string) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addEntries(parsed, skipped int) {
	if m == nil {
		return
	}
	m.EntriesParsed.Add(float64(parsed))
	m.EntriesSkipped.Add(float64(skipped))
}

func (m *Metrics) addBooks(created, updated int) {
	if m == nil {
		return
	}
	m.BooksPersisted.WithLabelValues("created").Add(float64(created))
	m.BooksPersisted.WithLabelValues("updated").Add(float64(updated))
}

func (m *Metrics) observeReconcile(d time.Duration) {
	if m == nil {
		return
	}
	m.ReconcileDuration.Observe(d.Seconds())
}

func (m *Metrics) addExported(n int) {
	if m == nil {
		return
	}
	m.RecordsExported.Add(float64(n))
}
