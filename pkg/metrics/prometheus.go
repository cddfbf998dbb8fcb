// Package metrics provides Prometheus metrics for the LTV batch ranker.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the batch metrics and the registry they live on.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Ingestion
	eventsIngested    *prometheus.CounterVec
	recordsSuperseded prometheus.Counter

	// Ranking
	weekWindow      prometheus.Gauge
	customersScored prometheus.Gauge
	entriesReturned prometheus.Gauge

	// Batch outcome
	batchDuration    prometheus.Histogram
	batchFailures    *prometheus.CounterVec
	lastSuccessUnix  prometheus.Gauge
	lastRunSucceeded prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ltv",
		subsystem:        "batch",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_ingested_total",
		Help:      "Total number of events normalized, by event type",
	}, []string{"type"})

	m.recordsSuperseded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_superseded_total",
		Help:      "Total number of records replaced by a later version of the same key",
	})

	m.weekWindow = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "week_window",
		Help:      "Monday-aligned weeks spanned by ORDER events in the last batch",
	})

	m.customersScored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "customers_scored",
		Help:      "Registered customers that received an LTV in the last batch",
	})

	m.entriesReturned = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entries_returned",
		Help:      "Entries written to the ranking output in the last batch",
	})

	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duration_milliseconds",
		Help:      "Batch run duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.batchFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "failures_total",
		Help:      "Aborted batch runs by error kind",
	}, []string{"kind"})

	m.lastSuccessUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful batch run",
	})

	m.lastRunSucceeded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_run_success",
		Help:      "1 if the last batch run succeeded, 0 otherwise",
	})
}

// RecordEventsIngested adds n events of the given type.
func (m *Manager) RecordEventsIngested(eventType string, n int) {
	m.eventsIngested.WithLabelValues(eventType).Add(float64(n))
}

// RecordRecordsSuperseded adds n records dropped by deduplication.
func (m *Manager) RecordRecordsSuperseded(n int) {
	m.recordsSuperseded.Add(float64(n))
}

// UpdateRanking sets the per-batch ranking gauges.
func (m *Manager) UpdateRanking(weeks, customers, returned int) {
	m.weekWindow.Set(float64(weeks))
	m.customersScored.Set(float64(customers))
	m.entriesReturned.Set(float64(returned))
}

// RecordSuccess marks the batch as finished successfully.
func (m *Manager) RecordSuccess(d time.Duration, at time.Time) {
	m.batchDuration.Observe(float64(d) / float64(time.Millisecond))
	m.lastSuccessUnix.Set(float64(at.Unix()))
	m.lastRunSucceeded.Set(1)
}

// RecordFailure marks the batch as aborted with the given error kind.
func (m *Manager) RecordFailure(kind string, d time.Duration) {
	if kind == "" {
		kind = "other"
	}
	m.batchDuration.Observe(float64(d) / float64(time.Millisecond))
	m.batchFailures.WithLabelValues(kind).Inc()
	m.lastRunSucceeded.Set(0)
}

// WriteTextfile writes all metrics to path in the Prometheus text format used by
// the node exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteMetrics, path, err)
	}
	return nil
}

// Registry returns the registry the manager's metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Default returns the global metrics manager.
func Default() *Manager {
	return globalManager
}
