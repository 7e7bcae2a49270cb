// Package metrics exposes polling and notification counters in Prometheus format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kufarwatch"

// Metrics groups all collectors of the bot. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Summary
	pages         *prometheus.CounterVec
	listings      prometheus.Gauge
	changes       *prometheus.CounterVec
	messages      *prometheus.CounterVec
	snapshotSaves *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Polling cycles by outcome (ok, empty, error).",
	}, []string{"outcome"})
	m.cycleDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a polling cycle.",
	})
	m.pages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_total",
		Help:      "Fetched search pages by status (ok, error).",
	}, []string{"status"})
	m.listings = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "listings",
		Help:      "Listings in the most recent snapshot.",
	})
	m.changes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "changes_total",
		Help:      "Detected listing changes by kind (new, updated).",
	}, []string{"kind"})
	m.messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Notification messages by status (sent, failed).",
	}, []string{"status"})
	m.snapshotSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_saves_total",
		Help:      "Snapshot writes by status (ok, error).",
	}, []string{"status"})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful cycle.",
	})

	m.registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.pages,
		m.listings,
		m.changes,
		m.messages,
		m.snapshotSaves,
		m.lastSuccess,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CycleFinished records one cycle outcome and its duration. Like every method below it is a no-op on a nil *Metrics.
func (m *Metrics) CycleFinished(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(took.Seconds())
	if outcome == "ok" {
		m.lastSuccess.Set(float64(time.Now().Unix()))
	}
}

// PageFetched counts one page request by status
func (m *Metrics) PageFetched(err error) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(status(err, "ok")).Inc()
}

// SnapshotSize sets the number of listings in the latest snapshot
func (m *Metrics) SnapshotSize(n int) {
	if m == nil {
		return
	}
	m.listings.Set(float64(n))
}

// ChangesDetected adds the new and updated counts of a cycle
func (m *Metrics) ChangesDetected(newCount, updatedCount int) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues("new").Add(float64(newCount))
	m.changes.WithLabelValues("updated").Add(float64(updatedCount))
}

// MessageSent counts one notification as sent or failed
func (m *Metrics) MessageSent(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.messages.WithLabelValues("failed").Inc()
		return
	}
	m.messages.WithLabelValues("sent").Inc()
}

// SnapshotSaved counts one snapshot write by status
func (m *Metrics) SnapshotSaved(err error) {
	if m == nil {
		return
	}
	m.snapshotSaves.WithLabelValues(status(err, "ok")).Inc()
}

func status(err error, ok string) string {
	if err != nil {
		return "error"
	}
	return ok
}
