// Package metrics exposes pipeline counters and gauges for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proximity_agent"

// Metrics groups every collector the agent reports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	snapshots      *prometheus.CounterVec
	newReports     prometheus.Counter
	evaluations    *prometheus.CounterVec
	sinkFailures   prometheus.Counter
	positionFixes  *prometheus.CounterVec
	knownReports   prometheus.Gauge
	alertedReports prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.snapshots = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_total",
		Help:      "Feed snapshots applied, by whether notifications were suppressed",
	}, []string{"suppressed"})
	m.newReports = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "new_reports_total",
		Help:      "Reports that appeared for the first time in a snapshot",
	})
	m.evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Per-report evaluation outcomes",
	}, []string{"outcome"})
	m.sinkFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_failures_total",
		Help:      "Notification requests the sink failed to accept",
	})
	m.positionFixes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "position_fixes_total",
		Help:      "Location fixes by result",
	}, []string{"result"})
	m.knownReports = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "known_reports",
		Help:      "Reports in the latest snapshot",
	})
	m.alertedReports = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "alerted_reports",
		Help:      "Report ids in the alerted set",
	})

	m.registry.MustRegister(
		m.snapshots, m.newReports, m.evaluations, m.sinkFailures,
		m.positionFixes, m.knownReports, m.alertedReports,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SnapshotApplied(known, fresh int, suppressed bool) {
	if m == nil {
		return
	}
	label := "false"
	if suppressed {
		label = "true"
	}
	m.snapshots.WithLabelValues(label).Inc()
	m.newReports.Add(float64(fresh))
	m.knownReports.Set(float64(known))
}

// Evaluated records per-report outcomes of one evaluation batch.
func (m *Metrics) Evaluated(emitted, deferred, outOfRange, skipped, alerted int) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues("emitted").Add(float64(emitted))
	m.evaluations.WithLabelValues("deferred").Add(float64(deferred))
	m.evaluations.WithLabelValues("out_of_range").Add(float64(outOfRange))
	m.evaluations.WithLabelValues("skipped").Add(float64(skipped))
	m.alertedReports.Set(float64(alerted))
}

func (m *Metrics) SinkFailed() {
	if m == nil {
		return
	}
	m.sinkFailures.Inc()
}

// PositionFix records a location fix as "accepted", "filtered" or "error".
func (m *Metrics) PositionFix(result string) {
	if m == nil {
		return
	}
	m.positionFixes.WithLabelValues(result).Inc()
}

func (m *Metrics) AlertedReset() {
	if m == nil {
		return
	}
	m.alertedReports.Set(0)
}
