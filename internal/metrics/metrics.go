package metrics

import (
	"net/http"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ricardo"

// Metrics exports the outcome of every processed year to Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	years        *prometheus.CounterVec
	yearDuration *prometheus.HistogramVec
	flows        *prometheus.CounterVec
	nodes        *prometheus.CounterVec
	unresolved   prometheus.Histogram
}

// New registers the collectors on a fresh registry, together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		// Labels: phase (build, resolve), outcome (ok, failed)
		years: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "years",
			Name:      "processed_total",
			Help:      "Years processed per phase and outcome",
		}, []string{"phase", "outcome"}),
		yearDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "years",
			Name:      "duration_seconds",
			Help:      "Time spent on one year per phase",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"phase"}),
		flows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flows",
			Name:      "resolved_total",
			Help:      "Trade flows of resolved years by status",
		}, []string{"status"}),
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "built_total",
			Help:      "Nodes of built years by entity type",
		}, []string{"type"}),
		unresolved: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flows",
			Name:      "unresolved_per_year",
			Help:      "Trade flows left unresolved in one year",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// Gatherer exposes the registry, for handlers and tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) YearBuilt(stats tradegraph.Stats, took time.Duration) {
	m.years.WithLabelValues("build", "ok").Inc()
	m.yearDuration.WithLabelValues("build").Observe(took.Seconds())
	for t, n := range stats.Nodes {
		m.nodes.WithLabelValues(string(t)).Add(float64(n))
	}
}

func (m *Metrics) YearResolved(stats tradegraph.Stats, took time.Duration) {
	m.years.WithLabelValues("resolve", "ok").Inc()
	m.yearDuration.WithLabelValues("resolve").Observe(took.Seconds())
	for status, n := range stats.EdgeStatus {
		label := string(status)
		if label == "" {
			label = "none"
		}
		m.flows.WithLabelValues(label).Add(float64(n))
	}
	m.unresolved.Observe(float64(stats.Unresolved()))
}

// YearFailed counts a failure of phase. Row and build failures both count
// as build failures.
func (m *Metrics) YearFailed(_ int, phase string, _ error) {
	label := "build"
	if phase == "split" {
		label = "resolve"
	}
	m.years.WithLabelValues(label, "failed").Inc()
}

var _ tradegraph.Observer = (*Metrics)(nil)
