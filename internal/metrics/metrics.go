// Package metrics provides Prometheus metrics for review latency runs
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// Outcomes recorded in review_latency_revisions_total
const (
	OutcomeComputed  = "computed"
	OutcomeMalformed = "malformed"
)

// Metrics holds all Prometheus metrics for a run. Each instance has its own
// registry so a run's textfile only carries its own series.
type Metrics struct {
	Registry *prometheus.Registry

	RevisionsTotal   *prometheus.CounterVec
	DiagnosticsTotal *prometheus.CounterVec

	FirstReviewSeconds prometheus.Histogram
	PendingSeconds     prometheus.Histogram

	ConduitRequestsTotal   *prometheus.CounterVec
	ConduitRequestDuration *prometheus.HistogramVec

	LastRunTimestamp prometheus.Gauge
}

// Latency buckets from one minute to four weeks
var latencyBuckets = []float64{
	60, 300, 900, 1800, 3600, 2 * 3600, 4 * 3600, 8 * 3600,
	24 * 3600, 2 * 24 * 3600, 4 * 24 * 3600, 7 * 24 * 3600, 14 * 24 * 3600, 28 * 24 * 3600,
}

// NewMetrics creates and registers all metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.RevisionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_latency_revisions_total",
			Help: "Total number of revisions processed",
		},
		[]string{"outcome"},
	)

	m.DiagnosticsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_latency_diagnostics_total",
			Help: "Total number of diagnostics emitted",
		},
		[]string{"kind"},
	)
	for _, kind := range latency.Kinds {
		m.DiagnosticsTotal.WithLabelValues(string(kind))
	}

	m.FirstReviewSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "review_latency_first_review_seconds",
			Help:    "Time from creation to first review, excluding time in exclusion states",
			Buckets: latencyBuckets,
		},
	)

	m.PendingSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "review_latency_pending_seconds",
			Help:    "Time revisions needing review have been waiting",
			Buckets: latencyBuckets,
		},
	)

	m.ConduitRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_latency_conduit_requests_total",
			Help: "Total number of Conduit API requests",
		},
		[]string{"method", "status"},
	)

	m.ConduitRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_latency_conduit_request_duration_seconds",
			Help:    "Duration of Conduit API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "review_latency_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)

	return m
}

// ConduitRequest records one Conduit HTTP attempt
func (m *Metrics) ConduitRequest(method, status string, duration time.Duration) {
	m.ConduitRequestsTotal.WithLabelValues(method, status).Inc()
	m.ConduitRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordResult records one revision's outcome, its latencies and diagnostics
func (m *Metrics) RecordResult(res latency.Result, malformed bool) {
	if malformed {
		m.RevisionsTotal.WithLabelValues(OutcomeMalformed).Inc()
	} else {
		m.RevisionsTotal.WithLabelValues(OutcomeComputed).Inc()
	}

	if res.FirstReviewLatency != nil {
		m.FirstReviewSeconds.Observe(res.FirstReviewLatency.Seconds())
	}
	if res.PendingLatency != nil {
		m.PendingSeconds.Observe(res.PendingLatency.Seconds())
	}
	for _, d := range res.Diagnostics {
		m.DiagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
	}
}

// MarkRun sets the last run timestamp
func (m *Metrics) MarkRun(at time.Time) {
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes every registered series to path in the text
// exposition format, for the node exporter's textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
