// Package metrics exposes reconciliation counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names a sub-resolution step of project assembly.
type Stage string

const (
	StageMetadata      Stage = "metadata"
	StageOutputs       Stage = "outputs"
	StageProof         Stage = "proof"
	StageProofValidity Stage = "proof_validity"
	StageToken         Stage = "token"
	StageCertificate   Stage = "certificate"
)

// Pass outcomes.
const (
	OutcomePublished = "published"
	OutcomeStale     = "stale"
	OutcomeFailed    = "failed"
)

// Recorder receives reconciliation events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ResolutionFailed(stage Stage)
	PassFinished(outcome string, elapsed time.Duration, published, dropped int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ResolutionFailed(Stage)                         {}
func (Nop) PassFinished(string, time.Duration, int, int) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Metrics is the Prometheus-backed Recorder.
type Metrics struct {
	registry  *prometheus.Registry
	passes    *prometheus.CounterVec
	duration  prometheus.Histogram
	published prometheus.Gauge
	dropped   prometheus.Counter
	failures  *prometheus.CounterVec
}

// New creates collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cairn",
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Reconciliation passes by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cairn",
			Subsystem: "reconcile",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a reconciliation pass.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		published: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cairn",
			Subsystem: "reconcile",
			Name:      "published_projects",
			Help:      "Projects in the most recently published collection.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cairn",
			Subsystem: "reconcile",
			Name:      "dropped_projects_total",
			Help:      "Projects dropped because their metadata could not be resolved.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cairn",
			Subsystem: "reconcile",
			Name:      "resolution_failures_total",
			Help:      "Failed sub-resolutions by stage.",
		}, []string{"stage"}),
	}
	m.registry.MustRegister(m.passes, m.duration, m.published, m.dropped, m.failures)
	return m
}

// ResolutionFailed counts one failed sub-resolution.
func (m *Metrics) ResolutionFailed(stage Stage) {
	m.failures.WithLabelValues(string(stage)).Inc()
}

// PassFinished records the outcome of a pass. The published gauge only moves
// when a collection was actually published.
func (m *Metrics) PassFinished(outcome string, elapsed time.Duration, published, dropped int) {
	m.passes.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.dropped.Add(float64(dropped))
	if outcome == OutcomePublished {
		m.published.Set(float64(published))
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
