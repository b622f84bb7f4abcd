package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names observed on the latency window and histogram.
const (
	StageIdentify   = "identify"
	StageCapture    = "capture"
	StageDialogue   = "dialogue"
	StageSynthesize = "synthesize"
	StageSummarize  = "summarize"
	StageRecord     = "record"
	StageSession    = "session_total"
)

// Metrics groups all Prometheus instruments used by the kiosk.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	Terminations   *prometheus.CounterVec
	Turns          prometheus.Counter
	ProviderErrors *prometheus.CounterVec
	RecordWrites   *prometheus.CounterVec
	StageLatency   *prometheus.HistogramVec
	PromptTokens   prometheus.Histogram

	stages *stageWindow
}

// NewMetrics registers instruments on the default registry. Call it once per
// process; tests that need isolation use NewMetricsWith.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers instruments on reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of patient sessions currently running.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		Terminations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_terminations_total",
			Help:      "Finished sessions by termination cause.",
		}, []string{"cause"}),
		Turns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed reply-bearing turns.",
		}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		RecordWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_writes_total",
			Help:      "Record store writes by outcome.",
		}, []string{"outcome"}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Latency of each session stage in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 7500, 10000, 30000},
		}, []string{"stage"}),
		PromptTokens: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_tokens",
			Help:      "Estimated prompt size sent to the dialogue model.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
		}),
		stages: newStageWindow(256),
	}
}

// ObserveStage records d on the histogram and the rolling window. A nil
// receiver is a no-op so components can run without metrics.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.stages.Observe(stage, ms)
}

func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
	m.stages.ObserveIndicator(event)
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
	m.SessionEvent("started")
}

func (m *Metrics) SessionEnded(cause string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
	m.Terminations.WithLabelValues(cause).Inc()
	m.SessionEvent("ended")
}

func (m *Metrics) TurnCompleted() {
	if m == nil {
		return
	}
	m.Turns.Inc()
}

func (m *Metrics) ProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) RecordWrite(outcome string) {
	if m == nil {
		return
	}
	m.RecordWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePromptTokens(n int) {
	if m == nil {
		return
	}
	m.PromptTokens.Observe(float64(n))
}

// SnapshotStages returns the rolling per-stage latency summary.
func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return StageSnapshot{GeneratedAt: time.Now().UTC(), Stages: []StageStats{}}
	}
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
