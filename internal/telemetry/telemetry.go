package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry records pipeline and LLM activity. Metrics are registered on the
// default prometheus registry and exposed by the server at /metrics.
type Telemetry struct {
	llmRequests   *prometheus.CounterVec
	llmFailures   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	refineTurns   prometheus.Counter
	refineRewrite prometheus.Counter
}

// New registers the draftsmith metric set. It must be called at most once per
// process.
func New() *Telemetry {
	t := &Telemetry{
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draftsmith_llm_requests_total",
			Help: "LLM invocations by agent role.",
		}, []string{"agent"}),
		llmFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draftsmith_llm_failures_total",
			Help: "Failed LLM invocations by agent role.",
		}, []string{"agent"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "draftsmith_stage_duration_seconds",
			Help:    "Pipeline stage wall time.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"stage"}),
		refineTurns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draftsmith_refine_turns_total",
			Help: "Refinement turns processed.",
		}),
		refineRewrite: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draftsmith_refine_rewrites_total",
			Help: "Refinement turns that replaced the draft.",
		}),
	}
	prometheus.MustRegister(t.llmRequests, t.llmFailures, t.stageDuration, t.refineTurns, t.refineRewrite)
	return t
}

// RecordLLMRequest counts one invocation for the named agent role.
func (t *Telemetry) RecordLLMRequest(agent string, err error) {
	if t == nil {
		return
	}
	t.llmRequests.WithLabelValues(agent).Inc()
	if err != nil {
		t.llmFailures.WithLabelValues(agent).Inc()
	}
}

// RecordStage observes one completed (or failed) pipeline stage.
func (t *Telemetry) RecordStage(stage string, d time.Duration) {
	if t == nil {
		return
	}
	t.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRefineTurn counts one refinement turn and whether it rewrote the draft.
func (t *Telemetry) RecordRefineTurn(rewrote bool) {
	if t == nil {
		return
	}
	t.refineTurns.Inc()
	if rewrote {
		t.refineRewrite.Inc()
	}
}
