// Package telemetry holds the prometheus collectors and the otel tracer used
// by the orchestrator. Every method is safe to call on a nil *Metrics.
package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/mategen/internal/provider"
)

const namespace = "mategen"

// RegistryServiceName is the service key of the *prometheus.Registry the
// collectors are registered on.
const RegistryServiceName = "telemetry.registry"

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeTransient = "transient"
	OutcomeError     = "error"
)

// Metrics groups the mategen collectors.
type Metrics struct {
	modelCalls    *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec
	tokens        *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	retries       *prometheus.CounterVec
	debugEpisodes *prometheus.CounterVec
	reviews       *prometheus.CounterVec
	evictions     prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered (useful in tests).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Chat-completion calls by model and outcome.",
		}, []string{"model", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Chat-completion latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by the model API.",
		}, []string{"model", "kind"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Transient model failures by recovery strategy.",
		}, []string{"strategy"}),
		debugEpisodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debug_episodes_total",
			Help:      "Automated debug episodes by depth (fast or deep).",
		}, []string{"mode"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_total",
			Help:      "Human checkpoint decisions by checkpoint and decision.",
		}, []string{"checkpoint", "decision"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_evictions_total",
			Help:      "Messages evicted from conversation history under budget pressure.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var errs []error
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return m, errors.Join(errs...)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.modelCalls, m.modelLatency, m.tokens, m.toolCalls,
		m.retries, m.debugEpisodes, m.reviews, m.evictions,
	}
}

// ObserveModelCall records one chat-completion call.
func (m *Metrics) ObserveModelCall(model string, d time.Duration, usage provider.TokenUsage, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	switch {
	case err == nil:
	case provider.IsTransient(err):
		outcome = OutcomeTransient
	default:
		outcome = OutcomeError
	}
	m.modelCalls.WithLabelValues(model, outcome).Inc()
	m.modelLatency.WithLabelValues(model).Observe(d.Seconds())
	if err == nil {
		m.tokens.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
		m.tokens.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	}
}

// ToolCall records one tool invocation.
func (m *Metrics) ToolCall(tool string, failed bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// Retry records a transient failure handled with strategy.
func (m *Metrics) Retry(strategy string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(strategy).Inc()
}

// DebugEpisode records the start of a debug episode.
func (m *Metrics) DebugEpisode(mode string) {
	if m == nil {
		return
	}
	m.debugEpisodes.WithLabelValues(mode).Inc()
}

// Review records a human checkpoint decision.
func (m *Metrics) Review(checkpoint, decision string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(checkpoint, decision).Inc()
}

// Evicted records n evicted history messages.
func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n))
}
