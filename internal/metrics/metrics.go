// Package metrics holds the Prometheus collectors for agent runs, model calls
// and tool dispatches. Each Metrics value owns its registry, so tests and
// concurrent runs never collide on global registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warden"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Agent metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	RunIterations  prometheus.Histogram
	ModelCalls     *prometheus.CounterVec
	ModelDuration  *prometheus.HistogramVec
	TokensConsumed *prometheus.CounterVec

	// Tool metrics
	ToolCallsTotal *prometheus.CounterVec
	ToolDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_runs_total",
				Help:      "Total number of agent runs by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_run_duration_seconds",
				Help:      "Duration of agent runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"provider"},
		),
		RunIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_run_iterations",
				Help:      "Model calls issued per agent run",
				Buckets:   prometheus.LinearBuckets(1, 2, 10),
			},
		),
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_calls_total",
				Help:      "Total number of model calls by provider and status",
			},
			[]string{"provider", "status"},
		),
		ModelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_call_duration_seconds",
				Help:      "Duration of model calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		TokensConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_tokens_total",
				Help:      "Tokens reported by the model service, by direction",
			},
			[]string{"provider", "direction"},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of dispatched tool calls by tool and status",
			},
			[]string{"tool", "status"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of tool calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
	}

	registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunIterations,
		m.ModelCalls,
		m.ModelDuration,
		m.TokensConsumed,
		m.ToolCallsTotal,
		m.ToolDuration,
	)

	return m
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordToolCall observes one dispatched tool call. A nil receiver is a no-op.
func (m *Metrics) RecordToolCall(tool string, duration time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, status(ok)).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordModelCall observes one model round trip.
func (m *Metrics) RecordModelCall(provider string, duration time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(provider, status(ok)).Inc()
	m.ModelDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTokens adds reported token usage.
func (m *Metrics) RecordTokens(provider string, prompt, completion int) {
	if m == nil {
		return
	}
	m.TokensConsumed.WithLabelValues(provider, "prompt").Add(float64(prompt))
	m.TokensConsumed.WithLabelValues(provider, "completion").Add(float64(completion))
}

// RecordRun observes a finished agent run.
func (m *Metrics) RecordRun(provider, outcome string, duration time.Duration, iterations int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(provider, outcome).Inc()
	m.RunDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.RunIterations.Observe(float64(iterations))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
