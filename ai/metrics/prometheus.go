// Package metrics provides Prometheus metrics export for the orchestration
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports orchestration metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	dispatchLatency *prometheus.HistogramVec
	dispatches      *prometheus.CounterVec
	agentErrors     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec

	routingDecisions *prometheus.CounterVec
	routingErrors    prometheus.Counter
	intentMatches    *prometheus.CounterVec

	activeStreams prometheus.Gauge
	budgetAlerts  *prometheus.CounterVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns the default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates a metrics exporter with its own registry unless one is
// provided.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.dispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ngx",
			Subsystem: "agents",
			Name:      "dispatch_latency_seconds",
			Help:      "Agent dispatch latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"agent", "mode"},
	)
	e.dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngx",
			Subsystem: "agents",
			Name:      "dispatches_total",
			Help:      "Total agent dispatches",
		},
		[]string{"agent", "status"},
	)
	e.agentErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngx",
			Subsystem: "agents",
			Name:      "agent_errors_total",
			Help:      "Total agent dispatch errors",
		},
		[]string{"agent", "error_type"},
	)
	e.tokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngx",
			Subsystem: "agents",
			Name:      "tokens_total",
			Help:      "Total LLM tokens consumed per agent",
		},
		[]string{"agent"},
	)
	e.routingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngx",
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Total routing decisions by coordination mode",
		},
		[]string{"mode"},
	)
	e.routingErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ngx",
			Subsystem: "routing",
			Name:      "errors_total",
			Help:      "Total requests with no routable agents",
		},
	)
	e.intentMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngx",
			Subsystem: "intent",
			Name:      "classifications_total",
			Help:      "Total intent classifications",
		},
		[]string{"intent", "method"},
	)
	e.activeStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ngx",
			Subsystem: "agents",
			Name:      "active_streams",
			Help:      "Number of in-flight orchestrated streams",
		},
	)
	e.budgetAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngx",
			Subsystem: "budget",
			Name:      "alerts_total",
			Help:      "Total budget threshold alerts",
		},
		[]string{"agent"},
	)

	registry.MustRegister(
		e.dispatchLatency,
		e.dispatches,
		e.agentErrors,
		e.tokensUsed,
		e.routingDecisions,
		e.routingErrors,
		e.intentMatches,
		e.activeStreams,
		e.budgetAlerts,
	)
	return e
}

// RecordDispatch records one agent dispatch.
func (e *Exporter) RecordDispatch(agent, mode string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.dispatches.WithLabelValues(agent, status).Inc()
	e.dispatchLatency.WithLabelValues(agent, mode).Observe(latency.Seconds())
}

// RecordAgentError records an isolated agent failure.
func (e *Exporter) RecordAgentError(agent, errorType string) {
	e.agentErrors.WithLabelValues(agent, errorType).Inc()
}

// RecordTokens records tokens consumed by an agent.
func (e *Exporter) RecordTokens(agent string, count int) {
	e.tokensUsed.WithLabelValues(agent).Add(float64(count))
}

// RecordRoutingDecision records a successful routing decision.
func (e *Exporter) RecordRoutingDecision(mode string) {
	e.routingDecisions.WithLabelValues(mode).Inc()
}

// RecordRoutingError records a request with no routable agents.
func (e *Exporter) RecordRoutingError() {
	e.routingErrors.Inc()
}

// RecordIntent records one intent classification.
func (e *Exporter) RecordIntent(intent, method string) {
	e.intentMatches.WithLabelValues(intent, method).Inc()
}

// StreamStarted increments the active stream gauge.
func (e *Exporter) StreamStarted() {
	e.activeStreams.Inc()
}

// StreamFinished decrements the active stream gauge.
func (e *Exporter) StreamFinished() {
	e.activeStreams.Dec()
}

// RecordBudgetAlert records a budget threshold alert.
func (e *Exporter) RecordBudgetAlert(agent string) {
	e.budgetAlerts.WithLabelValues(agent).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
