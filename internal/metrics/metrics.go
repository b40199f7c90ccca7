// Package metrics provides Prometheus metrics for the generation and publish
// flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes
const (
	OutcomeArtifact      = "artifact"
	OutcomeNoArtifact    = "no_artifact"
	OutcomeProviderError = "provider_error"
)

// Publish outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	GenerationsTotal    *prometheus.CounterVec
	GenerationsInFlight prometheus.Gauge
	GeneratedTokens     prometheus.Counter

	PublishesTotal    *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec
	HostingCallsTotal *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: reg}

	m.GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_generations_total",
			Help: "Generation turns by outcome",
		},
		[]string{"outcome"},
	)

	m.GenerationsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "appforge_generations_in_flight",
			Help: "Generation turns currently streaming",
		},
	)

	m.GeneratedTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appforge_generated_tokens_total",
			Help: "Text chunks relayed from the model provider",
		},
	)

	m.PublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_publishes_total",
			Help: "Publish attempts by branch and outcome",
		},
		[]string{"branch", "outcome"},
	)

	m.PublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appforge_publish_duration_seconds",
			Help:    "Duration of publish attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"branch"},
	)

	m.HostingCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_hosting_calls_total",
			Help: "Hosting provider calls by step and status",
		},
		[]string{"step", "status"},
	)

	reg.MustRegister(
		m.GenerationsTotal,
		m.GenerationsInFlight,
		m.GeneratedTokens,
		m.PublishesTotal,
		m.PublishDuration,
		m.HostingCallsTotal,
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordGeneration counts a finished turn.
func (m *Metrics) RecordGeneration(outcome string) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(outcome).Inc()
}

// RecordPublish counts a publish attempt and its duration.
func (m *Metrics) RecordPublish(branch, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PublishesTotal.WithLabelValues(branch, outcome).Inc()
	m.PublishDuration.WithLabelValues(branch).Observe(duration.Seconds())
}

// RecordHostingCall counts one call to the hosting provider.
func (m *Metrics) RecordHostingCall(step, status string) {
	if m == nil {
		return
	}
	m.HostingCallsTotal.WithLabelValues(step, status).Inc()
}

// TokenRelayed counts one relayed text chunk.
func (m *Metrics) TokenRelayed() {
	if m == nil {
		return
	}
	m.GeneratedTokens.Inc()
}

// GenerationStarted bumps the in-flight gauge and returns the matching done func.
func (m *Metrics) GenerationStarted() func() {
	if m == nil {
		return func() {}
	}
	m.GenerationsInFlight.Inc()
	return m.GenerationsInFlight.Dec
}
