// Package metrics provides Prometheus metrics for bridge operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for bridge operations.
type Metrics struct {
	enabled bool

	// Webhook metrics
	webhookRequestsTotal *prometheus.CounterVec
	commandsTotal        *prometheus.CounterVec
	linksIssuedTotal     *prometheus.CounterVec

	// Handoff metrics
	handoffsTotal *prometheus.CounterVec

	// Orchestrator metrics
	orchestratorDuration *prometheus.HistogramVec
}

// New creates and registers Prometheus metrics on the default registerer.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	if !enabled {
		return &Metrics{}
	}
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates metrics registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{enabled: true}

	m.webhookRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_webhook_requests_total",
		Help: "Total inbound webhook requests by outcome",
	}, []string{"outcome"})

	m.commandsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_commands_total",
		Help: "Total dispatched chat commands",
	}, []string{"command", "result"})

	m.linksIssuedTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_links_issued_total",
		Help: "Total bridge links issued",
	}, []string{"region"})

	m.handoffsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_handoffs_total",
		Help: "Total handoff submissions by result",
	}, []string{"result"})

	m.orchestratorDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_orchestrator_request_duration_seconds",
		Help:    "Session Orchestrator call duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	return m
}

// RecordWebhook records one webhook request outcome.
func (m *Metrics) RecordWebhook(outcome string) {
	if m == nil || !m.enabled {
		return
	}
	m.webhookRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordCommand records a dispatched command and whether it replied cleanly.
func (m *Metrics) RecordCommand(command, result string) {
	if m == nil || !m.enabled {
		return
	}
	m.commandsTotal.WithLabelValues(command, result).Inc()
}

// RecordLinkIssued records a bridge link handed out for region.
func (m *Metrics) RecordLinkIssued(region string) {
	if m == nil || !m.enabled {
		return
	}
	m.linksIssuedTotal.WithLabelValues(region).Inc()
}

// RecordHandoff records the result of one handoff submission.
func (m *Metrics) RecordHandoff(result string) {
	if m == nil || !m.enabled {
		return
	}
	m.handoffsTotal.WithLabelValues(result).Inc()
}

// ObserveOrchestrator records the duration of one orchestrator call.
func (m *Metrics) ObserveOrchestrator(result string, durationSeconds float64) {
	if m == nil || !m.enabled {
		return
	}
	m.orchestratorDuration.WithLabelValues(result).Observe(durationSeconds)
}
