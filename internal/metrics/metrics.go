// Package metrics exposes Prometheus metrics for the kharcha server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Chat metrics
	ChatTurnsTotal   *prometheus.CounterVec
	ChatTurnDuration prometheus.Histogram

	// Tool metrics
	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec

	// Pending confirmation metrics
	PendingActionsStaged  prometheus.Counter
	PendingActionsExpired prometheus.Counter
}

// New creates and registers all metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ChatTurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_turns_total",
				Help: "Total number of chat turns processed",
			},
			[]string{"status"},
		),
		ChatTurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chat_turn_duration_seconds",
				Help:    "End-to-end duration of chat turns in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		PendingActionsStaged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pending_actions_staged_total",
				Help: "Total number of staged update/delete proposals",
			},
		),
		PendingActionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pending_actions_expired_total",
				Help: "Total number of proposals pruned after expiry",
			},
		),
	}

	registry.MustRegister(
		m.ChatTurnsTotal,
		m.ChatTurnDuration,
		m.ToolExecutionsTotal,
		m.ToolExecutionDuration,
		m.HTTPRequestsTotal,
		m.PendingActionsStaged,
		m.PendingActionsExpired,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
