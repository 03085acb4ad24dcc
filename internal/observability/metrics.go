// Package observability provides Prometheus metrics (Metrics) and
// OpenTelemetry span helpers (Tracer) for the module's suspension points,
// grounded on nexus's internal/observability/metrics.go and tracing.go.
// internal/execution.Engine reports turns, tool executions, and transport
// publishes through it; the delegation and conversation-persistence helpers
// (RecordDelegation, RecordConversationPersist, TraceDelegationAwait,
// TraceConversationPersist) have no caller in this module, and
// ToolMessageStore I/O and model streaming reads are not instrumented. This package is
// ambient instrumentation: it adds no functional behavior of its own, only
// observes what the rest of the module already does.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics centralizes the Prometheus collectors ExecutionEngine and its
// collaborators report into.
type Metrics struct {
	// TurnCounter counts completed RunTurn calls by agent and outcome
	// (complete|interrupted|error).
	TurnCounter *prometheus.CounterVec

	// TurnDuration measures wall-clock time spent inside RunTurn.
	TurnDuration *prometheus.HistogramVec

	// ToolExecutionCounter counts tool invocations by tool name and
	// outcome (success|error).
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution latency.
	ToolExecutionDuration *prometheus.HistogramVec

	// DelegationCounter counts delegation outcomes by status
	// (complete|timed_out|cancelled).
	DelegationCounter *prometheus.CounterVec

	// DelegationDuration measures time from registration to resolution.
	DelegationDuration *prometheus.HistogramVec

	// TransportPublishCounter counts Transport.Publish calls by event kind
	// and outcome (success|error).
	TransportPublishCounter *prometheus.CounterVec

	// TransportPublishDuration measures Transport.Publish latency.
	TransportPublishDuration *prometheus.HistogramVec

	// ConversationPersistDuration measures ConversationStore persistence
	// write latency.
	ConversationPersistDuration *prometheus.HistogramVec

	// ErrorCounter tracks swarmerr.Kind occurrences by component.
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics builds and registers every collector against Prometheus's
// default registry. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmcore_turns_total",
				Help: "Total number of ExecutionEngine turns by agent and outcome",
			},
			[]string{"agent", "outcome"},
		),
		TurnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarmcore_turn_duration_seconds",
				Help:    "Duration of ExecutionEngine turns in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"agent"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmcore_tool_executions_total",
				Help: "Total number of tool executions by tool name and outcome",
			},
			[]string{"tool_name", "outcome"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarmcore_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),
		DelegationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmcore_delegations_total",
				Help: "Total number of delegations by resolution status",
			},
			[]string{"status"},
		),
		DelegationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarmcore_delegation_duration_seconds",
				Help:    "Time from delegation registration to resolution",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		TransportPublishCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmcore_transport_publish_total",
				Help: "Total number of Transport.Publish calls by event kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		TransportPublishDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarmcore_transport_publish_duration_seconds",
				Help:    "Duration of Transport.Publish calls in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),
		ConversationPersistDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarmcore_conversation_persist_duration_seconds",
				Help:    "Duration of ConversationStore persistence writes in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"conversation_id"},
		),
		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmcore_errors_total",
				Help: "Total number of errors by component and swarmerr kind",
			},
			[]string{"component", "kind"},
		),
	}
}

// RecordTurn records one completed RunTurn.
func (m *Metrics) RecordTurn(agent, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.TurnCounter.WithLabelValues(agent, outcome).Inc()
	m.TurnDuration.WithLabelValues(agent).Observe(durationSeconds)
}

// RecordToolExecution records one tool invocation.
func (m *Metrics) RecordToolExecution(toolName, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, outcome).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordDelegation records one delegation's resolution.
func (m *Metrics) RecordDelegation(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.DelegationCounter.WithLabelValues(status).Inc()
	m.DelegationDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordTransportPublish records one Transport.Publish call.
func (m *Metrics) RecordTransportPublish(kind, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.TransportPublishCounter.WithLabelValues(kind, outcome).Inc()
	m.TransportPublishDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordConversationPersist records one ConversationStore persistence write.
func (m *Metrics) RecordConversationPersist(conversationID string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ConversationPersistDuration.WithLabelValues(conversationID).Observe(durationSeconds)
}

// RecordError records one error by originating component and swarmerr kind.
func (m *Metrics) RecordError(component, kind string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(component, kind).Inc()
}
