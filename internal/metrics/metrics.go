// ABOUTME: Prometheus metrics for the trip gateway
// ABOUTME: Tracks sessions, agent invocations, approvals, and stage transitions

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the gateway.
type Metrics struct {
	// Session lifecycle
	ActiveSessions prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Agent invocations
	AgentCallsTotal   *prometheus.CounterVec
	AgentCallDuration *prometheus.HistogramVec

	// Approval gate
	ApprovalDecisionsTotal *prometheus.CounterVec
	PendingApprovals       prometheus.Gauge

	// Workflow
	StageTransitionsTotal *prometheus.CounterVec

	// Transport
	DroppedFramesTotal prometheus.Counter
}

// New creates and registers gateway metrics on the given registerer.
//
// Metrics:
//   - tripgw_active_sessions - Current number of live planning sessions
//   - tripgw_sessions_total - Count of sessions created
//   - tripgw_agent_calls_total{agent,outcome} - Count of agent invocations
//   - tripgw_agent_call_duration_seconds{agent} - Histogram of invocation times
//   - tripgw_approval_decisions_total{decision} - Count of approval decisions
//   - tripgw_pending_approvals - Current number of unresolved approval requests
//   - tripgw_stage_transitions_total{stage} - Count of workflow stage entries
//   - tripgw_dropped_frames_total - Count of frames dropped on slow subscribers
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tripgw_active_sessions",
				Help: "Current number of live planning sessions",
			},
		),

		SessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tripgw_sessions_total",
				Help: "Total number of planning sessions created",
			},
		),

		AgentCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgw_agent_calls_total",
				Help: "Total number of specialized agent invocations",
			},
			[]string{"agent", "outcome"}, // outcome: "ok", "timeout", "rejected", "error"
		),

		AgentCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripgw_agent_call_duration_seconds",
				Help:    "Duration of specialized agent invocations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"agent"},
		),

		ApprovalDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgw_approval_decisions_total",
				Help: "Total number of human approval decisions",
			},
			[]string{"decision"}, // "approved" or "rejected"
		),

		PendingApprovals: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tripgw_pending_approvals",
				Help: "Current number of unresolved approval requests",
			},
		),

		StageTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgw_stage_transitions_total",
				Help: "Total number of workflow stage entries",
			},
			[]string{"stage"},
		),

		DroppedFramesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tripgw_dropped_frames_total",
				Help: "Total number of event frames dropped on slow subscribers",
			},
		),
	}
}

// SessionStarted records a new session and bumps the active gauge.
func (m *Metrics) SessionStarted() {
	m.SessionsTotal.Inc()
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// RecordAgentCall records an agent invocation with its outcome and duration.
func (m *Metrics) RecordAgentCall(agent, outcome string, durationSeconds float64) {
	m.AgentCallsTotal.WithLabelValues(agent, outcome).Inc()
	m.AgentCallDuration.WithLabelValues(agent).Observe(durationSeconds)
}

// RecordApprovalDecision records a resolved approval request.
func (m *Metrics) RecordApprovalDecision(decision string) {
	m.ApprovalDecisionsTotal.WithLabelValues(decision).Inc()
	m.PendingApprovals.Dec()
}

// RecordApprovalRequested bumps the pending approval gauge.
func (m *Metrics) RecordApprovalRequested() {
	m.PendingApprovals.Inc()
}

// RecordStageTransition records entry into a workflow stage.
func (m *Metrics) RecordStageTransition(stage string) {
	m.StageTransitionsTotal.WithLabelValues(stage).Inc()
}

// RecordDroppedFrame records a frame dropped because a subscriber fell behind.
func (m *Metrics) RecordDroppedFrame() {
	m.DroppedFramesTotal.Inc()
}
