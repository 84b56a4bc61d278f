// ABOUTME: Package documentation for the orchestrator package
// ABOUTME: The workflow state machine driving each planning session

// Package orchestrator owns per-session workflow state and sequencing.
//
// Each session is driven by one goroutine that processes inbound events
// serially and advances the stage machine:
//
//	Gathering → Itinerary → Weather → MealPlanning → Budgeting →
//	ApprovalGate → Summary → Done
//
// with an absorbing Failed state reachable from any non-terminal stage, and
// a rejection loop from ApprovalGate back to Budgeting. Every stage issues
// at most one agent call and records its result before the next stage, so
// the single-flight discipline holds by construction. The wait for a human
// approval decision is unbounded; the wait for an agent response is bounded
// by the invocation gateway's timeout.
//
// Sessions exist only in memory. Tearing one down cancels its context,
// which abandons any suspended wait and discards late agent responses.
package orchestrator
