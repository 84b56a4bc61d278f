// ABOUTME: Workflow stage enum and the forward-only transition order
// ABOUTME: Stages advance strictly forward except the approval rejection loop

package orchestrator

// Stage is a session's position in the planning workflow. Transitions are
// strictly forward except ApprovalGate, which re-enters Budgeting on a
// rejected decision. Done and Failed are terminal.
type Stage string

const (
	StageGathering    Stage = "gathering"
	StageItinerary    Stage = "itinerary"
	StageWeather      Stage = "weather"
	StageMealPlanning Stage = "meal_planning"
	StageBudgeting    Stage = "budgeting"
	StageApprovalGate Stage = "approval_gate"
	StageSummary      Stage = "summary"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

func (s Stage) String() string { return string(s) }
