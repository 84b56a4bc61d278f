// ABOUTME: UI-facing protocol frame types exchanged with conversational front-ends
// ABOUTME: Defines the bidirectional event stream message shapes and frame kinds

package agui

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a frame.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Kind identifies the frame type for SSE event routing.
type Kind string

const (
	KindMessage          Kind = "message"
	KindStage            Kind = "stage"
	KindToolCall         Kind = "tool_call"
	KindToolResult       Kind = "tool_result"
	KindApprovalRequest  Kind = "approval_request"
	KindApprovalDecision Kind = "approval_decision"
	KindFormRequest      Kind = "form_request"
	KindFormSubmission   Kind = "form_submission"
	KindSummary          Kind = "summary"
	KindError            Kind = "error"
)

// Frame is a single message on the UI-facing event stream. Exactly one of the
// optional payload fields is set, matching Kind.
type Frame struct {
	Kind      Kind      `json:"kind"`
	Role      Role      `json:"role"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Stage            string            `json:"stage,omitempty"`
	ToolCall         *ToolCall         `json:"toolCall,omitempty"`
	ToolResult       *ToolResult       `json:"toolResult,omitempty"`
	ApprovalRequest  *ApprovalRequest  `json:"approvalRequest,omitempty"`
	ApprovalDecision *ApprovalDecision `json:"approvalDecision,omitempty"`
	FormRequest      *FormRequest      `json:"formRequest,omitempty"`
	FormSubmission   *FormSubmission   `json:"formSubmission,omitempty"`
	Summary          json.RawMessage   `json:"summary,omitempty"`
}

// ToolCall announces that the controller initiated a specialized-service call.
type ToolCall struct {
	ID         string         `json:"id"`
	AgentName  string         `json:"agentName"`
	Task       string         `json:"task"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ToolResult reports the outcome of a specialized-service call.
type ToolResult struct {
	RequestID string          `json:"requestId"`
	Success   bool            `json:"success"`
	Schema    string          `json:"schema,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ApprovalRequest asks the human for a decision on a pending payload.
type ApprovalRequest struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// ApprovalDecision carries the human's verdict for a pending approval request.
type ApprovalDecision struct {
	RequestID string `json:"requestId"`
	Approved  bool   `json:"approved"`
}

// FormRequest asks the front-end to collect trip parameters, optionally
// pre-filled from values extracted out of the user's message.
type FormRequest struct {
	Destination string `json:"destination,omitempty"`
	Days        int    `json:"days,omitempty"`
	PartySize   int    `json:"partySize,omitempty"`
	BudgetTier  string `json:"budgetTier,omitempty"`
}

// FormSubmission carries the completed trip parameters from the front-end.
type FormSubmission struct {
	Destination string `json:"destination"`
	Days        int    `json:"days"`
	PartySize   int    `json:"partySize"`
	BudgetTier  string `json:"budgetTier"`
}
