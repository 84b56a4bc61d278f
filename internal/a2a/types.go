// ABOUTME: Inter-service protocol envelope types and tool-call records
// ABOUTME: Wire shapes for requests to specialized services and their responses

package a2a

import (
	"encoding/json"
	"time"
)

// Protocol paths every specialized service serves relative to its endpoint.
const (
	// InvokePath is the primary request-handling endpoint.
	InvokePath = "/invoke"
	// CardPath is the optional capability-description endpoint, consumed
	// once by the registry at startup.
	CardPath = "/card"
)

// TaskRequest is the wire envelope sent to a specialized service.
type TaskRequest struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	AgentName  string         `json:"agentName"`
	Task       string         `json:"task"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// TaskResponse is the wire envelope a specialized service answers with.
type TaskResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Agent     string          `json:"agent"`
	Timestamp time.Time       `json:"timestamp"`
}

// ToolCallRequest records one dispatched call. A session has at most one
// ToolCallRequest without a terminal result at any time.
type ToolCallRequest struct {
	ID         string
	AgentName  string
	Task       string
	Parameters map[string]any
	CreatedAt  time.Time
}

// ToolCallResult is the terminal record for a ToolCallRequest. Exactly one
// result exists per request, success or failure.
type ToolCallResult struct {
	RequestID   string
	Success     bool
	Raw         json.RawMessage
	Err         string
	CompletedAt time.Time
}
