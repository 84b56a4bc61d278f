// ABOUTME: Session lifecycle and conversation methods for the gateway client
// ABOUTME: Create, inspect, end sessions; send messages, forms, and approval decisions

package client

import (
	"context"
	"net/http"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
)

// Session describes a planning session as reported by the gateway.
type Session struct {
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	CreatedAt string `json:"created_at"`
}

// MessageAck reports whether the gateway accepted a message.
type MessageAck struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
}

// CreateSession opens a new planning session.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession fetches the current state of a session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EndSession terminates a session and releases its resources.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil)
}

// SendMessage posts a user message into a session. messageID is an optional
// client-chosen id used to suppress retried duplicates; pass "" to skip.
func (c *Client) SendMessage(ctx context.Context, sessionID, messageID, content string) (*MessageAck, error) {
	body := map[string]string{"content": content}
	if messageID != "" {
		body["id"] = messageID
	}
	var ack MessageAck
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/messages", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// SubmitForm submits trip parameters gathered from the user.
func (c *Client) SubmitForm(ctx context.Context, sessionID string, sub agui.FormSubmission) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/form", sub, nil)
}

// Approve records a decision on a pending approval request.
func (c *Client) Approve(ctx context.Context, sessionID, requestID string, approved bool) error {
	body := map[string]any{"request_id": requestID, "approved": approved}
	return c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/approval", body, nil)
}
