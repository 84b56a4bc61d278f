// ABOUTME: HTTP API handlers for sessions, messages, approvals, and SSE events
// ABOUTME: Translates inbound JSON bodies into controller calls per route

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/approval"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/auth"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/orchestrator"
)

// maxBodySize bounds inbound request bodies.
const maxBodySize = 1 << 20

// SendMessageRequest is the JSON request body for POST /api/sessions/{id}/messages.
// ID is an optional client-assigned message id used for retry suppression.
type SendMessageRequest struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
}

// ApprovalDecisionRequest is the JSON request body for POST /api/sessions/{id}/approval.
type ApprovalDecisionRequest struct {
	RequestID string `json:"request_id"`
	Approved  bool   `json:"approved"`
}

// AgentInfoResponse is the JSON response element for GET /api/agents.
type AgentInfoResponse struct {
	Name        string            `json:"name"`
	Endpoint    string            `json:"endpoint"`
	Description string            `json:"description,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// SessionResponse is the JSON response for session creation and lookup.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	CreatedAt string `json:"created_at"`
}

func (g *Gateway) apiRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/agents", g.handleListAgents)
	mux.HandleFunc("POST /api/sessions", g.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", g.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", g.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", g.handleSendMessage)
	mux.HandleFunc("POST /api/sessions/{id}/form", g.handleFormSubmission)
	mux.HandleFunc("POST /api/sessions/{id}/approval", g.handleApprovalDecision)
	mux.HandleFunc("GET /api/sessions/{id}/events", g.handleEvents)
	return mux
}

func (g *Gateway) handleListAgents(w http.ResponseWriter, r *http.Request) {
	descriptors := g.registry.List()
	agents := make([]AgentInfoResponse, len(descriptors))
	for i, d := range descriptors {
		agents[i] = AgentInfoResponse{
			Name:        d.Name,
			Endpoint:    d.Endpoint,
			Description: d.Description,
			Parameters:  d.Parameters,
		}
	}
	g.sendJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (g *Gateway) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := g.controller.CreateSession()
	g.logger.Info("session created",
		"session_id", s.ID,
		"client", auth.FromContext(r.Context()),
	)
	g.sendJSON(w, http.StatusCreated, SessionResponse{
		SessionID: s.ID,
		Stage:     string(s.Stage()),
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (g *Gateway) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := g.controller.Session(r.PathValue("id"))
	if !ok {
		g.sendJSONError(w, http.StatusNotFound, "unknown session")
		return
	}
	g.sendJSON(w, http.StatusOK, SessionResponse{
		SessionID: s.ID,
		Stage:     string(s.Stage()),
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (g *Gateway) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if err := g.controller.EndSession(sessionID); err != nil {
		g.sendJSONError(w, http.StatusNotFound, "unknown session")
		return
	}
	g.hub.DropSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Content == "" {
		g.sendJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	if g.hub.DuplicateMessage(req.ID) {
		g.sendJSON(w, http.StatusOK, map[string]any{"accepted": false, "duplicate": true})
		return
	}

	if err := g.controller.HandleMessage(r.PathValue("id"), req.Content); err != nil {
		g.sendControllerError(w, err)
		return
	}
	g.sendJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (g *Gateway) handleFormSubmission(w http.ResponseWriter, r *http.Request) {
	var sub agui.FormSubmission
	if err := decodeBody(r, &sub); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := g.controller.HandleForm(r.PathValue("id"), sub); err != nil {
		g.sendControllerError(w, err)
		return
	}
	g.sendJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (g *Gateway) handleApprovalDecision(w http.ResponseWriter, r *http.Request) {
	var req ApprovalDecisionRequest
	if err := decodeBody(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RequestID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "request_id is required")
		return
	}

	err := g.controller.HandleApproval(r.PathValue("id"), req.RequestID, req.Approved)
	switch {
	case err == nil:
		g.logger.Info("approval decision recorded",
			"session_id", r.PathValue("id"),
			"request_id", req.RequestID,
			"approved", req.Approved,
			"client", auth.FromContext(r.Context()),
		)
		g.sendJSON(w, http.StatusOK, map[string]any{
			"request_id": req.RequestID,
			"approved":   req.Approved,
		})
	case errors.Is(err, approval.ErrAlreadyResolved):
		g.sendJSONError(w, http.StatusConflict, "approval request already resolved")
	case errors.Is(err, approval.ErrUnknownRequest):
		g.sendJSONError(w, http.StatusNotFound, "unknown approval request")
	case errors.Is(err, orchestrator.ErrWrongSession):
		g.sendJSONError(w, http.StatusForbidden, "approval request belongs to another session")
	default:
		g.sendControllerError(w, err)
	}
}

func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	s, ok := g.controller.Session(sessionID)
	if !ok {
		g.sendJSONError(w, http.StatusNotFound, "unknown session")
		return
	}

	// Replay the conversation so far, then stream live frames.
	g.hub.ServeSSE(w, r, sessionID, s.History)
}

// sendControllerError maps controller errors to HTTP statuses.
func (g *Gateway) sendControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownSession):
		g.sendJSONError(w, http.StatusNotFound, "unknown session")
	case errors.Is(err, orchestrator.ErrSessionBusy):
		g.sendJSONError(w, http.StatusTooManyRequests, "session busy, retry shortly")
	default:
		g.logger.Error("request failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
