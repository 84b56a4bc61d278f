// ABOUTME: HTTP API tests driving the assembled gateway against stub agents
// ABOUTME: Covers session routes, auth, dedupe, and a full SSE workflow pass

package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/a2a"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/auth"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/config"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/orchestrator"
)

// newStubAgents serves all four specialized roles from one test server,
// distinguished by path prefix.
func newStubAgents(t *testing.T) *httptest.Server {
	t.Helper()

	payloads := map[string]map[string]any{
		"itinerary": {
			"destination": "Tokyo",
			"days":        3,
			"itinerary":   []map[string]any{{"day": 1, "title": "Asakusa"}},
		},
		"weather": {
			"destination": "Tokyo",
			"forecast":    []map[string]any{{"day": 1, "condition": "sunny"}},
		},
		"restaurant": {
			"destination": "Tokyo",
			"days":        3,
			"meals":       []map[string]any{{"day": 1, "lunch": "Ramen"}},
		},
		"budget": {
			"totalBudget": 1500,
			"breakdown":   []map[string]any{{"category": "Food", "amount": 450}},
		},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")[0]
		payload, ok := payloads[role]
		if !ok {
			http.NotFound(w, r)
			return
		}
		resp := a2a.TaskResponse{
			Success:   true,
			Agent:     role,
			Timestamp: time.Now(),
		}
		resp.Data, _ = json.Marshal(payload)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testConfig(agentsURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Workflow.AgentTimeout = 5 * time.Second
	cfg.Workflow.ItineraryAgent = "itinerary"
	cfg.Workflow.WeatherAgent = "weather"
	cfg.Workflow.RestaurantAgent = "restaurant"
	cfg.Workflow.BudgetAgent = "budget"
	cfg.Sessions.IdleTimeout = 30 * time.Minute
	for _, role := range []string{"itinerary", "weather", "restaurant", "budget"} {
		cfg.Agents = append(cfg.Agents, config.AgentEntry{
			Name:     role,
			Endpoint: agentsURL + "/" + role,
		})
	}
	return cfg
}

func newTestGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()
	g, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		g.controller.Close()
		g.hub.Close()
	})
	return g
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealthEndpoints(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()
	g := newTestGateway(t, testConfig(agents.URL))

	rec := doJSON(t, g.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, g.Handler(), http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "4 agents")
}

func TestListAgents(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()
	g := newTestGateway(t, testConfig(agents.URL))

	rec := doJSON(t, g.Handler(), http.MethodGet, "/api/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agents []AgentInfoResponse `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Agents, 4)
	assert.Equal(t, "itinerary", resp.Agents[0].Name)
}

func TestSessionLifecycle(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()
	g := newTestGateway(t, testConfig(agents.URL))

	id := createSession(t, g.Handler())

	rec := doJSON(t, g.Handler(), http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "gathering", resp.Stage)

	rec = doJSON(t, g.Handler(), http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, g.Handler(), http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, g.Handler(), http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()
	g := newTestGateway(t, testConfig(agents.URL))
	id := createSession(t, g.Handler())

	t.Run("missing content", func(t *testing.T) {
		rec := doJSON(t, g.Handler(), http.MethodPost, "/api/sessions/"+id+"/messages",
			SendMessageRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := doJSON(t, g.Handler(), http.MethodPost, "/api/sessions/nope/messages",
			SendMessageRequest{Content: "hi"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("accepted", func(t *testing.T) {
		rec := doJSON(t, g.Handler(), http.MethodPost, "/api/sessions/"+id+"/messages",
			SendMessageRequest{ID: "msg-1", Content: "plan me a trip"})
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("client retry suppressed", func(t *testing.T) {
		rec := doJSON(t, g.Handler(), http.MethodPost, "/api/sessions/"+id+"/messages",
			SendMessageRequest{ID: "msg-1", Content: "plan me a trip"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"duplicate":true`)
	})
}

func TestApprovalDecision_Errors(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()
	g := newTestGateway(t, testConfig(agents.URL))
	id := createSession(t, g.Handler())

	rec := doJSON(t, g.Handler(), http.MethodPost, "/api/sessions/"+id+"/approval",
		ApprovalDecisionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g.Handler(), http.MethodPost, "/api/sessions/"+id+"/approval",
		ApprovalDecisionRequest{RequestID: "ghost", Approved: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestFullWorkflowOverHTTP drives a complete planning pass through the real
// HTTP surface: form submission, SSE consumption, approval, summary.
func TestFullWorkflowOverHTTP(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()
	g := newTestGateway(t, testConfig(agents.URL))

	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	id := createSession(t, g.Handler())

	// Attach to the event stream before kicking off the workflow.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/"+id+"/events", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	form := agui.FormSubmission{
		Destination: "Tokyo",
		Days:        3,
		PartySize:   2,
		BudgetTier:  orchestrator.TierComfort,
	}
	body, _ := json.Marshal(form)
	resp, err := http.Post(srv.URL+"/api/sessions/"+id+"/form", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Scan the SSE stream for the approval request.
	scanner := bufio.NewScanner(stream.Body)
	var approvalID string
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame agui.Frame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			continue
		}
		if frame.Kind == agui.KindApprovalRequest {
			approvalID = frame.ApprovalRequest.ID
			break
		}
	}
	require.NotEmpty(t, approvalID, "no approval request seen on the event stream")

	decision, _ := json.Marshal(ApprovalDecisionRequest{RequestID: approvalID, Approved: true})
	resp, err = http.Post(srv.URL+"/api/sessions/"+id+"/approval", "application/json", bytes.NewReader(decision))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The stream carries the summary, then the session reaches done.
	var sawSummary bool
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame agui.Frame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			continue
		}
		if frame.Kind == agui.KindSummary {
			sawSummary = true
		}
		if frame.Kind == agui.KindStage && frame.Stage == "done" {
			break
		}
	}
	assert.True(t, sawSummary)

	require.Eventually(t, func() bool {
		rec := doJSON(t, g.Handler(), http.MethodGet, "/api/sessions/"+id, nil)
		var sr SessionResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &sr)
		return sr.Stage == "done"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAPIAuthentication(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()

	cfg := testConfig(agents.URL)
	cfg.Auth.JWTSecret = "test-secret"
	g := newTestGateway(t, cfg)

	t.Run("health stays open", func(t *testing.T) {
		rec := doJSON(t, g.Handler(), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api rejects missing token", func(t *testing.T) {
		rec := doJSON(t, g.Handler(), http.MethodGet, "/api/agents", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("api accepts valid token", func(t *testing.T) {
		verifier := auth.NewJWTVerifier([]byte("test-secret"))
		token, err := verifier.Generate("client-1", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		g.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// syncBuffer is a goroutine-safe log sink: the gateway logger is shared with
// background session goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuthenticatedClientAppearsInLogs(t *testing.T) {
	agents := newStubAgents(t)
	defer agents.Close()

	cfg := testConfig(agents.URL)
	cfg.Auth.JWTSecret = "test-secret"

	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	g, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		g.controller.Close()
		g.hub.Close()
	})

	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	token, err := verifier.Generate("client-1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Contains(t, logs.String(), "session created")
	assert.Contains(t, logs.String(), "client=client-1")
}
