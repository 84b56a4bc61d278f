// ABOUTME: Tests for the gateway HTTP client against a stubbed server
// ABOUTME: Covers request shapes, error mapping, auth headers, and SSE parsing

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
)

func TestSessionLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Session{SessionID: "s1", Stage: "gathering", CreatedAt: "2026-08-29T10:00:00Z"})
	})
	mux.HandleFunc("GET /api/sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Session{SessionID: "s1", Stage: "budgeting"})
	})
	mux.HandleFunc("DELETE /api/sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	ctx := context.Background()

	s, err := c.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, "gathering", s.Stage)

	s, err = c.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "budgeting", s.Stage)

	require.NoError(t, c.EndSession(ctx, "s1"))
}

func TestSendMessageReportsDuplicates(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		if gotBody["id"] == "m1" {
			json.NewEncoder(w).Encode(MessageAck{Accepted: false, Duplicate: true})
			return
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(MessageAck{Accepted: true})
	}))
	defer server.Close()

	c := New(server.URL)

	ack, err := c.SendMessage(context.Background(), "s1", "", "plan a trip")
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	assert.Equal(t, "plan a trip", gotBody["content"])
	assert.NotContains(t, gotBody, "id")

	ack, err = c.SendMessage(context.Background(), "s1", "m1", "plan a trip")
	require.NoError(t, err)
	assert.False(t, ack.Accepted)
	assert.True(t, ack.Duplicate)
}

func TestErrorResponsesBecomeAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error": "approval request already resolved"}`)
	}))
	defer server.Close()

	err := New(server.URL).Approve(context.Background(), "s1", "req-1", true)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "already resolved")
}

func TestTokenAttachedToRequests(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"agents": []AgentInfo{{Name: "budget-agent"}}})
	}))
	defer server.Close()

	c := New(server.URL, WithToken("tok-123"))
	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "budget-agent", agents[0].Name)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestStreamEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		fmt.Fprint(w, "event: connected\ndata: {\"session_id\": \"s1\"}\n\n")
		fmt.Fprint(w, ": heartbeat\n\n")
		fmt.Fprint(w, "event: stage\ndata: {\"kind\": \"stage\", \"stage\": \"itinerary\"}\n\n")
		fmt.Fprint(w, "event: message\ndata: {\"kind\": \"message\", \"role\": \"assistant\", \"content\": \"Working on it.\"}\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frames, err := New(server.URL).StreamEvents(ctx, "s1")
	require.NoError(t, err)

	var got []agui.Frame
	for frame := range frames {
		got = append(got, frame)
	}
	require.Len(t, got, 2)
	assert.Equal(t, agui.KindStage, got[0].Kind)
	assert.Equal(t, "itinerary", got[0].Stage)
	assert.Equal(t, agui.KindMessage, got[1].Kind)
	assert.Equal(t, "Working on it.", got[1].Content)
}

func TestStreamEventsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "unknown session"}`)
	}))
	defer server.Close()

	_, err := New(server.URL).StreamEvents(context.Background(), "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
