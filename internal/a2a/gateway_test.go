// ABOUTME: Tests for the tool invocation gateway and its protocol exchange
// ABOUTME: Covers single-flight enforcement, timeouts, rejection, and card fetch

package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/registry"
)

// newTestService returns a httptest server answering the invoke path with the
// given handler and a registry containing it under the given name.
func newTestService(t *testing.T, name string, handler http.HandlerFunc) (*httptest.Server, *registry.Registry) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	reg, err := registry.New([]registry.Entry{
		{Name: name, Endpoint: srv.URL, Description: "test service"},
	})
	require.NoError(t, err)
	return srv, reg
}

func respond(w http.ResponseWriter, resp TaskResponse) {
	resp.Timestamp = time.Now()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestInvoke_Success(t *testing.T) {
	var gotReq TaskRequest
	_, reg := newTestService(t, "itinerary", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, InvokePath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		respond(w, TaskResponse{
			Success: true,
			Data:    json.RawMessage(`{"destination":"Tokyo","days":3}`),
			Agent:   "itinerary",
		})
	})

	gw := NewGateway(reg, 5*time.Second, nil)

	result, err := gw.Invoke(context.Background(), "sess-1", "itinerary",
		"Create a 3-day itinerary for Tokyo",
		map[string]any{"destination": "Tokyo", "days": 3})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.JSONEq(t, `{"destination":"Tokyo","days":3}`, string(result.Raw))
	assert.Equal(t, gotReq.ID, result.RequestID)
	assert.Equal(t, "itinerary", gotReq.AgentName)
	assert.Equal(t, "Tokyo", gotReq.Parameters["destination"])
	assert.False(t, gw.Outstanding("sess-1"))
}

func TestInvoke_UnknownAgent(t *testing.T) {
	_, reg := newTestService(t, "itinerary", func(w http.ResponseWriter, r *http.Request) {
		respond(w, TaskResponse{Success: true})
	})
	gw := NewGateway(reg, time.Second, nil)

	result, err := gw.Invoke(context.Background(), "sess-1", "ghost", "task", nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestInvoke_ConcurrencyViolation(t *testing.T) {
	release := make(chan struct{})
	_, reg := newTestService(t, "slow", func(w http.ResponseWriter, r *http.Request) {
		<-release
		respond(w, TaskResponse{Success: true, Agent: "slow"})
	})
	gw := NewGateway(reg, 10*time.Second, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := gw.Invoke(context.Background(), "sess-1", "slow", "first", nil)
		assert.NoError(t, err)
	}()

	// Wait for the first call to register as outstanding
	require.Eventually(t, func() bool {
		return gw.Outstanding("sess-1")
	}, 2*time.Second, 5*time.Millisecond)

	_, err := gw.Invoke(context.Background(), "sess-1", "slow", "second", nil)
	assert.ErrorIs(t, err, ErrConcurrencyViolation)

	close(release)
	wg.Wait()
	assert.False(t, gw.Outstanding("sess-1"))
}

func TestInvoke_SessionsDoNotShareFlight(t *testing.T) {
	release := make(chan struct{})
	_, reg := newTestService(t, "slow", func(w http.ResponseWriter, r *http.Request) {
		<-release
		respond(w, TaskResponse{Success: true, Agent: "slow"})
	})
	gw := NewGateway(reg, 10*time.Second, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	for _, sess := range []string{"sess-a", "sess-b"} {
		go func(id string) {
			defer wg.Done()
			_, err := gw.Invoke(context.Background(), id, "slow", "task", nil)
			assert.NoError(t, err)
		}(sess)
	}

	require.Eventually(t, func() bool {
		return gw.Outstanding("sess-a") && gw.Outstanding("sess-b")
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()
}

func TestInvoke_Timeout(t *testing.T) {
	_, reg := newTestService(t, "stuck", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		respond(w, TaskResponse{Success: true})
	})
	gw := NewGateway(reg, 50*time.Millisecond, nil)

	result, err := gw.Invoke(context.Background(), "sess-1", "stuck", "task", nil)
	assert.ErrorIs(t, err, ErrAgentTimeout)

	// A failed result is still recorded, and the flight slot is freed
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Err)
	assert.False(t, gw.Outstanding("sess-1"))
}

func TestInvoke_CallerCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	_, reg := newTestService(t, "stuck", func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	gw := NewGateway(reg, 10*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		result *ToolCallResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := gw.Invoke(ctx, "sess-1", "stuck", "task", nil)
		done <- outcome{result, err}
	}()

	require.Eventually(t, func() bool {
		return gw.Outstanding("sess-1")
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	var got outcome
	select {
	case got = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Invoke did not return after cancellation")
	}

	require.Error(t, got.err)
	assert.ErrorIs(t, got.err, context.Canceled)
	assert.NotErrorIs(t, got.err, ErrAgentTimeout)

	// Exactly one terminal result is recorded, and the flight slot is freed
	// so the late response cannot be delivered or resurrect the call.
	require.NotNil(t, got.result)
	assert.False(t, got.result.Success)
	assert.NotEmpty(t, got.result.Err)
	assert.False(t, gw.Outstanding("sess-1"))
}

func TestInvoke_AgentRejected(t *testing.T) {
	_, reg := newTestService(t, "budget", func(w http.ResponseWriter, r *http.Request) {
		respond(w, TaskResponse{Success: false, Error: "unsupported destination", Agent: "budget"})
	})
	gw := NewGateway(reg, time.Second, nil)

	result, err := gw.Invoke(context.Background(), "sess-1", "budget", "task", nil)
	assert.ErrorIs(t, err, ErrAgentRejected)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "unsupported destination", result.Err)
}

func TestInvoke_TransportError(t *testing.T) {
	srv, reg := newTestService(t, "dead", func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // connection refused from here on
	gw := NewGateway(reg, time.Second, nil)

	result, err := gw.Invoke(context.Background(), "sess-1", "dead", "task", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAgentTimeout)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestInvoke_Non200Status(t *testing.T) {
	_, reg := newTestService(t, "broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	gw := NewGateway(reg, time.Second, nil)

	result, err := gw.Invoke(context.Background(), "sess-1", "broken", "task", nil)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestFetchCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, CardPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"weather","description":"forecasts","parameters":{"destination":"string"}}`))
	}))
	defer srv.Close()

	reg, err := registry.New([]registry.Entry{{Name: "weather", Endpoint: srv.URL}})
	require.NoError(t, err)
	gw := NewGateway(reg, time.Second, nil)

	card, err := gw.FetchCard(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "weather", card.Name)
	assert.Equal(t, "forecasts", card.Description)
}
