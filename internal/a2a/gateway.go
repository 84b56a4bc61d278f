// ABOUTME: Tool Invocation Gateway dispatching single-flight calls to specialized services
// ABOUTME: Enforces at-most-one outstanding call per session and bounded response waits

package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/registry"
)

// Gateway errors
var (
	// ErrConcurrencyViolation means a second call was attempted while one
	// is outstanding for the same session.
	ErrConcurrencyViolation = errors.New("tool call already in flight for session")

	// ErrUnknownAgent means the target name does not resolve in the registry.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrAgentTimeout means no response arrived within the bounded wait.
	ErrAgentTimeout = errors.New("agent call timed out")

	// ErrAgentRejected means the service answered with success=false.
	ErrAgentRejected = errors.New("agent rejected task")
)

// DefaultTimeout bounds the wait for a specialized service's response.
const DefaultTimeout = 30 * time.Second

// Gateway sends task requests to specialized services over the inter-service
// protocol. It tracks the outstanding request per session and refuses a second
// call before the first has its terminal result recorded.
type Gateway struct {
	registry *registry.Registry
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*ToolCallRequest // sessionID -> outstanding request
}

// NewGateway creates a gateway over the given registry. A zero timeout uses
// DefaultTimeout. Pass nil logger for default.
func NewGateway(reg *registry.Registry, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		registry: reg,
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger.With("component", "a2a-gateway"),
		inflight: make(map[string]*ToolCallRequest),
	}
}

// Outstanding reports whether the session has an unresolved request.
func (g *Gateway) Outstanding(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[sessionID]
	return ok
}

// Invoke sends one task to the named agent and blocks until a single response
// arrives or the bounded wait elapses. The call is at-most-once: no retry is
// performed on timeout or failure.
//
// Preconditions: the session must have no outstanding request
// (ErrConcurrencyViolation) and agentName must resolve (ErrUnknownAgent).
// Once a request is dispatched, exactly one ToolCallResult is recorded and
// returned, even on failure; the error value classifies the failure.
func (g *Gateway) Invoke(ctx context.Context, sessionID, agentName, task string, params map[string]any) (*ToolCallResult, error) {
	desc, err := g.registry.Resolve(agentName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agentName)
	}

	req := &ToolCallRequest{
		ID:         uuid.New().String(),
		AgentName:  agentName,
		Task:       task,
		Parameters: params,
		CreatedAt:  time.Now(),
	}

	if err := g.begin(sessionID, req); err != nil {
		return nil, err
	}
	defer g.finish(sessionID, req.ID)

	g.logger.Debug("dispatching tool call",
		"session_id", sessionID,
		"request_id", req.ID,
		"agent", agentName,
	)

	resp, err := g.send(ctx, desc.Endpoint, req)
	if err != nil {
		result := failedResult(req.ID, err)
		if errors.Is(err, context.DeadlineExceeded) {
			result.Err = "no response within timeout"
			return result, fmt.Errorf("%w: %s after %s", ErrAgentTimeout, agentName, g.timeout)
		}
		return result, fmt.Errorf("calling %s: %w", agentName, err)
	}

	if !resp.Success {
		result := &ToolCallResult{
			RequestID:   req.ID,
			Success:     false,
			Err:         resp.Error,
			CompletedAt: time.Now(),
		}
		return result, fmt.Errorf("%w: %s: %s", ErrAgentRejected, agentName, resp.Error)
	}

	return &ToolCallResult{
		RequestID:   req.ID,
		Success:     true,
		Raw:         resp.Data,
		CompletedAt: time.Now(),
	}, nil
}

// begin records the request as the session's outstanding call.
func (g *Gateway) begin(sessionID string, req *ToolCallRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.inflight[sessionID]; ok {
		return fmt.Errorf("%w: request %s to %s still pending",
			ErrConcurrencyViolation, existing.ID, existing.AgentName)
	}
	g.inflight[sessionID] = req
	return nil
}

// finish clears the outstanding slot if it still belongs to this request.
func (g *Gateway) finish(sessionID, requestID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.inflight[sessionID]; ok && existing.ID == requestID {
		delete(g.inflight, sessionID)
	}
}

// send performs the HTTP exchange with the bounded wait applied.
func (g *Gateway) send(ctx context.Context, endpoint string, req *ToolCallRequest) (*TaskResponse, error) {
	envelope := TaskRequest{
		ID:         req.ID,
		Timestamp:  req.CreatedAt,
		AgentName:  req.AgentName,
		Task:       req.Task,
		Parameters: req.Parameters,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint+InvokePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		// Surface the deadline so callers can classify as timeout
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned status %d", httpResp.StatusCode)
	}

	var resp TaskResponse
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, 4<<20)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

func failedResult(requestID string, err error) *ToolCallResult {
	return &ToolCallResult{
		RequestID:   requestID,
		Success:     false,
		Err:         err.Error(),
		CompletedAt: time.Now(),
	}
}

// FetchCard retrieves the capability card from a service endpoint.
// Implements registry.CardFetcher.
func (g *Gateway) FetchCard(ctx context.Context, endpoint string) (*registry.Card, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+CardPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card endpoint returned status %d", resp.StatusCode)
	}

	var card registry.Card
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&card); err != nil {
		return nil, fmt.Errorf("decoding card: %w", err)
	}
	return &card, nil
}
