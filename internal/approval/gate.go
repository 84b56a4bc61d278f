// ABOUTME: Synchronization gate suspending workflow progress until a human decision
// ABOUTME: Approval identity is an opaque id assigned at creation, never payload-derived

package approval

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Gate errors
var (
	// ErrUnknownRequest means no approval request exists with the given id.
	ErrUnknownRequest = errors.New("unknown approval request")

	// ErrAlreadyResolved means the request has already received its decision.
	ErrAlreadyResolved = errors.New("approval request already resolved")
)

// Status of an approval request. Once approved or rejected it never changes.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is one pending or resolved approval. Two requests carrying
// equal-valued payloads still receive distinct ids: identity is by id only.
type Request struct {
	ID        string
	SessionID string
	Payload   json.RawMessage
	Status    Status
	CreatedAt time.Time
	DecidedAt *time.Time
}

// entry pairs the request record with its wakeup channel.
type entry struct {
	req  Request
	done chan struct{}
}

// Gate tracks approval requests and wakes waiters when decisions arrive.
// The wait is deliberately unbounded: a workflow suspended on a human
// decision stays suspended until the decision is recorded or the owning
// session is torn down.
type Gate struct {
	mu       sync.Mutex
	requests map[string]*entry
	logger   *slog.Logger
}

// NewGate creates an empty gate. Pass nil logger for default.
func NewGate(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		requests: make(map[string]*entry),
		logger:   logger.With("component", "approval-gate"),
	}
}

// Create registers a new pending approval request for the payload and
// returns a snapshot of it.
func (g *Gate) Create(sessionID string, payload json.RawMessage) Request {
	e := &entry{
		req: Request{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Payload:   payload,
			Status:    StatusPending,
			CreatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}

	g.mu.Lock()
	g.requests[e.req.ID] = e
	g.mu.Unlock()

	g.logger.Debug("approval requested",
		"request_id", e.req.ID,
		"session_id", sessionID,
	)
	return e.req
}

// Resolve records the decision for a pending request and wakes its waiter.
// Fails with ErrUnknownRequest for an unknown id and ErrAlreadyResolved if a
// decision was already recorded; neither corrupts existing approval state.
func (g *Gate) Resolve(requestID string, approved bool) (Request, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.requests[requestID]
	if !ok {
		return Request{}, ErrUnknownRequest
	}
	if e.req.Status != StatusPending {
		return Request{}, ErrAlreadyResolved
	}

	now := time.Now()
	e.req.DecidedAt = &now
	if approved {
		e.req.Status = StatusApproved
	} else {
		e.req.Status = StatusRejected
	}
	close(e.done)

	g.logger.Info("approval resolved",
		"request_id", requestID,
		"session_id", e.req.SessionID,
		"status", e.req.Status,
	)
	return e.req, nil
}

// Wait blocks until the request is resolved or ctx is cancelled, and returns
// the final status. Cancellation covers session teardown only; there is no
// decision timeout.
func (g *Gate) Wait(ctx context.Context, requestID string) (Status, error) {
	g.mu.Lock()
	e, ok := g.requests[requestID]
	g.mu.Unlock()
	if !ok {
		return "", ErrUnknownRequest
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return e.req.Status, nil
}

// Get returns a snapshot of the request with the given id.
func (g *Gate) Get(requestID string) (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.requests[requestID]
	if !ok {
		return Request{}, false
	}
	return e.req, true
}

// DropSession removes all requests owned by a session. Called on teardown so
// resolved and abandoned requests do not accumulate across session lifetimes.
func (g *Gate) DropSession(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, e := range g.requests {
		if e.req.SessionID == sessionID {
			delete(g.requests, id)
		}
	}
}
