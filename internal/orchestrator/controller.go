// ABOUTME: Orchestration controller owning session lifecycle and event routing
// ABOUTME: One driver goroutine per session serializes all workflow progression

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/a2a"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/approval"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/classify"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/metrics"
)

// Controller errors
var (
	// ErrUnknownSession means no live session exists with the given id.
	ErrUnknownSession = errors.New("unknown session")

	// ErrSessionBusy means the session's inbound queue is full.
	ErrSessionBusy = errors.New("session busy")

	// ErrWrongSession means the approval request belongs to another session.
	ErrWrongSession = errors.New("approval request belongs to another session")
)

// eventQueueSize bounds how many inbound events may queue while the driver
// is occupied with a workflow stage.
const eventQueueSize = 16

// Invoker dispatches one task to a specialized service and blocks for its
// single response. Satisfied by *a2a.Gateway.
type Invoker interface {
	Invoke(ctx context.Context, sessionID, agentName, task string, params map[string]any) (*a2a.ToolCallResult, error)
}

// Emitter receives outbound frames for delivery to the session's subscribers.
// Satisfied by *hub.Hub.
type Emitter interface {
	Publish(sessionID string, frame agui.Frame)
}

// StageAgents names which registered agent serves each workflow stage.
type StageAgents struct {
	Itinerary  string
	Weather    string
	Restaurant string
	Budget     string
}

// Controller owns all live sessions and drives each one's workflow on a
// dedicated goroutine. Sessions share nothing but the read-only registry
// behind the invoker.
type Controller struct {
	invoker Invoker
	gate    *approval.Gate
	emitter Emitter
	agents  StageAgents
	metrics *metrics.Metrics
	logger  *slog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// New creates a controller. metrics may be nil; pass nil logger for default.
func New(invoker Invoker, gate *approval.Gate, emitter Emitter, agents StageAgents, m *metrics.Metrics, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		invoker:    invoker,
		gate:       gate,
		emitter:    emitter,
		agents:     agents,
		metrics:    m,
		logger:     logger.With("component", "orchestrator"),
		baseCtx:    ctx,
		cancelBase: cancel,
		sessions:   make(map[string]*Session),
	}
}

// CreateSession starts a new planning session and its driver goroutine.
func (c *Controller) CreateSession() *Session {
	ctx, cancel := context.WithCancel(c.baseCtx)
	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan event, eventQueueSize),
		done:         make(chan struct{}),
		stage:        StageGathering,
		results:      make(map[classify.Tag]map[string]any),
		lastActivity: time.Now(),
	}

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SessionStarted()
	}
	c.logger.Info("session created", "session_id", s.ID)

	c.wg.Add(1)
	go c.drive(s)
	return s
}

// Session returns the live session with the given id.
func (c *Controller) Session(id string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Sessions returns a snapshot of all live sessions.
func (c *Controller) Sessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	return out
}

// IdleSessions returns the ids of sessions with no activity for at least
// the given duration.
func (c *Controller) IdleSessions(olderThan time.Duration) []string {
	cutoff := time.Now().Add(-olderThan)
	var ids []string
	for _, s := range c.Sessions() {
		if s.LastActivity().Before(cutoff) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// HandleMessage routes an inbound user text frame to the session driver.
func (c *Controller) HandleMessage(sessionID, text string) error {
	return c.post(sessionID, messageEvent{text: text})
}

// HandleForm routes a gathering form submission to the session driver.
func (c *Controller) HandleForm(sessionID string, sub agui.FormSubmission) error {
	return c.post(sessionID, formEvent{sub: sub})
}

// HandleApproval records a human decision for a pending approval request.
// The suspended driver wakes from the gate and continues the workflow, so
// decisions bypass the inbound event queue.
func (c *Controller) HandleApproval(sessionID, requestID string, approved bool) error {
	if _, ok := c.Session(sessionID); !ok {
		return ErrUnknownSession
	}

	req, ok := c.gate.Get(requestID)
	if !ok {
		return approval.ErrUnknownRequest
	}
	if req.SessionID != sessionID {
		return ErrWrongSession
	}

	if _, err := c.gate.Resolve(requestID, approved); err != nil {
		return err
	}
	return nil
}

// EndSession tears a session down: the driver context is cancelled, any
// outstanding agent response is discarded, and the session's approval
// requests are dropped.
func (c *Controller) EndSession(sessionID string) error {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if ok {
		delete(c.sessions, sessionID)
	}
	c.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}

	s.cancel()
	c.gate.DropSession(sessionID)

	if c.metrics != nil {
		c.metrics.SessionEnded()
	}
	c.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// Close tears down every session and waits for the drivers to exit.
func (c *Controller) Close() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		_ = c.EndSession(id)
	}
	c.cancelBase()
	c.wg.Wait()
}

// post enqueues an event for the session driver without blocking.
func (c *Controller) post(sessionID string, ev event) error {
	s, ok := c.Session(sessionID)
	if !ok {
		return ErrUnknownSession
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.ctx.Done():
		return ErrUnknownSession
	default:
		return ErrSessionBusy
	}
}

// drive is the session's single logical thread: it processes one inbound
// event at a time and advances the workflow synchronously with respect to
// this session.
func (c *Controller) drive(s *Session) {
	defer c.wg.Done()
	defer close(s.done)

	c.emit(s, agui.Frame{
		Kind:    agui.KindMessage,
		Role:    agui.RoleAssistant,
		Content: "Welcome! Tell me about the trip you want to plan.",
	})
	c.enterStage(s, StageGathering)

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			switch e := ev.(type) {
			case messageEvent:
				c.handleMessage(s, e.text)
			case formEvent:
				c.handleForm(s, e.sub)
			}
		}
	}
}

func (c *Controller) handleMessage(s *Session, text string) {
	c.emit(s, agui.Frame{
		Kind:    agui.KindMessage,
		Role:    agui.RoleUser,
		Content: text,
	})

	stage := s.Stage()
	switch {
	case stage == StageGathering:
		prefill := extractParams(text)
		c.emit(s, agui.Frame{
			Kind:    agui.KindMessage,
			Role:    agui.RoleAssistant,
			Content: "Let's collect your trip details.",
		})
		c.emit(s, agui.Frame{
			Kind:        agui.KindFormRequest,
			Role:        agui.RoleAssistant,
			FormRequest: &prefill,
		})
	case stage.Terminal():
		c.emit(s, agui.Frame{
			Kind:    agui.KindMessage,
			Role:    agui.RoleAssistant,
			Content: "This planning session has finished. Start a new session to plan another trip.",
		})
	default:
		c.emit(s, agui.Frame{
			Kind:    agui.KindMessage,
			Role:    agui.RoleAssistant,
			Content: "Still working on your plan, one moment.",
		})
	}
}

func (c *Controller) handleForm(s *Session, sub agui.FormSubmission) {
	if s.Stage() != StageGathering {
		c.emitError(s, "trip details were already collected for this session")
		return
	}

	if msg := validateSubmission(sub); msg != "" {
		c.emitError(s, msg)
		c.emit(s, agui.Frame{
			Kind: agui.KindFormRequest,
			Role: agui.RoleAssistant,
			FormRequest: &agui.FormRequest{
				Destination: sub.Destination,
				Days:        sub.Days,
				PartySize:   sub.PartySize,
				BudgetTier:  sub.BudgetTier,
			},
		})
		return
	}

	s.setParams(TripParams{
		Destination: sub.Destination,
		Days:        sub.Days,
		PartySize:   sub.PartySize,
		BudgetTier:  sub.BudgetTier,
	})
	c.emit(s, agui.Frame{
		Kind:           agui.KindFormSubmission,
		Role:           agui.RoleUser,
		FormSubmission: &sub,
	})

	c.runWorkflow(s)
}

// validateSubmission returns a user-facing message for the first invalid
// field, or "" when the submission is acceptable.
func validateSubmission(sub agui.FormSubmission) string {
	switch {
	case sub.Destination == "":
		return "destination is required"
	case sub.Days < 1:
		return "trip must be at least one day"
	case sub.PartySize < 1:
		return "party size must be at least one"
	case !ValidTier(sub.BudgetTier):
		return fmt.Sprintf("budget tier must be one of %s, %s, %s", TierEconomy, TierComfort, TierPremium)
	default:
		return ""
	}
}

// enterStage records a stage transition and announces it on the stream.
func (c *Controller) enterStage(s *Session, st Stage) {
	s.setStage(st)
	if c.metrics != nil {
		c.metrics.RecordStageTransition(string(st))
	}
	c.emit(s, agui.Frame{
		Kind:  agui.KindStage,
		Role:  agui.RoleSystem,
		Stage: string(st),
	})
}

// fail moves the session to the absorbing Failed state with one final
// user-visible error. Teardown races are swallowed: a dead session gets no
// further transitions.
func (c *Controller) fail(s *Session, err error) {
	if s.ctx.Err() != nil {
		return
	}
	c.logger.Warn("workflow failed",
		"session_id", s.ID,
		"stage", s.Stage(),
		"error", err,
	)
	c.emitError(s, err.Error())
	c.enterStage(s, StageFailed)
}

func (c *Controller) emitError(s *Session, msg string) {
	c.emit(s, agui.Frame{
		Kind:    agui.KindError,
		Role:    agui.RoleSystem,
		Content: msg,
	})
}

// emit stamps, records, and publishes one outbound frame.
func (c *Controller) emit(s *Session, f agui.Frame) {
	f.Timestamp = time.Now()
	s.record(f)
	if c.emitter != nil {
		c.emitter.Publish(s.ID, f)
	}
}

// rawResult re-encodes a classified payload for transport frames.
func rawResult(value map[string]any) json.RawMessage {
	b, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return b
}
