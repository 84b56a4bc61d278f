// ABOUTME: Session transport hub fanning controller frames out to subscribers
// ABOUTME: Per-session channels, non-blocking publish, no cross-session leakage

package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/dedupe"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/metrics"
)

const (
	// defaultBufferSize is the per-subscriber frame buffer. A subscriber
	// that falls this far behind starts losing frames rather than blocking
	// the session driver.
	defaultBufferSize = 64

	// dedupeTTL bounds how long a client message id is remembered for
	// retry suppression.
	dedupeTTL = 5 * time.Minute

	dedupeMaxSize = 10000
)

// subscriber is one attached event-stream consumer.
type subscriber struct {
	ch chan agui.Frame
}

// Hub multiplexes outbound frames to each session's subscribers. Frames for
// one session are never delivered to another session's subscribers. Publish
// never blocks: a full subscriber buffer drops the frame for that subscriber
// only.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	bufSize int
	seen    *dedupe.Cache

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize overrides the per-subscriber frame buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// WithMetrics attaches gateway metrics for dropped-frame accounting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// New creates a hub. Pass nil logger for default.
func New(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:  logger.With("component", "hub"),
		bufSize: defaultBufferSize,
		seen:    dedupe.New(dedupeTTL, dedupeMaxSize),
		subs:    make(map[string]map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish delivers a frame to every subscriber of the session. Implements
// the controller's Emitter.
func (h *Hub) Publish(sessionID string, frame agui.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[sessionID] {
		select {
		case sub.ch <- frame:
		default:
			if h.metrics != nil {
				h.metrics.RecordDroppedFrame()
			}
			h.logger.Warn("dropping frame for slow subscriber",
				"session_id", sessionID,
				"kind", frame.Kind,
			)
		}
	}
}

// Subscribe attaches a consumer to the session's frame stream. The returned
// cancel func detaches it and closes the channel; it is safe to call more
// than once.
func (h *Hub) Subscribe(sessionID string) (<-chan agui.Frame, func()) {
	sub := &subscriber{ch: make(chan agui.Frame, h.bufSize)}

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[sessionID]; ok {
				if _, attached := set[sub]; attached {
					delete(set, sub)
					close(sub.ch)
				}
				if len(set) == 0 {
					delete(h.subs, sessionID)
				}
			}
			h.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// SubscriberCount reports how many consumers the session currently has.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// DropSession detaches and closes every subscriber of a torn-down session.
func (h *Hub) DropSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[sessionID] {
		close(sub.ch)
	}
	delete(h.subs, sessionID)
}

// DuplicateMessage reports whether a client-assigned message id was already
// seen recently, marking it as seen otherwise. Client retries carrying the
// same id are suppressed with this.
func (h *Hub) DuplicateMessage(messageID string) bool {
	if messageID == "" {
		return false
	}
	return h.seen.Duplicate(messageID)
}

// Close releases the dedupe cache and all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, id)
	}
	h.mu.Unlock()
	h.seen.Close()
}
