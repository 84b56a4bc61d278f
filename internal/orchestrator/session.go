// ABOUTME: Per-session state: trip parameters, stage, history, classified results
// ABOUTME: All mutation happens on the session's driver goroutine

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/classify"
)

// Budget tiers accepted from the gathering form.
const (
	TierEconomy = "Economy"
	TierComfort = "Comfort"
	TierPremium = "Premium"
)

// ValidTier reports whether s is one of the accepted budget tiers.
func ValidTier(s string) bool {
	return s == TierEconomy || s == TierComfort || s == TierPremium
}

// TripParams are the inputs collected during the Gathering stage.
type TripParams struct {
	Destination string
	Days        int
	PartySize   int
	BudgetTier  string
}

// inbound events handed to the session driver.
type event interface{ isEvent() }

type messageEvent struct{ text string }
type formEvent struct{ sub agui.FormSubmission }

func (messageEvent) isEvent() {}
func (formEvent) isEvent()    {}

// Session holds one planning conversation. It is created on the first client
// contact and exists only in process memory; teardown cancels ctx so any
// in-flight agent call is abandoned and its late result discarded.
type Session struct {
	ID        string
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	events chan event
	done   chan struct{}

	mu           sync.Mutex
	stage        Stage
	params       TripParams
	history      []agui.Frame
	results      map[classify.Tag]map[string]any
	revision     int
	lastActivity time.Time
}

// Stage returns the session's current workflow stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Params returns the collected trip parameters.
func (s *Session) Params() TripParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// History returns a snapshot of the session's conversation so far.
func (s *Session) History() []agui.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agui.Frame, len(s.history))
	copy(out, s.history)
	return out
}

// LastActivity returns the time of the most recent inbound or outbound frame.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Revision returns how many budget revisions have been requested.
func (s *Session) Revision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Result returns the stored classified payload for a schema tag, if any.
func (s *Session) Result(tag classify.Tag) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.results[tag]
	return v, ok
}

func (s *Session) setStage(st Stage) {
	s.mu.Lock()
	s.stage = st
	s.mu.Unlock()
}

func (s *Session) setParams(p TripParams) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

func (s *Session) storeResult(p classify.Payload) {
	if p.Tag == classify.TagUnclassified {
		return
	}
	s.mu.Lock()
	s.results[p.Tag] = p.Value
	s.mu.Unlock()
}

func (s *Session) record(f agui.Frame) {
	s.mu.Lock()
	s.history = append(s.history, f)
	s.lastActivity = f.Timestamp
	s.mu.Unlock()
}

func (s *Session) bumpRevision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	return s.revision
}
