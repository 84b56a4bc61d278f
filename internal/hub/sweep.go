// ABOUTME: Idle-session sweeper reclaiming sessions with no recent activity
// ABOUTME: Ends the controller session and closes its subscriber streams

package hub

import (
	"context"
	"time"
)

// SessionController is the slice of the orchestration controller the sweeper
// needs. Satisfied by *orchestrator.Controller.
type SessionController interface {
	IdleSessions(olderThan time.Duration) []string
	EndSession(id string) error
}

// RunIdleSweep ends sessions whose last activity is older than idleTimeout,
// checking every interval until ctx is cancelled. Intended to run as a
// goroutine alongside the HTTP server.
func (h *Hub) RunIdleSweep(ctx context.Context, ctrl SessionController, idleTimeout, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweepIdle(ctrl, idleTimeout)
		}
	}
}

func (h *Hub) sweepIdle(ctrl SessionController, idleTimeout time.Duration) {
	for _, id := range ctrl.IdleSessions(idleTimeout) {
		h.logger.Info("ending idle session", "session_id", id)
		if err := ctrl.EndSession(id); err == nil {
			h.DropSession(id)
		}
	}
}
