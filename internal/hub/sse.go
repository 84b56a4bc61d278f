// ABOUTME: SSE transport for the UI-facing event stream
// ABOUTME: One subscription per connection, heartbeat comments keep it alive

package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
)

// heartbeatInterval is how often an SSE comment is written to detect dead
// connections.
const heartbeatInterval = 30 * time.Second

// ServeSSE streams the session's frames to one client over Server-Sent
// Events. It blocks until the client disconnects or the session's stream is
// closed by teardown. history, if non-nil, is evaluated after the
// subscription is attached and written first, so a reconnecting client sees
// the conversation so far without losing frames emitted meanwhile; a frame
// landing in both history and the live stream may be delivered twice.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, sessionID string, history func() []agui.Frame) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	frames, cancel := h.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: connected\ndata: {\"session_id\": %q}\n\n", sessionID)
	flusher.Flush()

	if history != nil {
		for _, frame := range history() {
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Kind, data)
		}
		flusher.Flush()
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			// SSE comment as heartbeat to detect dead connections
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case frame, ok := <-frames:
			if !ok {
				// Session torn down
				return
			}
			data, err := json.Marshal(frame)
			if err != nil {
				h.logger.Error("failed to marshal frame", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Kind, data)
			flusher.Flush()
		}
	}
}
