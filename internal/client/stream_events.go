// ABOUTME: Server-sent event streaming for session conversation frames
// ABOUTME: Parses the gateway's SSE wire format into agui.Frame values

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
)

// StreamEvents subscribes to a session's event stream. Frames are delivered
// on the returned channel until the context is canceled or the gateway ends
// the stream; the channel is closed on exit. The initial batch replays the
// conversation history before live frames arrive.
func (c *Client) StreamEvents(ctx context.Context, sessionID string) (<-chan agui.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sessions/"+sessionID+"/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Streaming must outlive the default client timeout.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	frames := make(chan agui.Frame)
	go func() {
		defer close(frames)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var event, data string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if frame, ok := parseFrame(event, data); ok {
					select {
					case frames <- frame:
					case <-ctx.Done():
						return
					}
				}
				event, data = "", ""
			case strings.HasPrefix(line, ":"):
				// Heartbeat comment.
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	return frames, nil
}

// parseFrame decodes one SSE event into a frame. The connection preamble and
// anything undecodable are skipped.
func parseFrame(event, data string) (agui.Frame, bool) {
	if event == "" || event == "connected" || data == "" {
		return agui.Frame{}, false
	}
	var frame agui.Frame
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		return agui.Frame{}, false
	}
	return frame, true
}
