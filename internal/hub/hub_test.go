// ABOUTME: Tests for session fan-out, subscriber drops, and the SSE stream
// ABOUTME: Verifies frames never leak across sessions

package hub

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
)

func textFrame(content string) agui.Frame {
	return agui.Frame{
		Kind:      agui.KindMessage,
		Role:      agui.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func TestPublish_ReachesOnlyOwnSession(t *testing.T) {
	h := New(nil)
	defer h.Close()

	chA, cancelA := h.Subscribe("session-a")
	chB, cancelB := h.Subscribe("session-b")
	defer cancelA()
	defer cancelB()

	h.Publish("session-a", textFrame("for A"))

	select {
	case f := <-chA:
		assert.Equal(t, "for A", f.Content)
	case <-time.After(time.Second):
		t.Fatal("subscriber A never received the frame")
	}

	select {
	case f := <-chB:
		t.Fatalf("subscriber B leaked frame %q", f.Content)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_MultipleSubscribersSameSession(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ch1, cancel1 := h.Subscribe("s")
	ch2, cancel2 := h.Subscribe("s")
	defer cancel1()
	defer cancel2()

	h.Publish("s", textFrame("hello"))

	for _, ch := range []<-chan agui.Frame{ch1, ch2} {
		select {
		case f := <-ch:
			assert.Equal(t, "hello", f.Content)
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the frame")
		}
	}
}

func TestPublish_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	h := New(nil, WithBufferSize(1))
	defer h.Close()

	ch, cancel := h.Subscribe("s")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody reading: the second publish must drop, not block.
		h.Publish("s", textFrame("first"))
		h.Publish("s", textFrame("second"))
		h.Publish("s", textFrame("third"))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	f := <-ch
	assert.Equal(t, "first", f.Content)
	select {
	case f := <-ch:
		t.Fatalf("unexpected extra frame %q", f.Content)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_CancelDetaches(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ch, cancel := h.Subscribe("s")
	require.Equal(t, 1, h.SubscriberCount("s"))

	cancel()
	cancel() // safe to call twice
	assert.Equal(t, 0, h.SubscriberCount("s"))

	_, open := <-ch
	assert.False(t, open)
}

func TestDropSession_ClosesSubscribers(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ch, cancel := h.Subscribe("s")
	h.DropSession("s")

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.SubscriberCount("s"))

	cancel() // no panic after DropSession
}

func TestDuplicateMessage(t *testing.T) {
	h := New(nil)
	defer h.Close()

	assert.False(t, h.DuplicateMessage("msg-1"))
	assert.True(t, h.DuplicateMessage("msg-1"))
	assert.False(t, h.DuplicateMessage("msg-2"))
	assert.False(t, h.DuplicateMessage(""), "empty ids are never treated as duplicates")
}

func TestServeSSE_StreamsFrames(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ctx, cancelReq := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/sessions/s/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	go func() {
		// Wait for the subscription before publishing, then end the request.
		for h.SubscriberCount("s") == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		h.Publish("s", textFrame("streamed"))
		time.Sleep(50 * time.Millisecond)
		cancelReq()
	}()

	history := func() []agui.Frame { return []agui.Frame{textFrame("from history")} }
	h.ServeSSE(rec, req, "s", history)

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, `"session_id": "s"`)
	assert.Contains(t, body, "from history")
	assert.Contains(t, body, "event: message")
	assert.Contains(t, body, "streamed")
}

func TestServeSSE_EndsWhenSessionDropped(t *testing.T) {
	h := New(nil)
	defer h.Close()

	req := httptest.NewRequest("GET", "/api/sessions/s/events", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeSSE(rec, req, "s", nil)
	}()

	require.Eventually(t, func() bool { return h.SubscriberCount("s") == 1 },
		time.Second, 5*time.Millisecond)
	h.DropSession("s")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeSSE did not return after session teardown")
	}
}
