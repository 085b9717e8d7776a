package channel

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// recordingHandler captures dispatched inbound events.
type recordingHandler struct {
	mu     sync.Mutex
	events []receivedEvent
	seen   chan struct{}
}

type receivedEvent struct {
	Name string
	Data json.RawMessage
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandleEvent(name string, data json.RawMessage) error {
	h.mu.Lock()
	h.events = append(h.events, receivedEvent{Name: name, Data: data})
	h.mu.Unlock()
	h.seen <- struct{}{}
	return nil
}

func (h *recordingHandler) Events() []receivedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]receivedEvent{}, h.events...)
}

// testWorker is a WebSocket server standing in for the worker process.
type testWorker struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	received []envelope
	gotFrame chan struct{}
}

func newTestWorker(t *testing.T) *testWorker {
	t.Helper()
	w := &testWorker{gotFrame: make(chan struct{}, 16)}
	w.server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := w.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		w.mu.Lock()
		w.conn = conn
		w.mu.Unlock()
		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			w.mu.Lock()
			w.received = append(w.received, env)
			w.mu.Unlock()
			w.gotFrame <- struct{}{}
		}
	}))
	t.Cleanup(w.server.Close)
	return w
}

func (w *testWorker) url() string {
	return "ws" + strings.TrimPrefix(w.server.URL, "http")
}

func (w *testWorker) push(t *testing.T, event string, payload any) {
	t.Helper()
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		data = raw
	}
	// The server-side handler may not have run yet right after Connect.
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		w.mu.Lock()
		conn = w.conn
		w.mu.Unlock()
		if conn != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no client connected")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := conn.WriteJSON(envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
}

func (w *testWorker) frames() []envelope {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]envelope{}, w.received...)
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestChannel_EmitWrapsPayloadInEnvelope(t *testing.T) {
	worker := newTestWorker(t)
	handler := newRecordingHandler()
	ch := New(worker.url(), handler, log.New(os.Stderr, "[test] ", log.LstdFlags))

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer ch.Close()

	payload := map[string]any{
		"operation":   "copy",
		"paths":       []string{"/sdcard/a.jpg"},
		"dest_folder": "/home/u/Dest",
	}
	if err := ch.Emit("start_operation", payload); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	waitFor(t, worker.gotFrame)
	frames := worker.frames()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Event != "start_operation" {
		t.Errorf("expected event start_operation, got %s", frames[0].Event)
	}
	var decoded map[string]any
	if err := json.Unmarshal(frames[0].Data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["dest_folder"] != "/home/u/Dest" {
		t.Errorf("unexpected payload: %v", decoded)
	}
}

func TestChannel_EmitWithNilPayload(t *testing.T) {
	worker := newTestWorker(t)
	ch := New(worker.url(), newRecordingHandler(), log.New(os.Stderr, "[test] ", log.LstdFlags))

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer ch.Close()

	if err := ch.Emit("cancel_operation", nil); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	waitFor(t, worker.gotFrame)
	frames := worker.frames()
	if frames[0].Event != "cancel_operation" {
		t.Errorf("expected cancel_operation, got %s", frames[0].Event)
	}
}

func TestChannel_DispatchesInboundEventsInOrder(t *testing.T) {
	worker := newTestWorker(t)
	handler := newRecordingHandler()
	ch := New(worker.url(), handler, log.New(os.Stderr, "[test] ", log.LstdFlags))

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer ch.Close()

	worker.push(t, "progress_update", map[string]int{"current": 1, "total": 3})
	worker.push(t, "progress_update", map[string]int{"current": 2, "total": 3})
	worker.push(t, "operation_complete", map[string]any{"operation": "copy", "success": 3, "failed": 0})

	for i := 0; i < 3; i++ {
		waitFor(t, handler.seen)
	}

	events := handler.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	want := []string{"progress_update", "progress_update", "operation_complete"}
	for i, name := range want {
		if events[i].Name != name {
			t.Errorf("event %d: got %s want %s", i, events[i].Name, name)
		}
	}
}

func TestChannel_EmitBeforeConnectFails(t *testing.T) {
	ch := New("ws://127.0.0.1:0/channel", newRecordingHandler(), log.New(os.Stderr, "[test] ", log.LstdFlags))
	if err := ch.Emit("start_operation", nil); err == nil {
		t.Error("expected error emitting on an unconnected channel")
	}
}

func TestChannel_ErrorHandlerOnConnectionLoss(t *testing.T) {
	worker := newTestWorker(t)
	handler := newRecordingHandler()

	errCh := make(chan error, 1)
	ch := New(worker.url(), handler, log.New(os.Stderr, "[test] ", log.LstdFlags),
		WithErrorHandler(func(err error) { errCh <- err }))

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	// Kill the server side; the read loop should surface the loss.
	worker.push(t, "log_message", map[string]string{"data": "hello"})
	waitFor(t, handler.seen)
	worker.mu.Lock()
	worker.conn.Close()
	worker.mu.Unlock()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected a non-nil connection error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not invoked")
	}

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not exit")
	}
}

func TestChannel_CloseIsQuietAndIdempotent(t *testing.T) {
	worker := newTestWorker(t)
	errCh := make(chan error, 1)
	ch := New(worker.url(), newRecordingHandler(), log.New(os.Stderr, "[test] ", log.LstdFlags),
		WithErrorHandler(func(err error) { errCh <- err }))

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	select {
	case err := <-errCh:
		t.Errorf("deliberate close must not invoke the error handler, got %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}
