package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
)

// recordingHandler implements Handler
type recordingHandler struct {
	mu       sync.Mutex
	conn     []string
	agent    []string
	segments []string
	errs     []error
	errCh    chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{errCh: make(chan struct{}, 1)}
}

func (h *recordingHandler) OnConnectionState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn = append(h.conn, state)
}

func (h *recordingHandler) OnAgentState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agent = append(h.agent, state)
}

func (h *recordingHandler) OnSegment(speaker models.Speaker, id, text string, final bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	mark := "~"
	if final {
		mark = "!"
	}
	h.segments = append(h.segments, string(speaker)+":"+id+":"+text+mark)
}

func (h *recordingHandler) OnTransportError(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	select {
	case h.errCh <- struct{}{}:
	default:
	}
}

func (h *recordingHandler) errCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

// bridgeServer runs script against every accepted connection.
func bridgeServer(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		script(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

var testCred = models.Credential{Token: "jwt", ServerURL: "wss://rt.example.com", RoomName: "room"}

func TestBridge_JoinAndDispatch(t *testing.T) {
	joined := make(chan Frame, 1)
	srv := bridgeServer(t, func(conn *websocket.Conn) {
		var join Frame
		if err := conn.ReadJSON(&join); err != nil {
			t.Errorf("read join: %v", err)
			return
		}
		joined <- join

		frames := []string{
			`{"type":"connection","state":"connected"}`,
			`{"type":"agent","state":"listening"}`,
			`{"type":"segment","speaker":"user","id":"A","text":"what","final":false}`,
			`{"type":"segment","speaker":"robot","id":"X","text":"ignored"}`,
			`not json`,
			`{"type":"mystery"}`,
			`{"type":"segment","speaker":"agent","id":"B","text":"Let me check","final":true}`,
		}
		for _, f := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		// Keep the link open until the client closes it.
		conn.ReadMessage()
	})

	h := newRecordingHandler()
	link, err := NewBridge(wsURL(srv)).Open(context.Background(), testCred, h)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	join := <-joined
	if join.Type != FrameJoin || join.Token != "jwt" || join.URL != "wss://rt.example.com" {
		t.Errorf("unexpected join frame: %+v", join)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		n := len(h.segments)
		h.mu.Unlock()
		if n == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := link.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	<-link.(*Conn).Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conn) != 1 || h.conn[0] != "connected" {
		t.Errorf("unexpected connection states: %v", h.conn)
	}
	if len(h.agent) != 1 || h.agent[0] != "listening" {
		t.Errorf("unexpected agent states: %v", h.agent)
	}
	want := []string{"user:A:what~", "agent:B:Let me check!"}
	if len(h.segments) != len(want) {
		t.Fatalf("expected segments %v, got %v", want, h.segments)
	}
	for i := range want {
		if h.segments[i] != want[i] {
			t.Errorf("segment %d: expected %s, got %s", i, want[i], h.segments[i])
		}
	}
	if len(h.errs) != 0 {
		t.Errorf("expected no transport errors after Close, got %v", h.errs)
	}
}

func TestBridge_MicrophoneFrame(t *testing.T) {
	got := make(chan Frame, 1)
	srv := bridgeServer(t, func(conn *websocket.Conn) {
		var join, mic Frame
		conn.ReadJSON(&join)
		if err := conn.ReadJSON(&mic); err == nil {
			got <- mic
		}
		conn.ReadMessage()
	})

	link, err := NewBridge(wsURL(srv)).Open(context.Background(), testCred, newRecordingHandler())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer link.Close()

	if err := link.SetMicrophoneEnabled(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case f := <-got:
		if f.Type != FrameMicrophone || f.Enabled == nil || *f.Enabled {
			t.Errorf("unexpected microphone frame: %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for microphone frame")
	}
}

func TestBridge_ErrorFrameEndsLink(t *testing.T) {
	srv := bridgeServer(t, func(conn *websocket.Conn) {
		var join Frame
		conn.ReadJSON(&join)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"ice failed"}`))
		conn.ReadMessage()
	})

	h := newRecordingHandler()
	link, err := NewBridge(wsURL(srv)).Open(context.Background(), testCred, h)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	select {
	case <-h.errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport error")
	}
	<-link.(*Conn).Done()

	if h.errCount() != 1 {
		t.Errorf("expected exactly 1 transport error, got %d", h.errCount())
	}
	if !strings.Contains(h.errs[0].Error(), "ice failed") {
		t.Errorf("unexpected error: %v", h.errs[0])
	}
	if err := link.SetMicrophoneEnabled(true); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestBridge_ServerDropReportsError(t *testing.T) {
	srv := bridgeServer(t, func(conn *websocket.Conn) {
		var join Frame
		conn.ReadJSON(&join)
	})

	h := newRecordingHandler()
	if _, err := NewBridge(wsURL(srv)).Open(context.Background(), testCred, h); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	select {
	case <-h.errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("expected transport error when the bridge drops the link")
	}
}

func TestBridge_CloseFromHandler(t *testing.T) {
	srv := bridgeServer(t, func(conn *websocket.Conn) {
		var join Frame
		conn.ReadJSON(&join)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"gone"}`))
		conn.ReadMessage()
	})

	var link Link
	ready := make(chan struct{})
	h := &closingHandler{recordingHandler: newRecordingHandler(), link: func() Link { <-ready; return link }}

	var err error
	link, err = NewBridge(wsURL(srv)).Open(context.Background(), testCred, h)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	close(ready)

	select {
	case <-link.(*Conn).Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop deadlocked when the handler closed the link")
	}
}

// closingHandler closes the link from inside OnTransportError.
type closingHandler struct {
	*recordingHandler
	link func() Link
}

func (h *closingHandler) OnTransportError(err error) {
	h.recordingHandler.OnTransportError(err)
	h.link().Close()
}

func TestBridge_DialFailure(t *testing.T) {
	_, err := NewBridge("ws://127.0.0.1:1/nowhere").Open(context.Background(), testCred, newRecordingHandler())
	if err == nil {
		t.Error("expected dial error")
	}
}
