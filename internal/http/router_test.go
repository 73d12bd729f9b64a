package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/apperr"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/coordinator"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/presentation"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/session"
)

type fakeSession struct {
	connectErr error
	micErr     error
	audioErr   error

	status       coordinator.Status
	mic          *bool
	audio        []byte
	disconnected bool
	log          models.TranscriptLog
	query        models.RetrievalQuery
}

func (f *fakeSession) Connect(ctx context.Context) (session.State, error) {
	if f.connectErr != nil {
		return session.Failed{Reason: "connection_failed"}, f.connectErr
	}
	f.status.State = "connected"
	return session.Connected{Token: "t", ServerURL: "wss://x"}, nil
}

func (f *fakeSession) Disconnect() {
	f.disconnected = true
	f.status.State = "disconnected"
}

func (f *fakeSession) SetMicrophoneEnabled(enabled bool) error {
	if f.micErr != nil {
		return f.micErr
	}
	f.mic = &enabled
	return nil
}

func (f *fakeSession) SendAudio(ctx context.Context, audio []byte) error {
	if f.audioErr != nil {
		return f.audioErr
	}
	f.audio = append(f.audio, audio...)
	return nil
}

func (f *fakeSession) Status() coordinator.Status { return f.status }
func (f *fakeSession) Transcript() models.TranscriptLog { return f.log }
func (f *fakeSession) Query() models.RetrievalQuery { return f.query }

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	r := NewRouter(&fakeSession{}, nil)

	if rec := do(t, r, http.MethodGet, "/v1/liveness", nil); rec.Code != http.StatusOK {
		t.Errorf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/v1/readiness", nil); rec.Code != http.StatusOK {
		t.Errorf("readiness: expected 200, got %d", rec.Code)
	}

	notReady := NewRouter(&fakeSession{}, func(context.Context) error { return errors.New("down") })
	if rec := do(t, notReady, http.MethodGet, "/v1/readiness", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness: expected 503, got %d", rec.Code)
	}
}

func TestRouter_ConnectSuccess(t *testing.T) {
	fs := &fakeSession{status: coordinator.Status{Presentation: presentation.StatusConnecting}}
	r := NewRouter(fs, nil)

	rec := do(t, r, http.MethodPost, "/v1/session/connect", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp connectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "connected" {
		t.Errorf("expected state connected, got %s", resp.State)
	}
	if resp.Error != "" {
		t.Errorf("expected no error, got %q", resp.Error)
	}
}

func TestRouter_ConnectFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		contains string
	}{
		{"in progress", session.ErrConnectInProgress, http.StatusConflict, "already in progress"},
		{"already connected", session.ErrAlreadyConnected, http.StatusConflict, "Already connected"},
		{"superseded", session.ErrSuperseded, http.StatusConflict, "cancelled"},
		{"permission", apperr.E(apperr.KindPermission, "session.Connect", "permission_denied", session.ErrPermissionDenied), http.StatusForbidden, "Microphone access denied"},
		{"credential timeout", apperr.E(apperr.KindCredential, "session.Connect", "timeout", context.DeadlineExceeded), http.StatusBadGateway, "Timed out"},
		{"credential server message", apperr.E(apperr.KindCredential, "session.Connect", "LiveKit credentials not configured", nil), http.StatusBadGateway, "LiveKit credentials not configured"},
		{"transport", apperr.E(apperr.KindTransport, "coordinator.Connect", "transport_unavailable", errors.New("refused")), http.StatusBadGateway, "voice connection"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeSession{connectErr: tt.err}, nil)

			rec := do(t, r, http.MethodPost, "/v1/session/connect", nil)
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			var resp connectResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(resp.Error, tt.contains) {
				t.Errorf("expected error containing %q, got %q", tt.contains, resp.Error)
			}
		})
	}
}

func TestRouter_Disconnect(t *testing.T) {
	fs := &fakeSession{}
	r := NewRouter(fs, nil)

	rec := do(t, r, http.MethodPost, "/v1/session/disconnect", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !fs.disconnected {
		t.Error("expected Disconnect to be called")
	}
}

func TestRouter_Microphone(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"mute", `{"enabled": false}`, nil, http.StatusOK},
		{"unmute", `{"enabled": true}`, nil, http.StatusOK},
		{"missing field", `{}`, nil, http.StatusBadRequest},
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"not connected", `{"enabled": true}`, session.ErrNotConnected, http.StatusConflict},
		{"link error", `{"enabled": true}`, errors.New("closed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSession{micErr: tt.err}
			r := NewRouter(fs, nil)

			rec := do(t, r, http.MethodPost, "/v1/session/microphone", []byte(tt.body))
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}

	fs := &fakeSession{}
	do(t, NewRouter(fs, nil), http.MethodPost, "/v1/session/microphone", []byte(`{"enabled": false}`))
	if fs.mic == nil || *fs.mic {
		t.Errorf("expected microphone disabled, got %v", fs.mic)
	}
}

func TestRouter_Audio(t *testing.T) {
	fs := &fakeSession{}
	r := NewRouter(fs, nil)

	rec := do(t, r, http.MethodPost, "/v1/session/audio", []byte{1, 2, 3})
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
	if len(fs.audio) != 3 {
		t.Errorf("expected 3 audio bytes forwarded, got %d", len(fs.audio))
	}

	if rec := do(t, r, http.MethodPost, "/v1/session/audio", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty chunk: expected 400, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/v1/session/audio", make([]byte, maxAudioBytes+1)); rec.Code != http.StatusBadRequest {
		t.Errorf("oversized chunk: expected 400, got %d", rec.Code)
	}

	notConnected := NewRouter(&fakeSession{audioErr: session.ErrNotConnected}, nil)
	if rec := do(t, notConnected, http.MethodPost, "/v1/session/audio", []byte{1}); rec.Code != http.StatusConflict {
		t.Errorf("not connected: expected 409, got %d", rec.Code)
	}
}

func TestRouter_Snapshots(t *testing.T) {
	fs := &fakeSession{
		log: models.TranscriptLog{
			Entries:  []models.TranscriptEntry{{ID: "user:A", Speaker: models.SpeakerUser, Text: "hello", IsFinal: true, Revision: 1}},
			Revision: 1,
		},
		query: models.RetrievalQuery{
			QueryText: "hello",
			Status:    models.QuerySucceeded,
			Results:   []models.SourceHit{{Label: "doc.pdf", Content: "x", SimilarityScore: 0.2}},
		},
	}
	r := NewRouter(fs, nil)

	rec := do(t, r, http.MethodGet, "/v1/transcript", nil)
	var log models.TranscriptLog
	if err := json.Unmarshal(rec.Body.Bytes(), &log); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if log.Len() != 1 || log.Entries[0].Text != "hello" {
		t.Errorf("unexpected transcript: %+v", log)
	}

	rec = do(t, r, http.MethodGet, "/v1/retrieval", nil)
	var q models.RetrievalQuery
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode retrieval: %v", err)
	}
	if q.Status != models.QuerySucceeded || len(q.Results) != 1 {
		t.Errorf("unexpected query: %+v", q)
	}

	rec = do(t, r, http.MethodGet, "/v1/session", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("session: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
}
