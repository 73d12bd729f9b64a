// Package http exposes the coordinator's control API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/apperr"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/coordinator"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/session"
)

const maxAudioBytes = 1 << 20

// Session is the coordinator surface served over HTTP.
type Session interface {
	Connect(ctx context.Context) (session.State, error)
	Disconnect()
	SetMicrophoneEnabled(enabled bool) error
	SendAudio(ctx context.Context, audio []byte) error
	Status() coordinator.Status
	Transcript() models.TranscriptLog
	Query() models.RetrievalQuery
}

// ReadyFunc reports whether the service can accept traffic.
type ReadyFunc func(ctx context.Context) error

type connectResponse struct {
	coordinator.Status
	Error string `json:"error,omitempty"`
}

type microphoneRequest struct {
	Enabled *bool `json:"enabled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(s Session, ready ReadyFunc) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handlers{session: s}

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", h.status)
		r.Post("/session/connect", h.connect)
		r.Post("/session/disconnect", h.disconnect)
		r.Post("/session/microphone", h.microphone)
		r.Post("/session/audio", h.audio)
		r.Get("/transcript", h.transcript)
		r.Get("/retrieval", h.retrieval)
	})

	return r
}

type handlers struct {
	session Session
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Status())
}

func (h *handlers) connect(w http.ResponseWriter, r *http.Request) {
	// The connect flow outlives the request: a client that gives up must
	// not cancel a session that is about to come up.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), time.Minute)
	defer cancel()

	_, err := h.session.Connect(ctx)
	resp := connectResponse{Status: h.session.Status()}
	if err != nil {
		resp.Error = apperr.UserMessage(err)
		if msg := guardMessage(err); msg != "" {
			resp.Error = msg
		}
		log.Info().Err(err).Str("state", resp.State).Msg("Connect did not complete")
	}
	writeJSON(w, connectStatus(err), resp)
}

func (h *handlers) disconnect(w http.ResponseWriter, _ *http.Request) {
	h.session.Disconnect()
	writeJSON(w, http.StatusOK, h.session.Status())
}

func (h *handlers) microphone(w http.ResponseWriter, r *http.Request) {
	var req microphoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `body must be {"enabled": true|false}`})
		return
	}
	if err := h.session.SetMicrophoneEnabled(*req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Status())
}

func (h *handlers) audio(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read audio"})
		return
	}
	if len(audio) == 0 || len(audio) > maxAudioBytes {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "audio chunk must be 1 byte to 1 MiB"})
		return
	}
	if err := h.session.SendAudio(r.Context(), audio); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) transcript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Transcript())
}

func (h *handlers) retrieval(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Query())
}

func connectStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, session.ErrConnectInProgress),
		errors.Is(err, session.ErrAlreadyConnected),
		errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case apperr.IsKind(err, apperr.KindPermission):
		return http.StatusForbidden
	case apperr.IsKind(err, apperr.KindCredential), apperr.IsKind(err, apperr.KindTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func guardMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrConnectInProgress):
		return "A connection attempt is already in progress."
	case errors.Is(err, session.ErrAlreadyConnected):
		return "Already connected."
	case errors.Is(err, session.ErrSuperseded):
		return "The connection attempt was cancelled."
	case errors.Is(err, session.ErrNotConnected):
		return "No active session."
	}
	return ""
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := guardMessage(err)
	if errors.Is(err, session.ErrNotConnected) {
		status = http.StatusConflict
	}
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
