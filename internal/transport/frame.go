// Package transport connects the coordinator to the real-time media
// transport through a websocket bridge.
//
// Inbound frames:
//
//	{"type":"connection","state":"connected"}
//	{"type":"agent","state":"listening"}
//	{"type":"segment","speaker":"user","id":"A","text":"hello","final":false}
//	{"type":"error","message":"ice failed"}
//
// Outbound frames:
//
//	{"type":"join","token":"...","url":"wss://..."}
//	{"type":"microphone","enabled":false}
package transport

import (
	"context"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
)

// Frame types.
const (
	FrameJoin       = "join"
	FrameConnection = "connection"
	FrameAgent      = "agent"
	FrameSegment    = "segment"
	FrameError      = "error"
	FrameMicrophone = "microphone"
)

// Frame is one JSON message on the bridge.
type Frame struct {
	Type    string         `json:"type"`
	State   string         `json:"state,omitempty"`
	Speaker models.Speaker `json:"speaker,omitempty"`
	ID      string         `json:"id,omitempty"`
	Text    string         `json:"text,omitempty"`
	Final   bool           `json:"final,omitempty"`
	Message string         `json:"message,omitempty"`
	Token   string         `json:"token,omitempty"`
	URL     string         `json:"url,omitempty"`
	Enabled *bool          `json:"enabled,omitempty"`
}

// Handler receives transport events. Calls are made from the bridge's
// read goroutine, one at a time.
type Handler interface {
	OnConnectionState(state string)
	OnAgentState(state string)
	OnSegment(speaker models.Speaker, id, text string, final bool)
	// OnTransportError reports a failure of an established link. It is not
	// called after Close.
	OnTransportError(err error)
}

// Link is an open transport session.
type Link interface {
	SetMicrophoneEnabled(enabled bool) error
	Close() error
}

// Dialer opens transport links.
type Dialer interface {
	Open(ctx context.Context, cred models.Credential, h Handler) (Link, error)
}
