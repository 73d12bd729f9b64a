package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/stt/mock"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/transport"
)

// micSwitch gates the user script while the coordinator has muted.
type micSwitch struct {
	mu      sync.Mutex
	enabled bool
	changed chan struct{}
}

func newMicSwitch() *micSwitch {
	return &micSwitch{enabled: true, changed: make(chan struct{})}
}

func (m *micSwitch) set(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled == enabled {
		return
	}
	m.enabled = enabled
	close(m.changed)
	m.changed = make(chan struct{})
}

// waitEnabled blocks while the microphone is muted.
func (m *micSwitch) waitEnabled(ctx context.Context) error {
	for {
		m.mu.Lock()
		enabled, changed := m.enabled, m.changed
		m.mu.Unlock()
		if enabled {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// replay announces the connection, then cycles through the scripted turns:
// the user's partials and final, the agent thinking, the agent's reply,
// and back to listening. It returns when ctx ends or emit fails.
func replay(ctx context.Context, emit func(transport.Frame) error, mic *micSwitch, step time.Duration) error {
	send := func(f transport.Frame) error {
		if err := emit(f); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
			return nil
		}
	}

	if err := send(transport.Frame{Type: transport.FrameConnection, State: "connected"}); err != nil {
		return err
	}
	if err := send(transport.Frame{Type: transport.FrameAgent, State: "initializing"}); err != nil {
		return err
	}

	for turn := 0; ; turn++ {
		i := turn % len(mock.DefaultUtterances)
		if err := send(transport.Frame{Type: transport.FrameAgent, State: "listening"}); err != nil {
			return err
		}
		if err := mic.waitEnabled(ctx); err != nil {
			return err
		}

		id := fmt.Sprintf("U%d", turn)
		if err := utterance(send, models.SpeakerUser, id, mock.DefaultUtterances[i]); err != nil {
			return err
		}
		if err := send(transport.Frame{Type: transport.FrameAgent, State: "thinking"}); err != nil {
			return err
		}
		if err := send(transport.Frame{Type: transport.FrameAgent, State: "speaking"}); err != nil {
			return err
		}
		id = fmt.Sprintf("A%d", turn)
		if err := utterance(send, models.SpeakerAgent, id, mock.AgentReplies[i%len(mock.AgentReplies)]); err != nil {
			return err
		}
	}
}

func utterance(send func(transport.Frame) error, speaker models.Speaker, id string, u mock.SimulatedUtterance) error {
	for _, p := range u.Partials {
		if err := send(transport.Frame{Type: transport.FrameSegment, Speaker: speaker, ID: id, Text: p}); err != nil {
			return err
		}
	}
	return send(transport.Frame{Type: transport.FrameSegment, Speaker: speaker, ID: id, Text: u.Final, Final: true})
}
