package coordinator

import (
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/apperr"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/presentation"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/segment"
)

// linkHandler receives the events of one transport link. Events from a
// link that has since been torn down are dropped.
type linkHandler struct {
	c   *Coordinator
	gen uint64
}

func (h *linkHandler) current() bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.gen == h.gen
}

func (h *linkHandler) OnConnectionState(state string) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.gen != h.gen {
		return
	}
	h.c.conn = presentation.ConnectionSignal(state)
}

func (h *linkHandler) OnAgentState(state string) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.gen != h.gen {
		return
	}
	h.c.agentState = presentation.AgentSignal(state)
}

// OnSegment holds the coordinator lock through the push so a teardown
// cannot clear the transcript between the generation check and the write.
func (h *linkHandler) OnSegment(speaker models.Speaker, id, text string, final bool) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.gen != h.gen {
		return
	}
	raw := segment.Raw{ID: id, Text: text, Final: final}
	switch speaker {
	case models.SpeakerUser:
		h.c.user.Push(raw)
	case models.SpeakerAgent:
		h.c.agent.Push(raw)
	}
}

func (h *linkHandler) OnTransportError(err error) {
	if !h.current() {
		return
	}
	h.c.setMessage(apperr.E(apperr.KindTransport, "coordinator.OnTransportError", "transport_failed", err))
	h.c.machine.TransportFailed(err)
}
