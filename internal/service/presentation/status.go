// Package presentation maps raw transport signals onto the status shown
// to the user.
package presentation

// Status is the bounded presentation status.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusInitializing Status = "initializing"
	StatusIdle         Status = "idle"
	StatusListening    Status = "listening"
	StatusThinking     Status = "thinking"
	StatusSpeaking     Status = "speaking"
)

// ConnectionSignal is the raw connection state reported by the transport,
// ex: "connected", "reconnecting".
type ConnectionSignal string

// AgentSignal is the raw agent state reported by the transport.
type AgentSignal string

const (
	ConnectionDisconnected ConnectionSignal = "disconnected"
	ConnectionConnecting   ConnectionSignal = "connecting"
	ConnectionConnected    ConnectionSignal = "connected"
	ConnectionReconnecting ConnectionSignal = "reconnecting"
)

var labels = map[Status]string{
	StatusDisconnected: "Disconnected",
	StatusConnecting:   "Connecting...",
	StatusInitializing: "Initializing...",
	StatusIdle:         "Idle",
	StatusListening:    "Listening...",
	StatusThinking:     "Thinking...",
	StatusSpeaking:     "Speaking...",
}

// Label returns the UI label for s.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return labels[StatusIdle]
}

// MapStatus derives the presentation status. Until the connection is
// established only the connection signal counts; afterwards the agent
// signal does, with unknown values shown as idle.
func MapStatus(conn ConnectionSignal, agent AgentSignal) Status {
	if conn != ConnectionConnected {
		if conn == ConnectionDisconnected {
			return StatusDisconnected
		}
		return StatusConnecting
	}

	switch s := Status(agent); s {
	case StatusInitializing, StatusIdle, StatusListening, StatusThinking, StatusSpeaking:
		return s
	default:
		return StatusIdle
	}
}
