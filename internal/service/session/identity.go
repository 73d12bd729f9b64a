package session

import (
	"fmt"
	"time"
)

// RoomName returns the room requested for a session started at t.
func RoomName(t time.Time) string {
	return fmt.Sprintf("voice-agent-room-%d", t.UnixMilli())
}

// ParticipantName returns the participant identity for a session started at t.
func ParticipantName(t time.Time) string {
	return fmt.Sprintf("User-%d", t.UnixMilli())
}
