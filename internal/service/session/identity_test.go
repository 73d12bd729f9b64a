package session

import (
	"testing"
	"time"
)

func TestIdentity(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	if got := RoomName(now); got != "voice-agent-room-1700000000123" {
		t.Errorf("RoomName() = %v, want voice-agent-room-1700000000123", got)
	}
	if got := ParticipantName(now); got != "User-1700000000123" {
		t.Errorf("ParticipantName() = %v, want User-1700000000123", got)
	}
}
