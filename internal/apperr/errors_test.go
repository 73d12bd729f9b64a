package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKind_ThroughWrapping(t *testing.T) {
	base := E(KindCredential, "session.Connect", "timeout", errors.New("deadline"))
	wrapped := fmt.Errorf("connect: %w", base)

	if !IsKind(wrapped, KindCredential) {
		t.Error("expected wrapped error to be a credential error")
	}
	if IsKind(wrapped, KindPermission) {
		t.Error("did not expect permission kind")
	}
	if got := ReasonOf(wrapped); got != "timeout" {
		t.Errorf("expected reason 'timeout', got %q", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	sentinel := errors.New("mic busy")
	err := E(KindPermission, "session.Connect", "device_unavailable", sentinel)

	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to reach the wrapped error")
	}
}

func TestError_String(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"op and err", &Error{Kind: KindRetrieval, Op: "retrieval.dispatch", Reason: "failed", Err: errors.New("500")}, "retrieval.dispatch: retrieval failed: 500"},
		{"op only", &Error{Kind: KindTransport, Op: "bridge", Reason: "closed"}, "bridge: transport closed"},
		{"err only", &Error{Kind: KindCredential, Reason: "timeout", Err: errors.New("x")}, "credential timeout: x"},
		{"bare", &Error{Kind: KindPermission, Reason: "permission_denied"}, "permission permission_denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"denied", E(KindPermission, "", "permission_denied", nil), "Microphone access denied. Please allow microphone permission in your browser settings."},
		{"device", E(KindPermission, "", "device_unavailable", nil), "Could not access microphone. Please check that a microphone is connected."},
		{"server message", E(KindCredential, "", "LiveKit credentials not configured", nil), "LiveKit credentials not configured"},
		{"generic credential", E(KindCredential, "", "connection_failed", nil), "Failed to connect to voice agent. Please check your connection and try again."},
		{"unclassified", errors.New("boom"), "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
