// Package apperr classifies the coordinator's recoverable failures.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class.
type Kind string

const (
	KindPermission Kind = "permission"
	KindCredential Kind = "credential"
	KindRetrieval  Kind = "retrieval"
	KindTransport  Kind = "transport"
)

// Error is the unified error contract across the coordinator.
type Error struct {
	Kind   Kind
	Op     string // operation name, ex: "session.Connect"
	Reason string // machine-readable reason, ex: "permission_denied"
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Kind, e.Reason, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s %s", e.Op, e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Reason, e.Err)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(kind Kind, op, reason string, err error) error {
	return &Error{Kind: kind, Op: op, Reason: reason, Err: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// ReasonOf returns the reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

// UserMessage returns the message shown to the user for err.
func UserMessage(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		if err == nil {
			return ""
		}
		return "Something went wrong. Please try again."
	}
	switch ae.Kind {
	case KindPermission:
		if ae.Reason == "permission_denied" {
			return "Microphone access denied. Please allow microphone permission in your browser settings."
		}
		return "Could not access microphone. Please check that a microphone is connected."
	case KindCredential:
		switch ae.Reason {
		case "timeout":
			return "Timed out while connecting to the voice agent. Please try again."
		case "", "connection_failed":
			return "Failed to connect to voice agent. Please check your connection and try again."
		default:
			return ae.Reason
		}
	case KindTransport:
		return "The voice connection was lost. Please reconnect."
	default:
		return "Could not retrieve sources."
	}
}
