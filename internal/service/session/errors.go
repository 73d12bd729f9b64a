package session

import "errors"

var (
	// ErrPermissionDenied is returned by a Microphone when the user refuses access.
	ErrPermissionDenied = errors.New("session: microphone permission denied")
	// ErrConnectInProgress is returned by Connect while another attempt is pending.
	ErrConnectInProgress = errors.New("session: connect already in progress")
	// ErrAlreadyConnected is returned by Connect while the session is connected.
	ErrAlreadyConnected = errors.New("session: already connected")
	// ErrNotConnected is returned by operations that need a live session.
	ErrNotConnected = errors.New("session: not connected")
	// ErrSuperseded is returned by Connect when a disconnect overtook the attempt.
	ErrSuperseded = errors.New("session: connect attempt superseded by disconnect")
)

// Failure reasons carried by Denied and Failed.
const (
	ReasonPermissionDenied  = "permission_denied"
	ReasonDeviceUnavailable = "device_unavailable"
	ReasonTimeout           = "timeout"
	ReasonConnectionFailed  = "connection_failed"
)
