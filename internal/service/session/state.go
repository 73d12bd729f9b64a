// Package session drives a voice session through microphone permission,
// credential acquisition, connection and teardown.
package session

// State is one variant of the session lifecycle. The set of variants is
// closed: Idle, CheckingPermission, RequestingToken, Connected, Denied,
// Failed and Disconnected.
type State interface {
	// Name returns the wire name of the variant, ex: "requesting_token".
	Name() string
	isState()
}

// Idle - No connect has been requested yet.
type Idle struct{}

// CheckingPermission - Waiting for the microphone to be acquired.
type CheckingPermission struct{}

// RequestingToken - Waiting for the backend to issue a session credential.
type RequestingToken struct{}

// Connected - Credentials issued; the transport owns the live connection.
type Connected struct {
	Token     string
	ServerURL string
}

// Denied - Microphone access was refused or unavailable.
type Denied struct {
	Reason string
}

// Failed - The credential request failed or timed out.
type Failed struct {
	Reason string
}

// Disconnected - The session was torn down.
type Disconnected struct{}

func (Idle) Name() string               { return "idle" }
func (CheckingPermission) Name() string { return "checking_permission" }
func (RequestingToken) Name() string    { return "requesting_token" }
func (Connected) Name() string          { return "connected" }
func (Denied) Name() string             { return "denied" }
func (Failed) Name() string             { return "failed" }
func (Disconnected) Name() string       { return "disconnected" }

func (Idle) isState()               {}
func (CheckingPermission) isState() {}
func (RequestingToken) isState()    {}
func (Connected) isState()          {}
func (Denied) isState()             {}
func (Failed) isState()             {}
func (Disconnected) isState()       {}

// ReasonOf returns the reason carried by Denied and Failed, "" otherwise.
func ReasonOf(s State) string {
	switch v := s.(type) {
	case Denied:
		return v.Reason
	case Failed:
		return v.Reason
	default:
		return ""
	}
}

// IsPending reports whether a connect attempt is in flight.
func IsPending(s State) bool {
	switch s.(type) {
	case CheckingPermission, RequestingToken:
		return true
	default:
		return false
	}
}

// canConnect reports whether a new connect may start from s.
func canConnect(s State) error {
	switch s.(type) {
	case Idle, Denied, Failed, Disconnected:
		return nil
	case CheckingPermission, RequestingToken:
		return ErrConnectInProgress
	case Connected:
		return ErrAlreadyConnected
	default:
		return ErrConnectInProgress
	}
}
