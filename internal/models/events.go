package models

// Event types published on the event bus.
const (
	EventTranscriptFinal = "voice.transcript.final"
	EventSessionState    = "voice.session.state"
	EventRetrievalResult = "voice.retrieval.result"
)

// TranscriptFinalEvent is published once per finalized transcript entry revision.
type TranscriptFinalEvent struct {
	EventType string  `json:"eventType"`
	SessionID string  `json:"sessionId"`
	Timestamp int64   `json:"timestamp"`
	EntryID   string  `json:"entryId"`
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
}

// SessionStateEvent is published on every session transition.
type SessionStateEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason,omitempty"`
}

// RetrievalResultEvent is published when a live query settles.
type RetrievalResultEvent struct {
	EventType   string      `json:"eventType"`
	SessionID   string      `json:"sessionId"`
	Timestamp   int64       `json:"timestamp"`
	QueryText   string      `json:"queryText"`
	Status      QueryStatus `json:"status"`
	ResultCount int         `json:"resultCount"`
}
