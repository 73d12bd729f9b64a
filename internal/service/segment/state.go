// Package segment normalizes raw speech segments into transcript segments
// and tracks the revision lifecycle of each utterance.
package segment

import (
	"fmt"
	"sync"
)

// State represents the revision state of one utterance.
type State int

const (
	// StateUnseen - No segment has been observed for the source id.
	StateUnseen State = iota
	// StateOpen - Partial revisions observed, no final yet.
	StateOpen
	// StateFinalized - A final revision has been observed.
	StateFinalized
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnseen:
		return "UNSEEN"
	case StateOpen:
		return "OPEN"
	case StateFinalized:
		return "FINALIZED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Observation describes how a segment relates to its utterance's history.
type Observation struct {
	Previous State
	Current  State
	// Late is set when the segment arrived after the utterance was finalized.
	Late bool
}

// Tracker follows the revision lifecycle of every utterance of one stream.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	UNSEEN → OPEN → FINALIZED
//	  │               ▲   │
//	  └── final ──────┘   └── any segment ──→ Late (still forwarded)
//
// The tracker never rejects a segment: the transcript applies
// last-write-wins per utterance, and late revisions are only reported.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]State)}
}

// Observe records a segment for sourceId and reports the transition.
func (t *Tracker) Observe(sourceId string, final bool) Observation {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.states[sourceId]
	obs := Observation{Previous: prev, Late: prev == StateFinalized}

	// A partial after the final is applied verbatim downstream, so the
	// utterance counts as open again.
	obs.Current = StateOpen
	if final {
		obs.Current = StateFinalized
	}
	t.states[sourceId] = obs.Current
	return obs
}

// State returns the current state for sourceId.
func (t *Tracker) State(sourceId string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[sourceId]
}

// Len returns the number of utterances tracked.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}

// Reset forgets every utterance. Used when the session is torn down.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]State)
}
