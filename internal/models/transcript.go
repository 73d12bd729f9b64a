// Package models defines the records exchanged between the coordinator components.
package models

import "fmt"

// Speaker identifies which stream a segment came from.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Valid reports whether s is one of the known speakers.
func (s Speaker) Valid() bool {
	return s == SpeakerUser || s == SpeakerAgent
}

// Segment is one incremental speech-to-text update for a single utterance.
// SourceID is stable across the partial revisions of that utterance.
type Segment struct {
	SourceID string  `json:"sourceId"`
	Speaker  Speaker `json:"speaker"`
	Text     string  `json:"text"`
	IsFinal  bool    `json:"isFinal"`
}

// EntryID returns the namespaced transcript entry id for the segment.
func (s Segment) EntryID() string {
	return EntryID(s.Speaker, s.SourceID)
}

// EntryID derives the transcript entry id from a speaker and a source id.
func EntryID(speaker Speaker, sourceID string) string {
	return fmt.Sprintf("%s:%s", speaker, sourceID)
}

// TranscriptEntry is the merged view of one utterance.
type TranscriptEntry struct {
	ID       string  `json:"id"`
	Speaker  Speaker `json:"speaker"`
	Text     string  `json:"text"`
	IsFinal  bool    `json:"isFinal"`
	Revision uint64  `json:"revision"` // engine revision at the entry's last update
}

// TranscriptLog is an ordered snapshot of the conversation.
type TranscriptLog struct {
	Entries  []TranscriptEntry `json:"entries"`
	Revision uint64            `json:"revision"`
}

// Len returns the number of entries in the log.
func (l TranscriptLog) Len() int {
	return len(l.Entries)
}

// MostRecentFinal returns the most recently updated final entry for the speaker.
func (l TranscriptLog) MostRecentFinal(speaker Speaker) (TranscriptEntry, bool) {
	var (
		found TranscriptEntry
		ok    bool
	)
	for _, e := range l.Entries {
		if e.Speaker != speaker || !e.IsFinal {
			continue
		}
		if !ok || e.Revision > found.Revision {
			found = e
			ok = true
		}
	}
	return found, ok
}
