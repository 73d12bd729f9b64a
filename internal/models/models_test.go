package models

import "testing"

func TestEntryID(t *testing.T) {
	seg := Segment{SourceID: "A", Speaker: SpeakerUser}
	if got := seg.EntryID(); got != "user:A" {
		t.Errorf("EntryID() = %v, want user:A", got)
	}
	if EntryID(SpeakerAgent, "A") == EntryID(SpeakerUser, "A") {
		t.Error("expected ids namespaced by speaker")
	}
}

func TestSpeaker_Valid(t *testing.T) {
	if !SpeakerUser.Valid() || !SpeakerAgent.Valid() {
		t.Error("expected known speakers to be valid")
	}
	if Speaker("system").Valid() {
		t.Error("expected unknown speaker to be invalid")
	}
}

func TestTranscriptLog_MostRecentFinal(t *testing.T) {
	log := TranscriptLog{Entries: []TranscriptEntry{
		{ID: "user:A", Speaker: SpeakerUser, Text: "first", IsFinal: true, Revision: 5},
		{ID: "user:B", Speaker: SpeakerUser, Text: "second", IsFinal: true, Revision: 3},
		{ID: "user:C", Speaker: SpeakerUser, Text: "partial", IsFinal: false, Revision: 9},
		{ID: "agent:D", Speaker: SpeakerAgent, Text: "agent", IsFinal: true, Revision: 8},
	}}

	// user:A was revised after user:B, so it wins despite its position.
	e, ok := log.MostRecentFinal(SpeakerUser)
	if !ok || e.ID != "user:A" {
		t.Errorf("expected user:A, got %+v (ok=%v)", e, ok)
	}

	e, ok = log.MostRecentFinal(SpeakerAgent)
	if !ok || e.ID != "agent:D" {
		t.Errorf("expected agent:D, got %+v (ok=%v)", e, ok)
	}

	if _, ok := (TranscriptLog{}).MostRecentFinal(SpeakerUser); ok {
		t.Error("expected no entry in empty log")
	}
}

func TestSourceHit_MatchPercent(t *testing.T) {
	tests := []struct {
		score    float64
		expected int
	}{
		{0, 100},
		{1, 50},
		{0.25, 80},
		{3, 25},
		{-0.5, 100},
	}

	for _, tt := range tests {
		if got := (SourceHit{SimilarityScore: tt.score}).MatchPercent(); got != tt.expected {
			t.Errorf("MatchPercent(%v) = %v, want %v", tt.score, got, tt.expected)
		}
	}
}

func TestQueryResult_ToSourceHit(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		label    string
	}{
		{"source present", map[string]any{"source": "manual.pdf", "chunk_index": 2.0}, "manual.pdf"},
		{"source missing", map[string]any{}, "Unknown"},
		{"nil metadata", nil, "Unknown"},
		{"source not a string", map[string]any{"source": 7.0}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := QueryResult{Content: "c", SimilarityScore: 0.4, Metadata: tt.metadata}.ToSourceHit()
			if hit.Label != tt.label {
				t.Errorf("expected label %q, got %q", tt.label, hit.Label)
			}
			if hit.Content != "c" || hit.SimilarityScore != 0.4 {
				t.Errorf("unexpected hit: %+v", hit)
			}
		})
	}
}
