// Package transcript merges the user and agent segment streams into one
// ordered conversation log.
package transcript

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

// Subscriber receives a snapshot after every change to the log.
type Subscriber func(log models.TranscriptLog)

// Engine owns the transcript log. Entries are keyed by speaker and source
// id, appended on first sight and updated in place afterwards; they are
// never removed or reordered until Clear.
//
// Ingest is safe to call from both segment streams concurrently. Subscribers
// run synchronously, in ingest order, while the engine is locked: they must
// not call back into the engine.
type Engine struct {
	mu          sync.Mutex
	entries     []models.TranscriptEntry
	index       map[string]int
	revision    uint64
	subscribers []Subscriber

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	return &Engine{
		index:   make(map[string]int),
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("transcript"),
	}
}

// Subscribe registers fn for every subsequent snapshot.
func (e *Engine) Subscribe(fn Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// Ingest merges seg into the log and returns the resulting snapshot.
func (e *Engine) Ingest(seg models.Segment) models.TranscriptLog {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.revision++
	id := seg.EntryID()
	entry := models.TranscriptEntry{
		ID:       id,
		Speaker:  seg.Speaker,
		Text:     seg.Text,
		IsFinal:  seg.IsFinal,
		Revision: e.revision,
	}

	if pos, ok := e.index[id]; ok {
		prev := e.entries[pos]
		if prev.IsFinal && !seg.IsFinal {
			e.logger.Debug().Str("entryId", id).Msg("Final entry overwritten by partial")
		}
		e.entries[pos] = entry
	} else {
		e.index[id] = len(e.entries)
		e.entries = append(e.entries, entry)
		e.metrics.RecordEntryCreated(string(seg.Speaker))
	}

	snap := e.snapshotLocked()
	e.notifyLocked(snap)
	return snap
}

// Snapshot returns a copy of the current log.
func (e *Engine) Snapshot() models.TranscriptLog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Clear empties the log and notifies subscribers with the empty snapshot.
// The revision counter keeps increasing so snapshots stay ordered.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cleared := len(e.entries)
	e.entries = nil
	e.index = make(map[string]int)
	e.revision++

	e.logger.Debug().Int("entries", cleared).Msg("Transcript cleared")
	e.notifyLocked(e.snapshotLocked())
}

func (e *Engine) snapshotLocked() models.TranscriptLog {
	out := make([]models.TranscriptEntry, len(e.entries))
	copy(out, e.entries)
	return models.TranscriptLog{Entries: out, Revision: e.revision}
}

func (e *Engine) notifyLocked(snap models.TranscriptLog) {
	for _, fn := range e.subscribers {
		fn(snap)
	}
}
