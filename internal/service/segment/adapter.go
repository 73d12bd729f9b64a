package segment

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

// Sink receives normalized segments. The transcript merge engine is the
// production sink.
type Sink interface {
	Ingest(seg models.Segment) models.TranscriptLog
}

// Raw is a segment as delivered by a transport or recognizer.
type Raw struct {
	ID    string
	Text  string
	Final bool
}

// Adapter normalizes the segments of one speaker's stream and forwards
// them to a Sink. It also implements stt.Callback so a recognizer that does
// not label utterances can feed the stream; source ids are then generated
// and rotated on end of utterance.
type Adapter struct {
	speaker models.Speaker
	sink    Sink
	gen     *Generator
	tracker *Tracker
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu        sync.Mutex
	currentId string
}

// NewAdapter creates an adapter for one speaker's stream.
func NewAdapter(speaker models.Speaker, sink Sink, gen *Generator) *Adapter {
	if gen == nil {
		gen = New()
	}
	return &Adapter{
		speaker: speaker,
		sink:    sink,
		gen:     gen,
		tracker: NewTracker(),
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("segment-adapter").With().Str("speaker", string(speaker)).Logger(),
	}
}

// Speaker returns the stream's speaker.
func (a *Adapter) Speaker() models.Speaker {
	return a.speaker
}

// Push normalizes raw and forwards it to the sink. It returns the forwarded
// segment, or false when raw was dropped.
func (a *Adapter) Push(raw Raw) (models.Segment, bool) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		a.metrics.RecordSegmentDropped(string(a.speaker), "missing_source_id")
		a.logger.Warn().Str("text", raw.Text).Msg("Segment without source id dropped")
		return models.Segment{}, false
	}

	seg := models.Segment{
		SourceID: id,
		Speaker:  a.speaker,
		Text:     strings.TrimSpace(raw.Text),
		IsFinal:  raw.Final,
	}

	obs := a.tracker.Observe(id, raw.Final)
	if obs.Late {
		a.metrics.RecordLateRevision(string(a.speaker))
		a.logger.Debug().
			Str("sourceId", id).
			Bool("final", raw.Final).
			Msg("Revision after final applied as last-write-wins")
	}

	a.metrics.RecordSegment(string(a.speaker), seg.IsFinal)
	a.sink.Ingest(seg)
	return seg, true
}

// Reset forgets utterance history and the generated source id.
func (a *Adapter) Reset() {
	a.mu.Lock()
	a.currentId = ""
	a.mu.Unlock()
	a.tracker.Reset()
}

// --- stt.Callback implementation ---

// OnPartial forwards an interim transcript for the current utterance.
func (a *Adapter) OnPartial(text string) {
	a.Push(Raw{ID: a.current(), Text: text})
}

// OnFinal forwards the final transcript for the current utterance.
func (a *Adapter) OnFinal(text string, confidence float64) {
	id := a.current()
	a.logger.Debug().Str("sourceId", id).Float64("confidence", confidence).Msg("Final transcript")
	a.Push(Raw{ID: id, Text: text, Final: true})
}

// OnEndOfUtterance starts a new utterance for subsequent callbacks.
func (a *Adapter) OnEndOfUtterance() {
	a.rotate()
}

// OnError abandons the current utterance. The transcript keeps whatever
// revision it last received.
func (a *Adapter) OnError(err error) {
	a.mu.Lock()
	id := a.currentId
	a.mu.Unlock()

	a.logger.Warn().Err(err).Str("sourceId", id).Msg("Recognizer error, utterance abandoned")
	a.rotate()
}

func (a *Adapter) current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentId == "" {
		a.currentId = a.gen.Next(string(a.speaker))
	}
	return a.currentId
}

func (a *Adapter) rotate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentId = a.gen.Next(string(a.speaker))
}
