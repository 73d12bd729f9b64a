// Package coordinator wires the session lifecycle, the segment streams, the
// transcript, retrieval dispatch and the real-time transport into one voice
// session.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/apperr"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/presentation"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/retrieval"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/segment"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/session"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/stt"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/transcript"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/transport"
)

const publishTimeout = 5 * time.Second

// EventSink receives coordinator events. *events.Publisher is the
// production sink.
type EventSink interface {
	PublishTranscriptFinal(ctx context.Context, key string, event models.TranscriptFinalEvent) error
	PublishSessionState(ctx context.Context, key string, event models.SessionStateEvent) error
	PublishRetrievalResult(ctx context.Context, key string, event models.RetrievalResultEvent) error
}

// RecognizerFactory creates a recognizer that feeds the user stream from
// raw audio.
type RecognizerFactory func(ctx context.Context) (stt.Adapter, error)

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Machine    *session.Machine
	Engine     *transcript.Engine
	Retrieval  *retrieval.Controller
	Transport  transport.Dialer
	Events     EventSink
	Recognizer RecognizerFactory // optional
}

// Status is the externally visible session status.
type Status struct {
	SessionID         string              `json:"sessionId,omitempty"`
	State             string              `json:"state"`
	Reason            string              `json:"reason,omitempty"`
	Message           string              `json:"message,omitempty"`
	Presentation      presentation.Status `json:"presentation"`
	Label             string              `json:"label"`
	MicrophoneEnabled bool                `json:"microphoneEnabled"`
}

// Coordinator runs one voice session at a time.
//
// Lock order: mu, then transcript engine, then retrieval controller. The session
// machine notifies transitions while locked, so onTransition only touches
// idMu. Teardown runs outside the machine lock.
type Coordinator struct {
	machine    *session.Machine
	engine     *transcript.Engine
	retrieval  *retrieval.Controller
	dialer     transport.Dialer
	events     EventSink
	recognizer RecognizerFactory
	user       *segment.Adapter
	agent      *segment.Adapter
	logger     zerolog.Logger

	connectMu sync.Mutex

	idMu      sync.RWMutex
	sessionId string

	mu          sync.Mutex
	gen         uint64
	link        transport.Link
	rec         stt.Adapter
	conn        presentation.ConnectionSignal
	agentState  presentation.AgentSignal
	micEnabled  bool
	lastMessage string

	pubMu         sync.Mutex
	lastPublished map[string]string // entry id -> final text published

	out *outbox
}

// New wires a coordinator from deps.
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		machine:       deps.Machine,
		engine:        deps.Engine,
		retrieval:     deps.Retrieval,
		dialer:        deps.Transport,
		events:        deps.Events,
		recognizer:    deps.Recognizer,
		logger:        logging.WithComponent("coordinator"),
		micEnabled:    true,
		lastPublished: make(map[string]string),
	}
	c.out = newOutbox(c.logger)

	gen := segment.New()
	c.user = segment.NewAdapter(models.SpeakerUser, c.engine, gen)
	c.agent = segment.NewAdapter(models.SpeakerAgent, c.engine, gen)

	c.engine.Subscribe(c.retrieval.OnTranscriptUpdate)
	c.engine.Subscribe(c.onTranscript)
	c.retrieval.Subscribe(c.onQuery)
	c.machine.Subscribe(c.onTransition)
	c.machine.OnDisconnect(c.teardown)

	return c
}

// Connect runs the connect flow and, once connected, opens the transport.
func (c *Coordinator) Connect(ctx context.Context) (session.State, error) {
	if !c.connectMu.TryLock() {
		return c.machine.State(), session.ErrConnectInProgress
	}
	defer c.connectMu.Unlock()

	if _, ok := c.machine.State().(session.Connected); ok {
		return c.machine.State(), session.ErrAlreadyConnected
	}

	c.idMu.Lock()
	c.sessionId = uuid.NewString()
	c.idMu.Unlock()

	c.mu.Lock()
	c.lastMessage = ""
	c.mu.Unlock()

	state, err := c.machine.Connect(ctx)
	c.setMessage(err)
	connected, ok := state.(session.Connected)
	if !ok {
		return state, err
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.conn = presentation.ConnectionConnecting
	c.agentState = ""
	c.micEnabled = true
	c.mu.Unlock()

	cred := models.Credential{Token: connected.Token, ServerURL: connected.ServerURL}
	link, err := c.dialer.Open(ctx, cred, &linkHandler{c: c, gen: gen})
	if err != nil {
		err = apperr.E(apperr.KindTransport, "coordinator.Connect", "transport_unavailable", err)
		c.machine.TransportFailed(err)
		c.setMessage(err)
		return c.machine.State(), err
	}

	var rec stt.Adapter
	if c.recognizer != nil {
		rec, err = c.startRecognizer(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Recognizer unavailable, user stream comes from the transport only")
		}
	}

	c.mu.Lock()
	stale := c.gen != gen
	if !stale {
		c.link = link
		c.rec = rec
	}
	c.mu.Unlock()

	if _, ok := c.machine.State().(session.Connected); stale || !ok {
		// A disconnect overtook the transport handshake.
		_ = link.Close()
		if rec != nil {
			_ = rec.Close()
		}
		return c.machine.State(), session.ErrSuperseded
	}

	lg := logging.WithSession("coordinator", c.SessionID())
	lg.Info().Msg("Transport linked")
	return state, nil
}

func (c *Coordinator) startRecognizer(ctx context.Context) (stt.Adapter, error) {
	rec, err := c.recognizer(ctx)
	if err != nil {
		return nil, err
	}
	if err := rec.Start(context.Background(), c.user); err != nil {
		_ = rec.Close()
		return nil, err
	}
	return rec, nil
}

// Disconnect tears the session down.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	c.lastMessage = ""
	c.mu.Unlock()
	c.machine.Disconnect()
}

// SetMicrophoneEnabled mutes or unmutes the local microphone.
func (c *Coordinator) SetMicrophoneEnabled(enabled bool) error {
	c.mu.Lock()
	link := c.link
	c.mu.Unlock()
	if link == nil {
		return session.ErrNotConnected
	}
	if err := link.SetMicrophoneEnabled(enabled); err != nil {
		return err
	}

	c.mu.Lock()
	c.micEnabled = enabled
	c.mu.Unlock()
	c.logger.Info().Bool("enabled", enabled).Msg("Microphone toggled")
	return nil
}

// SendAudio forwards raw user audio to the recognizer.
func (c *Coordinator) SendAudio(ctx context.Context, audio []byte) error {
	c.mu.Lock()
	rec := c.rec
	c.mu.Unlock()
	if rec == nil {
		return session.ErrNotConnected
	}
	return rec.SendAudio(ctx, audio)
}

// Status returns the current session status.
func (c *Coordinator) Status() Status {
	state := c.machine.State()

	c.mu.Lock()
	conn, agent, mic, msg := c.conn, c.agentState, c.micEnabled, c.lastMessage
	c.mu.Unlock()

	switch state.(type) {
	case session.Connected:
		if conn == "" {
			conn = presentation.ConnectionConnecting
		}
	case session.CheckingPermission, session.RequestingToken:
		conn = presentation.ConnectionConnecting
	default:
		conn = presentation.ConnectionDisconnected
		mic = false
	}

	st := presentation.MapStatus(conn, agent)
	out := Status{
		SessionID:         c.SessionID(),
		State:             state.Name(),
		Reason:            session.ReasonOf(state),
		Presentation:      st,
		Label:             st.Label(),
		MicrophoneEnabled: mic,
	}
	switch state.(type) {
	case session.Denied, session.Failed, session.Disconnected:
		out.Message = msg
	}
	return out
}

// Transcript returns the current transcript snapshot.
func (c *Coordinator) Transcript() models.TranscriptLog {
	return c.engine.Snapshot()
}

// Query returns the live retrieval query.
func (c *Coordinator) Query() models.RetrievalQuery {
	return c.retrieval.Query()
}

// SessionID returns the id of the current or last session.
func (c *Coordinator) SessionID() string {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.sessionId
}

// Close disconnects and flushes pending events.
func (c *Coordinator) Close() {
	c.machine.Disconnect()
	c.retrieval.Wait()
	c.out.close()
}

func (c *Coordinator) setMessage(err error) {
	if err == nil || errors.Is(err, session.ErrSuperseded) {
		return
	}
	c.mu.Lock()
	c.lastMessage = apperr.UserMessage(err)
	c.mu.Unlock()
}

// teardown runs after the machine entered Disconnected.
func (c *Coordinator) teardown() {
	c.mu.Lock()
	c.gen++
	link, rec := c.link, c.rec
	c.link, c.rec = nil, nil
	c.conn = presentation.ConnectionDisconnected
	c.agentState = ""
	c.micEnabled = false
	c.mu.Unlock()

	if link != nil {
		if err := link.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Transport teardown failed")
		}
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Recognizer close failed")
		}
	}

	c.engine.Clear()
	c.retrieval.Reset()
	c.user.Reset()
	c.agent.Reset()

	c.pubMu.Lock()
	c.lastPublished = make(map[string]string)
	c.pubMu.Unlock()
}

// onTransition runs with the session machine locked.
func (c *Coordinator) onTransition(from, to session.State) {
	id := c.SessionID()
	ev := models.SessionStateEvent{
		EventType: models.EventSessionState,
		SessionID: id,
		Timestamp: time.Now().UnixMilli(),
		From:      from.Name(),
		To:        to.Name(),
		Reason:    session.ReasonOf(to),
	}
	lg := logging.WithSession("coordinator", id)
	lg.Info().
		Str("from", ev.From).
		Str("to", ev.To).
		Str("reason", ev.Reason).
		Msg("Session transition")
	c.publish(func(ctx context.Context) error {
		return c.events.PublishSessionState(ctx, id, ev)
	})
}

// onTranscript runs with the transcript engine locked.
func (c *Coordinator) onTranscript(log models.TranscriptLog) {
	var updated *models.TranscriptEntry
	for i := range log.Entries {
		if log.Entries[i].Revision == log.Revision {
			updated = &log.Entries[i]
			break
		}
	}
	if updated == nil || !updated.IsFinal || updated.Text == "" {
		return
	}

	c.pubMu.Lock()
	if c.lastPublished[updated.ID] == updated.Text {
		c.pubMu.Unlock()
		return
	}
	c.lastPublished[updated.ID] = updated.Text
	c.pubMu.Unlock()

	id := c.SessionID()
	ev := models.TranscriptFinalEvent{
		EventType: models.EventTranscriptFinal,
		SessionID: id,
		Timestamp: time.Now().UnixMilli(),
		EntryID:   updated.ID,
		Speaker:   updated.Speaker,
		Text:      updated.Text,
	}
	lg := logging.WithEntry(id, updated.ID)
	lg.Debug().Str("speaker", string(updated.Speaker)).Msg("Final transcript entry")
	c.publish(func(ctx context.Context) error {
		return c.events.PublishTranscriptFinal(ctx, id, ev)
	})
}

// onQuery runs with the retrieval controller locked.
func (c *Coordinator) onQuery(q models.RetrievalQuery) {
	if q.Status != models.QuerySucceeded && q.Status != models.QueryFailed {
		return
	}
	id := c.SessionID()
	ev := models.RetrievalResultEvent{
		EventType:   models.EventRetrievalResult,
		SessionID:   id,
		Timestamp:   time.Now().UnixMilli(),
		QueryText:   q.QueryText,
		Status:      q.Status,
		ResultCount: len(q.Results),
	}
	c.publish(func(ctx context.Context) error {
		return c.events.PublishRetrievalResult(ctx, id, ev)
	})
}

// publish queues an event without blocking the caller.
func (c *Coordinator) publish(fn func(ctx context.Context) error) {
	if c.events == nil {
		return
	}
	c.out.push(fn)
}
