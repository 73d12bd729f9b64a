package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/apperr"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

// DefaultTokenTimeout bounds the wait for a session credential.
const DefaultTokenTimeout = 10 * time.Second

// Microphone acquires (and releases) the capture device.
// Acquire returns ErrPermissionDenied when the user refuses access.
type Microphone interface {
	Acquire(ctx context.Context) error
}

// CredentialIssuer issues the token and server URL for a room.
type CredentialIssuer interface {
	IssueCredential(ctx context.Context, roomName, participantName string) (models.Credential, error)
}

// TransitionFunc observes every state change.
type TransitionFunc func(from, to State)

// Config holds state machine settings.
type Config struct {
	TokenTimeout time.Duration
	// Now is the clock used for room and participant names.
	Now func() time.Time
}

// DefaultConfig returns the default state machine settings.
func DefaultConfig() Config {
	return Config{
		TokenTimeout: DefaultTokenTimeout,
		Now:          time.Now,
	}
}

// Machine owns the session state.
//
// Transitions:
//
//	Idle|Denied|Failed|Disconnected → CheckingPermission → RequestingToken → Connected
//	CheckingPermission → Denied
//	RequestingToken → Failed
//	any → Disconnected (Disconnect, TransportFailed)
//
// Each Connect takes a new attempt number. Disconnect bumps it, so results
// of an overtaken attempt are dropped when they arrive.
type Machine struct {
	mic     Microphone
	issuer  CredentialIssuer
	cfg     Config
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu          sync.Mutex
	state       State
	attempt     uint64
	cancel      context.CancelFunc
	subscribers []TransitionFunc
	teardown    []func()
}

// NewMachine creates a machine in the Idle state.
func NewMachine(mic Microphone, issuer CredentialIssuer, cfg Config) *Machine {
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = DefaultTokenTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Machine{
		mic:     mic,
		issuer:  issuer,
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("session"),
		state:   Idle{},
	}
}

// Subscribe registers fn for every subsequent transition. Subscribers run
// with the machine locked and must not call back into it.
func (m *Machine) Subscribe(fn TransitionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// OnDisconnect registers a teardown hook run on every disconnect, after
// the state has moved to Disconnected.
func (m *Machine) OnDisconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardown = append(m.teardown, fn)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect runs one connect attempt to completion and returns the state it
// settled in. Permission and credential failures are returned as
// *apperr.Error next to the Denied or Failed state.
func (m *Machine) Connect(ctx context.Context) (State, error) {
	m.mu.Lock()
	if err := canConnect(m.state); err != nil {
		state := m.state
		m.mu.Unlock()
		return state, err
	}
	m.attempt++
	attempt := m.attempt
	attemptCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.transitionLocked(CheckingPermission{})
	m.mu.Unlock()
	defer cancel()

	m.metrics.RecordConnectAttempt()
	logger := m.logger.With().Uint64("attempt", attempt).Logger()

	if err := m.mic.Acquire(attemptCtx); err != nil {
		reason := ReasonDeviceUnavailable
		if errors.Is(err, ErrPermissionDenied) {
			reason = ReasonPermissionDenied
		}
		logger.Warn().Err(err).Str("reason", reason).Msg("Microphone unavailable")
		return m.settle(attempt, Denied{Reason: reason},
			apperr.E(apperr.KindPermission, "session.Connect", reason, err))
	}

	if state, ok := m.advance(attempt, RequestingToken{}); !ok {
		return state, ErrSuperseded
	}

	now := m.cfg.Now()
	room, participant := RoomName(now), ParticipantName(now)
	start := time.Now()
	cred, err := m.issue(attemptCtx, room, participant)
	m.metrics.RecordTokenLatency(time.Since(start).Seconds())

	if err != nil {
		reason := classifyCredentialError(attemptCtx, err)
		logger.Warn().Err(err).Str("reason", reason).Str("room", room).Msg("Credential request failed")
		return m.settle(attempt, Failed{Reason: reason},
			apperr.E(apperr.KindCredential, "session.Connect", reason, err))
	}

	logger.Info().Str("room", room).Str("participant", participant).Msg("Session connected")
	return m.settle(attempt, Connected{Token: cred.Token, ServerURL: cred.ServerURL}, nil)
}

type issueResult struct {
	cred models.Credential
	err  error
}

// issue calls the issuer under the token timeout. The wait ends at the
// deadline even if the issuer ignores ctx.
func (m *Machine) issue(ctx context.Context, room, participant string) (models.Credential, error) {
	tctx, cancel := context.WithTimeout(ctx, m.cfg.TokenTimeout)
	defer cancel()

	done := make(chan issueResult, 1)
	go func() {
		cred, err := m.issuer.IssueCredential(tctx, room, participant)
		done <- issueResult{cred: cred, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && (r.cred.Token == "" || r.cred.ServerURL == "") {
			return models.Credential{}, errors.New("credential response missing token or url")
		}
		return r.cred, r.err
	case <-tctx.Done():
		return models.Credential{}, tctx.Err()
	}
}

// serverMessenger is implemented by errors that carry a backend message.
type serverMessenger interface {
	ServerMessage() string
}

func classifyCredentialError(attemptCtx context.Context, err error) string {
	if attemptCtx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var sm serverMessenger
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return ReasonConnectionFailed
}

// advance moves to next if attempt is still current.
func (m *Machine) advance(attempt uint64, next State) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempt != m.attempt {
		return m.state, false
	}
	m.transitionLocked(next)
	return next, true
}

// settle ends the attempt in final, unless a disconnect overtook it.
func (m *Machine) settle(attempt uint64, final State, err error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempt != m.attempt {
		m.logger.Debug().Uint64("attempt", attempt).Str("discarded", final.Name()).Msg("Superseded connect result discarded")
		return m.state, ErrSuperseded
	}
	m.cancel = nil
	m.transitionLocked(final)
	m.metrics.RecordConnectOutcome(final.Name(), ReasonOf(final))
	return final, err
}

// Disconnect tears the session down from any state. It never waits for a
// pending permission or credential call.
func (m *Machine) Disconnect() {
	m.disconnect("requested", nil)
}

// TransportFailed handles a failure signaled by the transport after the
// session was established.
func (m *Machine) TransportFailed(err error) {
	m.disconnect("transport_failed", apperr.E(apperr.KindTransport, "session.TransportFailed", "transport_failed", err))
}

func (m *Machine) disconnect(cause string, err error) {
	m.mu.Lock()
	m.attempt++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	from := m.state
	m.transitionLocked(Disconnected{})
	hooks := append([]func(){}, m.teardown...)
	m.mu.Unlock()

	m.logger.Info().Err(err).Str("from", from.Name()).Str("cause", cause).Msg("Session disconnected")
	for _, fn := range hooks {
		fn()
	}
}

func (m *Machine) transitionLocked(to State) {
	from := m.state
	m.state = to
	if from.Name() == to.Name() {
		return
	}
	m.metrics.RecordTransition(from.Name(), to.Name())
	for _, fn := range m.subscribers {
		fn(from, to)
	}
}
