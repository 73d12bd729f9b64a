// Package mock provides a scripted STT adapter for local runs and tests
// without cloud credentials. Each audio frame advances the script by one
// step: the next partial, or the final plus an end of utterance.
package mock

import (
	"context"
	"sync"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/stt"
)

// SimulatedUtterance is one scripted utterance.
type SimulatedUtterance struct {
	Partials   []string // progressive partial transcripts
	Final      string
	Confidence float64
}

// DefaultUtterances are questions a user asks about uploaded documents.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"What does", "What does the", "What does the handbook say"},
		Final:      "What does the handbook say about remote work",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"How many", "How many vacation days"},
		Final:      "How many vacation days do I get",
		Confidence: 0.92,
	},
	{
		Partials:   []string{"Who approves", "Who approves expense"},
		Final:      "Who approves expense reports",
		Confidence: 0.9,
	},
	{
		Partials:   []string{"Is there", "Is there a deadline"},
		Final:      "Is there a deadline for the annual review",
		Confidence: 0.88,
	},
	{
		Partials:   []string{"Thanks"},
		Final:      "Thanks that's all",
		Confidence: 0.97,
	},
}

// AgentReplies are scripted agent answers, paired with DefaultUtterances.
var AgentReplies = []SimulatedUtterance{
	{Partials: []string{"Let me check", "Let me check the handbook"}, Final: "Let me check the handbook for you", Confidence: 1},
	{Partials: []string{"You get"}, Final: "You get twenty days of paid vacation per year", Confidence: 1},
	{Partials: []string{"Expense reports"}, Final: "Expense reports are approved by your manager", Confidence: 1},
	{Partials: []string{"Reviews are"}, Final: "Reviews are due by the end of November", Confidence: 1},
	{Partials: []string{"You're"}, Final: "You're welcome, goodbye", Confidence: 1},
}

// Adapter implements stt.Adapter by replaying a script. Callbacks are
// delivered synchronously from SendAudio and Close, in script order.
type Adapter struct {
	script []SimulatedUtterance

	mu           sync.Mutex
	cb           stt.Callback
	index        int // current utterance
	partialIndex int // next partial of the current utterance
	closed       bool
}

// New creates an adapter replaying DefaultUtterances.
func New() *Adapter {
	return NewScripted(DefaultUtterances)
}

// NewScripted creates an adapter replaying script, cycling at the end.
func NewScripted(script []SimulatedUtterance) *Adapter {
	if len(script) == 0 {
		script = DefaultUtterances
	}
	return &Adapter{script: script}
}

// Start implements stt.Adapter.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

type step struct {
	partial string
	final   *SimulatedUtterance
}

// SendAudio advances the script by one step.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	if a.closed || a.cb == nil {
		a.mu.Unlock()
		return nil
	}
	cb := a.cb
	s := a.advanceLocked()
	a.mu.Unlock()

	deliver(cb, s)
	return nil
}

func (a *Adapter) advanceLocked() step {
	utt := a.script[a.index%len(a.script)]
	if a.partialIndex < len(utt.Partials) {
		p := utt.Partials[a.partialIndex]
		a.partialIndex++
		return step{partial: p}
	}
	a.index++
	a.partialIndex = 0
	return step{final: &utt}
}

func deliver(cb stt.Callback, s step) {
	if s.final == nil {
		cb.OnPartial(s.partial)
		return
	}
	cb.OnFinal(s.final.Final, s.final.Confidence)
	cb.OnEndOfUtterance()
}

// Utterance returns the utterance the script is currently on.
func (a *Adapter) Utterance() SimulatedUtterance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.script[a.index%len(a.script)]
}

// Close ends the session. An utterance that has started but not finished
// is finalized first.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cb := a.cb
	var pending *SimulatedUtterance
	if a.partialIndex > 0 {
		utt := a.script[a.index%len(a.script)]
		pending = &utt
		a.index++
		a.partialIndex = 0
	}
	a.mu.Unlock()

	if cb != nil && pending != nil {
		cb.OnFinal(pending.Final, pending.Confidence)
	}
	return nil
}
