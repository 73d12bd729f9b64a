package coordinator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const outboxSize = 256

// outbox delivers events in order on a single goroutine. Pushes never
// block; when the queue is full the event is dropped.
type outbox struct {
	logger zerolog.Logger
	ch     chan func(ctx context.Context) error
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func newOutbox(logger zerolog.Logger) *outbox {
	o := &outbox{
		logger: logger,
		ch:     make(chan func(ctx context.Context) error, outboxSize),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) push(fn func(ctx context.Context) error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.ch <- fn:
		return true
	default:
		o.logger.Warn().Msg("Event outbox full, event dropped")
		return false
	}
}

func (o *outbox) run() {
	defer close(o.done)
	for fn := range o.ch {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := fn(ctx); err != nil {
			o.logger.Warn().Err(err).Msg("Event publish failed")
		}
		cancel()
	}
}

// close stops accepting events and waits for queued ones.
func (o *outbox) close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
	o.mu.Unlock()
	<-o.done
}

// flush waits until every event pushed so far has been delivered.
func (o *outbox) flush() {
	marker := make(chan struct{})
	ok := o.push(func(context.Context) error {
		close(marker)
		return nil
	})
	if ok {
		<-marker
	}
}
