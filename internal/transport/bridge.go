package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

const writeTimeout = 5 * time.Second

// ErrClosed is returned when writing to a closed link.
var ErrClosed = errors.New("transport: link closed")

// Bridge dials the websocket bridge at url.
type Bridge struct {
	url    string
	dialer *websocket.Dialer
}

// NewBridge creates a bridge dialer for url, ex: "ws://localhost:7880/bridge".
func NewBridge(url string) *Bridge {
	return &Bridge{url: url, dialer: websocket.DefaultDialer}
}

// Open dials the bridge, sends the join frame and starts dispatching
// inbound frames to h.
func (b *Bridge) Open(ctx context.Context, cred models.Credential, h Handler) (Link, error) {
	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to transport bridge: %w", err)
	}

	c := &Conn{
		conn:    conn,
		handler: h,
		done:    make(chan struct{}),
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("transport").With().Str("room", cred.RoomName).Logger(),
	}

	if err := c.write(Frame{Type: FrameJoin, Token: cred.Token, URL: cred.ServerURL}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to join transport: %w", err)
	}

	go c.readLoop()
	return c, nil
}

// Conn is an open bridge link.
type Conn struct {
	conn    *websocket.Conn
	handler Handler
	metrics *metrics.Metrics
	logger  zerolog.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	done      chan struct{}
}

// SetMicrophoneEnabled mutes or unmutes the local microphone track.
func (c *Conn) SetMicrophoneEnabled(enabled bool) error {
	if c.isClosed() {
		return ErrClosed
	}
	return c.write(Frame{Type: FrameMicrophone, Enabled: &enabled})
}

// Close tears the link down. Safe to call more than once, including from
// a Handler callback; it does not wait for the read loop to exit.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "teardown"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) write(f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) readLoop() {
	defer close(c.done)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = fmt.Errorf("transport bridge closed the link: %w", err)
			}
			c.logger.Warn().Err(err).Msg("Transport link lost")
			c.handler.OnTransportError(err)
			return
		}

		var f Frame
		if err := json.Unmarshal(payload, &f); err != nil {
			c.logger.Debug().Err(err).Msg("Ignoring malformed frame")
			continue
		}
		if c.isClosed() {
			return
		}
		c.dispatch(f)
	}
}

func (c *Conn) dispatch(f Frame) {
	c.metrics.RecordTransportEvent(f.Type)

	switch f.Type {
	case FrameConnection:
		c.handler.OnConnectionState(f.State)
	case FrameAgent:
		c.handler.OnAgentState(f.State)
	case FrameSegment:
		if !f.Speaker.Valid() {
			c.logger.Debug().Str("speaker", string(f.Speaker)).Msg("Ignoring segment with unknown speaker")
			return
		}
		c.handler.OnSegment(f.Speaker, f.ID, f.Text, f.Final)
	case FrameError:
		// Errors from the bridge are reported and end the link.
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		msg := f.Message
		if msg == "" {
			msg = "unknown transport error"
		}
		c.handler.OnTransportError(errors.New(msg))
		_ = c.conn.Close()
	default:
		c.logger.Debug().Str("type", f.Type).Msg("Ignoring unknown frame")
	}
}
