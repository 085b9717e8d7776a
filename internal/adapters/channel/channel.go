// Package channel provides the WebSocket adapter for the duplex event
// channel between the client and the worker process. The protocol it
// carries is transport-agnostic: named events wrapped in a JSON
// {event, data} envelope, pushed in both directions.
package channel

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// InboundHandler receives worker-pushed events in arrival order. The
// read loop is the single caller, so handlers never see two events
// interleaved.
type InboundHandler interface {
	HandleEvent(name string, data json.RawMessage) error
}

// HandlerFunc adapts a function to the InboundHandler interface.
type HandlerFunc func(name string, data json.RawMessage) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(name string, data json.RawMessage) error {
	return f(name, data)
}

// envelope is the wire frame for both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Channel is a persistent duplex event channel over one WebSocket
// connection. Writes are serialized; reads run on a dedicated loop that
// dispatches to the handler.
type Channel struct {
	url     string
	logger  *log.Logger
	dialer  *websocket.Dialer
	handler InboundHandler
	onError func(error)

	writeMu sync.Mutex
	conn    *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// Option configures the Channel.
type Option func(*Channel)

// WithDialer overrides the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) {
		c.dialer = d
	}
}

// WithErrorHandler sets the callback invoked when the read loop dies
// with a connection error. Connectivity failures surface here; they do
// not change coordinator state.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Channel) {
		c.onError = fn
	}
}

// New creates a channel bound to the worker's WebSocket URL.
func New(url string, handler InboundHandler, logger *log.Logger, opts ...Option) *Channel {
	c := &Channel{
		url:     url,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
		handler: handler,
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the worker and starts the inbound dispatch loop.
func (c *Channel) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to worker at %s", c.url)
	}
	c.conn = conn
	c.logger.Printf("[Channel] Connect: connected to %s", c.url)

	go c.readLoop()
	return nil
}

// Emit sends one named event to the worker. Implements the
// coordinator's OutboundChannel contract.
func (c *Channel) Emit(event string, payload any) error {
	if c.conn == nil {
		return errors.New("channel is not connected")
	}

	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s payload", event)
		}
		data = raw
	}

	// gorilla/websocket permits one concurrent writer.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(envelope{Event: event, Data: data}); err != nil {
		return errors.Wrapf(err, "failed to send %s", event)
	}
	return nil
}

// Close tears the connection down and stops the read loop.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Done is closed once the read loop has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// readLoop dispatches inbound events sequentially until the connection
// dies or Close is called. Handler errors are protocol-level (rejected
// events, violations); they are logged and the loop keeps going.
func (c *Channel) readLoop() {
	defer close(c.done)
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.closed:
				// Deliberate shutdown.
			default:
				c.logger.Printf("[Channel] readLoop: connection lost: %v", err)
				if c.onError != nil {
					c.onError(errors.Wrap(err, "worker connection lost"))
				}
			}
			return
		}
		if env.Event == "" {
			c.logger.Printf("[Channel] readLoop: dropping frame with no event name")
			continue
		}
		if err := c.handler.HandleEvent(env.Event, env.Data); err != nil {
			c.logger.Printf("[Channel] readLoop: event %s rejected: %v", env.Event, err)
		}
	}
}
