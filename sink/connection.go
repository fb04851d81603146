package sink

import (
	"chat-link/domain"
	"chat-link/errors"
	"context"
	"sync"

	"github.com/google/uuid"
)

// Connection is the outbound side of one websocket.
// Push is called by the delivery coordinator, the websocket writer drains Events.
type Connection struct {
	id     string
	events chan domain.ReceivedMessage

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewConnection(bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Connection{
		id:     uuid.NewString(),
		events: make(chan domain.ReceivedMessage, bufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Push never blocks on a slow reader: a full buffer is reported as backpressure
// and the message stays available through the history endpoint.
func (c *Connection) Push(ctx context.Context, msg domain.ReceivedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.ErrConnectionClosed
	}

	select {
	case c.events <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrConnectionBackpressure
	}
}

func (c *Connection) Events() <-chan domain.ReceivedMessage {
	return c.events
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close can be called several times, only the first call has an effect.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
