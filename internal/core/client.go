package core

import "sync"

// defaultEventBuffer bounds the outbound queue of a single connection.
const defaultEventBuffer = 32

// Client is a live connection as seen by the core layer. It carries the
// authenticated identity and a bounded outbound event queue drained by the
// transport's write loop.
type Client struct {
	SessionID string
	UserID    int64
	Username  string
	Events    chan *Event

	mu     sync.Mutex
	closed bool
}

// NewClient constructs a client with an initialized event queue.
func NewClient(sessionID string, userID int64, username string) *Client {
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		Username:  username,
		Events:    make(chan *Event, defaultEventBuffer),
	}
}

// Enqueue appends an event to the outbound queue without blocking. When the
// queue is full the oldest buffered event is dropped to make room, so a slow
// reader only loses its own backlog. Returns false if the event was not
// accepted because the client is closed.
func (c *Client) Enqueue(event *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for {
		select {
		case c.Events <- event:
			return true
		default:
		}
		select {
		case <-c.Events:
		default:
		}
	}
}

// CloseQueue marks the client closed so no further events are accepted.
// The Events channel itself is left open; the write loop stops via its
// own context.
func (c *Client) CloseQueue() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
