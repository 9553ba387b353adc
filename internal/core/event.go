package core

import "github.com/worksphere/connect-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventChatMessage notifies subscribers about a persisted chat message.
	EventChatMessage EventKind = iota
	// EventTypingStatus notifies subscribers that a user started or
	// stopped typing in a room.
	EventTypingStatus
)

// Event is delivered to room subscribers. The same value is rendered to the
// wire by both the socket push path and the polling fallback, so the shape a
// client sees never depends on the transport.
type Event struct {
	Kind     EventKind
	Room     string
	UserID   int64
	IsTyping bool
	Message  *store.Message
}
