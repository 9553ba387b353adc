package core

import "github.com/rs/zerolog"

// Broadcaster fans an event out to every live subscriber of a room. Delivery
// is enqueue-and-return: a slow or half-closed connection never blocks the
// broadcasting goroutine, and a failed enqueue to one subscriber does not
// affect the others.
type Broadcaster struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewBroadcaster builds a broadcaster over the given registry.
func NewBroadcaster(registry *Registry, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: logger}
}

// Broadcast delivers the event to the room's current subscribers. Connections
// not subscribed at this moment never see the event on the live path; they
// recover history through the message store cursor instead.
//
// Events broadcast for the same room from the same goroutine arrive at every
// subscriber in broadcast order: each client queue is FIFO and enqueueing
// never blocks, so a later Broadcast cannot overtake an earlier one.
func (b *Broadcaster) Broadcast(roomKey string, event *Event) {
	for _, client := range b.registry.Subscribers(roomKey) {
		if !client.Enqueue(event) {
			b.log.Debug().
				Str("session_id", client.SessionID).
				Str("room", roomKey).
				Msg("subscriber closed, event not delivered")
		}
	}
}
