package core

import "sync"

// Registry maps room keys to the set of live connections subscribed to them.
// It is a cache of transient session state: membership truth lives in the
// store, and the registry can be discarded and rebuilt without data loss.
//
// All methods are safe for concurrent use. A single lock protects both the
// forward index and the per-client reverse index so join/leave/broadcast
// interleavings never lose updates.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

// Join subscribes a client to a room. Idempotent.
func (r *Registry) Join(roomKey string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.rooms[roomKey]
	if !ok {
		subs = make(map[*Client]struct{})
		r.rooms[roomKey] = subs
	}
	subs[c] = struct{}{}

	rooms, ok := r.byClient[c]
	if !ok {
		rooms = make(map[string]struct{})
		r.byClient[c] = rooms
	}
	rooms[roomKey] = struct{}{}
}

// Leave unsubscribes a client from a room. Idempotent. Empty rooms are
// garbage-collected.
func (r *Registry) Leave(roomKey string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomKey, c)
}

func (r *Registry) leaveLocked(roomKey string, c *Client) {
	if subs, ok := r.rooms[roomKey]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(r.rooms, roomKey)
		}
	}
	if rooms, ok := r.byClient[c]; ok {
		delete(rooms, roomKey)
		if len(rooms) == 0 {
			delete(r.byClient, c)
		}
	}
}

// LeaveAll removes the client from every room it joined. Called on
// disconnect; safe against joins racing on other goroutines because the
// reverse index is read and cleared under the same lock.
func (r *Registry) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomKey := range r.byClient[c] {
		r.leaveLocked(roomKey, c)
	}
	delete(r.byClient, c)
}

// Subscribers returns a snapshot of the room's current subscriber set. The
// slice is a copy; later joins and leaves do not affect it.
func (r *Registry) Subscribers(roomKey string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.rooms[roomKey]
	out := make([]*Client, 0, len(subs))
	for c := range subs {
		out = append(out, c)
	}
	return out
}

// Rooms returns a snapshot of the room keys the client is subscribed to.
func (r *Registry) Rooms(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := r.byClient[c]
	out := make([]string, 0, len(rooms))
	for key := range rooms {
		out = append(out, key)
	}
	return out
}
