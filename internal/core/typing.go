package core

import (
	"sync"
	"time"
)

// TypingWindow is how long a typing signal stays live without being
// refreshed. It matches the polling cadence of the fallback transport with
// margin, and is deliberately the same for socket and polled clients so both
// observe the same "user is typing" duration.
const TypingWindow = 5 * time.Second

// TypingStore tracks ephemeral per-room typing state. Entries expire after
// TypingWindow; expired entries are evicted lazily on read and are never
// reported as active. State here is transient and safe to lose on restart.
type TypingStore struct {
	mu      sync.Mutex
	entries map[string]map[int64]time.Time
	now     func() time.Time
}

// NewTypingStore constructs a typing store. now may be nil, in which case
// time.Now is used; tests inject their own clock.
func NewTypingStore(now func() time.Time) *TypingStore {
	if now == nil {
		now = time.Now
	}
	return &TypingStore{
		entries: make(map[string]map[int64]time.Time),
		now:     now,
	}
}

// SetTyping records or clears a typing signal. An explicit stop removes the
// entry immediately, taking priority over TTL expiry.
func (t *TypingStore) SetTyping(roomKey string, userID int64, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isTyping {
		if users, ok := t.entries[roomKey]; ok {
			delete(users, userID)
			if len(users) == 0 {
				delete(t.entries, roomKey)
			}
		}
		return
	}

	users, ok := t.entries[roomKey]
	if !ok {
		users = make(map[int64]time.Time)
		t.entries[roomKey] = users
	}
	users[userID] = t.now()
}

// ActiveTypists returns the users whose typing signal for the room is still
// within TypingWindow of now. Stale entries are evicted as a side effect.
func (t *TypingStore) ActiveTypists(roomKey string, now time.Time) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.entries[roomKey]
	if !ok {
		return nil
	}

	active := make([]int64, 0, len(users))
	for userID, signaled := range users {
		if now.Sub(signaled) > TypingWindow {
			delete(users, userID)
			continue
		}
		active = append(active, userID)
	}
	if len(users) == 0 {
		delete(t.entries, roomKey)
	}
	return active
}
