package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/store"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func assertNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeMembership implements store.MembershipStore over a static map.
type fakeMembership struct {
	members map[string]map[int64]bool
	err     error
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{members: make(map[string]map[int64]bool)}
}

func (f *fakeMembership) allow(roomKey string, userID int64) {
	if f.members[roomKey] == nil {
		f.members[roomKey] = make(map[int64]bool)
	}
	f.members[roomKey][userID] = true
}

func (f *fakeMembership) IsMember(_ context.Context, userID int64, roomKey string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[roomKey][userID], nil
}

// fakeMessages implements store.MessageStore in memory with sequential ids.
type fakeMessages struct {
	mu     sync.Mutex
	nextID int64
	msgs   []*store.Message
	err    error
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{}
}

func (f *fakeMessages) CreateMessage(_ context.Context, senderID int64, roomKey, body string) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	msg := &store.Message{
		ID:        f.nextID,
		RoomKey:   roomKey,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now(),
		ReadBy:    []int64{senderID},
	}
	f.msgs = append(f.msgs, msg)
	return msg, nil
}

func (f *fakeMessages) ListSince(_ context.Context, roomKey string, afterID int64, limit int) ([]*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*store.Message, 0)
	for _, m := range f.msgs {
		if m.RoomKey == roomKey && m.ID > afterID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) ListMessages(_ context.Context, roomKey string, limit int, _ *int64) ([]*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*store.Message, 0)
	for i := len(f.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.msgs[i].RoomKey == roomKey {
			out = append(out, f.msgs[i])
		}
	}
	return out, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, messageID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == messageID {
			m.ReadBy = append(m.ReadBy, userID)
		}
	}
	return nil
}

func (f *fakeMessages) ListUnread(_ context.Context, _ int64) ([]*store.Message, error) {
	return nil, nil
}

func (f *fakeMessages) ListRecent(_ context.Context, _ int64, _ int) ([]*store.Message, error) {
	return nil, nil
}
