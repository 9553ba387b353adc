package core

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryJoinIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("s1", 1, "alice")

	reg.Join("group:1", c)
	reg.Join("group:1", c)

	if got := len(reg.Subscribers("group:1")); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("s1", 1, "alice")

	reg.Join("group:1", c)
	reg.Leave("group:1", c)
	reg.Leave("group:1", c)

	if got := len(reg.Subscribers("group:1")); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}

	// Leaving a room never joined must not panic or create state.
	reg.Leave("group:99", c)
	if got := len(reg.Subscribers("group:99")); got != 0 {
		t.Fatalf("expected 0 subscribers in untouched room, got %d", got)
	}
}

func TestRegistrySubscribersReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	a := NewClient("s1", 1, "alice")
	b := NewClient("s2", 2, "bob")

	reg.Join("group:1", a)
	reg.Join("group:1", b)

	snapshot := reg.Subscribers("group:1")
	reg.Leave("group:1", a)
	reg.Leave("group:1", b)

	if len(snapshot) != 2 {
		t.Fatalf("snapshot changed after mutation: %d", len(snapshot))
	}
}

func TestRegistryLeaveAll(t *testing.T) {
	reg := NewRegistry()
	a := NewClient("s1", 1, "alice")
	b := NewClient("s2", 2, "bob")

	reg.Join("group:1", a)
	reg.Join("group:2", a)
	reg.Join("group:1", b)

	reg.LeaveAll(a)

	if got := len(reg.Subscribers("group:1")); got != 1 {
		t.Fatalf("expected bob to remain in group:1, got %d subscribers", got)
	}
	if got := len(reg.Subscribers("group:2")); got != 0 {
		t.Fatalf("expected group:2 empty, got %d subscribers", got)
	}
	if got := len(reg.Rooms(a)); got != 0 {
		t.Fatalf("expected alice subscribed to no rooms, got %d", got)
	}
}

// TestRegistryConcurrentJoinLeave checks that the final subscriber set equals
// the set implied by a serial replay: every client that only joined is
// present, every client that joined and left is absent.
func TestRegistryConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry()

	const clients = 100
	var wg sync.WaitGroup
	stayers := make([]*Client, 0, clients/2)
	for i := 0; i < clients; i++ {
		c := NewClient(fmt.Sprintf("s%d", i), int64(i+1), "user")
		leaves := i%2 == 1
		if !leaves {
			stayers = append(stayers, c)
		}
		wg.Add(1)
		go func(c *Client, leaves bool) {
			defer wg.Done()
			reg.Join("group:1", c)
			reg.Join("group:2", c)
			if leaves {
				reg.LeaveAll(c)
			}
		}(c, leaves)
	}
	wg.Wait()

	for _, roomKey := range []string{"group:1", "group:2"} {
		subs := reg.Subscribers(roomKey)
		if len(subs) != len(stayers) {
			t.Fatalf("room %s: expected %d subscribers, got %d", roomKey, len(stayers), len(subs))
		}
		present := make(map[*Client]bool, len(subs))
		for _, c := range subs {
			present[c] = true
		}
		for _, c := range stayers {
			if !present[c] {
				t.Fatalf("room %s: expected client %s present", roomKey, c.SessionID)
			}
		}
	}
}
