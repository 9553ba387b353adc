package core

import (
	"fmt"
	"testing"
)

func TestBroadcastDeliversInOrderToAllSubscribers(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, testLogger())

	clients := []*Client{
		NewClient("s1", 1, "alice"),
		NewClient("s2", 2, "bob"),
		NewClient("s3", 3, "carol"),
	}
	for _, c := range clients {
		reg.Join("group:1", c)
	}

	const n = 5
	for i := 1; i <= n; i++ {
		b.Broadcast("group:1", &Event{Kind: EventTypingStatus, Room: "group:1", UserID: int64(i)})
	}

	for _, c := range clients {
		for i := 1; i <= n; i++ {
			ev := <-c.Events
			if ev.UserID != int64(i) {
				t.Fatalf("client %s: expected event %d, got %d", c.SessionID, i, ev.UserID)
			}
		}
	}
}

func TestBroadcastSkipsLateJoiner(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, testLogger())

	early := NewClient("s1", 1, "alice")
	reg.Join("group:1", early)

	b.Broadcast("group:1", &Event{Kind: EventTypingStatus, UserID: 1})
	b.Broadcast("group:1", &Event{Kind: EventTypingStatus, UserID: 2})

	late := NewClient("s2", 2, "bob")
	reg.Join("group:1", late)

	b.Broadcast("group:1", &Event{Kind: EventTypingStatus, UserID: 3})

	// The late joiner must only observe the event broadcast after it joined.
	ev := <-late.Events
	if ev.UserID != 3 {
		t.Fatalf("late joiner saw event %d, expected 3", ev.UserID)
	}
	assertNoEvent(t, late.Events)
}

func TestBroadcastClosedSubscriberDoesNotAffectOthers(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, testLogger())

	dead := NewClient("s1", 1, "alice")
	alive := NewClient("s2", 2, "bob")
	reg.Join("group:1", dead)
	reg.Join("group:1", alive)

	dead.CloseQueue()

	b.Broadcast("group:1", &Event{Kind: EventTypingStatus, UserID: 7})

	ev := <-alive.Events
	if ev.UserID != 7 {
		t.Fatalf("expected event 7, got %d", ev.UserID)
	}
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	c := NewClient("s1", 1, "alice")

	const total = defaultEventBuffer + 8
	for i := 1; i <= total; i++ {
		if !c.Enqueue(&Event{Kind: EventTypingStatus, UserID: int64(i)}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	// The oldest 8 events were dropped; the first readable event is 9.
	first := <-c.Events
	if first.UserID != total-defaultEventBuffer+1 {
		t.Fatalf("expected first event %d, got %d", total-defaultEventBuffer+1, first.UserID)
	}

	// The remainder arrives in order.
	for want := first.UserID + 1; want <= total; want++ {
		ev := <-c.Events
		if ev.UserID != want {
			t.Fatalf("expected event %d, got %d", want, ev.UserID)
		}
	}
}

func TestEnqueueRejectedAfterClose(t *testing.T) {
	c := NewClient("s1", 1, "alice")
	c.CloseQueue()

	if c.Enqueue(&Event{Kind: EventTypingStatus}) {
		t.Fatal("expected enqueue to be rejected after close")
	}
}

func benchmarkBroadcast(b *testing.B, recipients int) {
	reg := NewRegistry()
	br := NewBroadcaster(reg, testLogger())

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient(fmt.Sprintf("s%d", i), int64(i+1), "client")
		reg.Join("bench", c)
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient so buffers never fill.
	target := clients[0]
	done := make(chan struct{})
	defer close(done)
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for {
				select {
				case <-cl.Events:
				case <-done:
					return
				}
			}
		}(c)
	}

	event := &Event{Kind: EventTypingStatus, Room: "bench", UserID: 1}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		br.Broadcast("bench", event)
		<-target.Events
	}
}

func BenchmarkBroadcast_10(b *testing.B)  { benchmarkBroadcast(b, 10) }
func BenchmarkBroadcast_100(b *testing.B) { benchmarkBroadcast(b, 100) }
func BenchmarkBroadcast_500(b *testing.B) { benchmarkBroadcast(b, 500) }
