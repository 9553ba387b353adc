package core

import (
	"testing"
	"time"
)

func TestTypingActiveWithinWindow(t *testing.T) {
	now := time.Now()
	ts := NewTypingStore(func() time.Time { return now })

	ts.SetTyping("group:1", 1, true)

	typists := ts.ActiveTypists("group:1", now)
	if len(typists) != 1 || typists[0] != 1 {
		t.Fatalf("expected user 1 typing, got %v", typists)
	}

	// Still inside the window.
	typists = ts.ActiveTypists("group:1", now.Add(TypingWindow))
	if len(typists) != 1 {
		t.Fatalf("expected user 1 still typing at window edge, got %v", typists)
	}
}

func TestTypingExpiresAfterWindow(t *testing.T) {
	now := time.Now()
	ts := NewTypingStore(func() time.Time { return now })

	ts.SetTyping("group:1", 1, true)

	typists := ts.ActiveTypists("group:1", now.Add(TypingWindow+time.Millisecond))
	if len(typists) != 0 {
		t.Fatalf("expected no typists after window, got %v", typists)
	}

	// The stale entry must have been evicted, not just skipped forever.
	typists = ts.ActiveTypists("group:1", now)
	if len(typists) != 0 {
		t.Fatalf("expected stale entry evicted, got %v", typists)
	}
}

func TestTypingExplicitStopWinsOverTTL(t *testing.T) {
	now := time.Now()
	ts := NewTypingStore(func() time.Time { return now })

	ts.SetTyping("group:1", 1, true)
	ts.SetTyping("group:1", 1, false)

	if typists := ts.ActiveTypists("group:1", now); len(typists) != 0 {
		t.Fatalf("expected explicit stop to remove entry, got %v", typists)
	}
}

func TestTypingRefreshExtendsWindow(t *testing.T) {
	now := time.Now()
	clock := now
	ts := NewTypingStore(func() time.Time { return clock })

	ts.SetTyping("group:1", 1, true)
	clock = now.Add(3 * time.Second)
	ts.SetTyping("group:1", 1, true)

	typists := ts.ActiveTypists("group:1", now.Add(7*time.Second))
	if len(typists) != 1 {
		t.Fatalf("expected refreshed signal still live, got %v", typists)
	}
}

func TestTypingRoomsAreIndependent(t *testing.T) {
	now := time.Now()
	ts := NewTypingStore(func() time.Time { return now })

	ts.SetTyping("group:1", 1, true)
	ts.SetTyping("group:2", 2, true)

	if typists := ts.ActiveTypists("group:1", now); len(typists) != 1 || typists[0] != 1 {
		t.Fatalf("unexpected typists for group:1: %v", typists)
	}
	if typists := ts.ActiveTypists("group:2", now); len(typists) != 1 || typists[0] != 2 {
		t.Fatalf("unexpected typists for group:2: %v", typists)
	}
}
