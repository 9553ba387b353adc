package store

import "testing"

func TestDirectRoomKeySortsPair(t *testing.T) {
	if DirectRoomKey(7, 3) != DirectRoomKey(3, 7) {
		t.Fatal("expected the same key regardless of argument order")
	}
	if got := DirectRoomKey(7, 3); got != "dm:3:7" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestParseRoomKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		kind RoomKind
		a, b int64
	}{
		{name: "direct", key: "dm:3:7", kind: RoomKindDirect, a: 3, b: 7},
		{name: "group", key: "group:42", kind: RoomKindGroup, a: 42},
		{name: "empty", key: "", kind: RoomKindInvalid},
		{name: "unknown prefix", key: "call:1", kind: RoomKindInvalid},
		{name: "direct missing id", key: "dm:3", kind: RoomKindInvalid},
		{name: "direct non-numeric", key: "dm:a:b", kind: RoomKindInvalid},
		{name: "group non-numeric", key: "group:abc", kind: RoomKindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, a, b := ParseRoomKey(tt.key)
			if kind != tt.kind || a != tt.a || b != tt.b {
				t.Fatalf("ParseRoomKey(%q) = (%v, %d, %d), want (%v, %d, %d)",
					tt.key, kind, a, b, tt.kind, tt.a, tt.b)
			}
		})
	}
}
