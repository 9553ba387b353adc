package store

import (
	"fmt"
	"strconv"
	"strings"
)

// RoomKind distinguishes the two broadcast scopes.
type RoomKind int

const (
	RoomKindInvalid RoomKind = iota
	RoomKindDirect
	RoomKindGroup
)

// DirectRoomKey derives the room key for a two-party conversation. The pair
// is sorted so both participants derive the same key.
func DirectRoomKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// GroupRoomKey derives the room key for a named group.
func GroupRoomKey(groupID int64) string {
	return fmt.Sprintf("group:%d", groupID)
}

// ParseRoomKey splits a room key into its kind and ids. For direct rooms the
// two user ids are returned; for group rooms the group id and zero.
func ParseRoomKey(key string) (RoomKind, int64, int64) {
	switch {
	case strings.HasPrefix(key, "dm:"):
		parts := strings.Split(key, ":")
		if len(parts) != 3 {
			return RoomKindInvalid, 0, 0
		}
		a, errA := strconv.ParseInt(parts[1], 10, 64)
		b, errB := strconv.ParseInt(parts[2], 10, 64)
		if errA != nil || errB != nil {
			return RoomKindInvalid, 0, 0
		}
		return RoomKindDirect, a, b
	case strings.HasPrefix(key, "group:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(key, "group:"), 10, 64)
		if err != nil {
			return RoomKindInvalid, 0, 0
		}
		return RoomKindGroup, id, 0
	default:
		return RoomKindInvalid, 0, 0
	}
}
