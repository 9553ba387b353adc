// Package proto defines the wire envelope shared by the socket transport and
// the polling fallback. Both render identical payload shapes so client-side
// handling is transport-agnostic.
package proto

// Wire message type tags. Unknown inbound types are ignored.
const (
	TypeChatMessage  = "chat.message"
	TypeTypingStatus = "typing.status"
	TypeRoomJoin     = "room.join"
	TypeRoomLeave    = "room.leave"
)

// Inbound is the envelope for messages coming from the client. Which fields
// are meaningful depends on Type; extra fields are ignored.
type Inbound struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	Body     string `json:"body,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type      string       `json:"type"`
	Message   *WireMessage `json:"message,omitempty"`
	UserID    int64        `json:"user_id,omitempty"`
	ChannelID string       `json:"channel_id,omitempty"`
	IsTyping  *bool        `json:"is_typing,omitempty"`
}

// WireMessage is the serialized form of a persisted message.
type WireMessage struct {
	ID        int64   `json:"id"`
	RoomID    string  `json:"room_id"`
	SenderID  int64   `json:"sender_id"`
	Body      string  `json:"body"`
	CreatedAt int64   `json:"created_at"`
	ReadBy    []int64 `json:"read_by"`
}
