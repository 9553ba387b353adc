package http

import (
	"github.com/worksphere/connect-server/internal/core"
	"github.com/worksphere/connect-server/internal/proto"
	"github.com/worksphere/connect-server/internal/store"
)

func wireMessage(m *store.Message) *proto.WireMessage {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []int64{}
	}
	return &proto.WireMessage{
		ID:        m.ID,
		RoomID:    m.RoomKey,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.Unix(),
		ReadBy:    readBy,
	}
}

// outboundFromEvent renders a core event to the wire. The same rendering is
// used by the socket write loop and the polling fallback so subscribers see
// one payload shape regardless of transport.
func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventChatMessage:
		return proto.Outbound{
			Type:    proto.TypeChatMessage,
			Message: wireMessage(event.Message),
		}
	case core.EventTypingStatus:
		isTyping := event.IsTyping
		return proto.Outbound{
			Type:      proto.TypeTypingStatus,
			UserID:    event.UserID,
			ChannelID: event.Room,
			IsTyping:  &isTyping,
		}
	default:
		return proto.Outbound{Type: proto.TypeChatMessage}
	}
}
