package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/core"
	"github.com/worksphere/connect-server/internal/proto"
	"github.com/worksphere/connect-server/internal/store"
)

// streamBatchSize caps how many messages one poll iteration emits.
const streamBatchSize = 100

// StreamHandlers serves the polling fallback transport: a long-lived
// text/event-stream response that re-derives new messages and typing state
// from the stores every cycle. It holds no registry subscriptions, trading
// per-event latency for resilience to missed live broadcasts.
type StreamHandlers struct {
	messages     store.MessageStore
	membership   store.MembershipStore
	typing       *core.TypingStore
	pollInterval time.Duration
	log          *zerolog.Logger
}

// NewStreamHandlers creates a new stream handlers instance.
func NewStreamHandlers(
	messages store.MessageStore,
	membership store.MembershipStore,
	typing *core.TypingStore,
	pollInterval time.Duration,
	logger *zerolog.Logger,
) *StreamHandlers {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &StreamHandlers{
		messages:     messages,
		membership:   membership,
		typing:       typing,
		pollInterval: pollInterval,
		log:          logger,
	}
}

// Stream opens the event stream for one scope: either a group room
// (room_id) or a direct conversation (contact_id), mutually exclusive. The
// optional last_id query parameter resumes delivery after a known cursor.
// The loop runs until the peer closes the transport; there is no explicit
// unsubscribe.
// GET /api/stream
func (h *StreamHandlers) Stream(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	roomKey, ok := h.resolveScope(c, uid)
	if !ok {
		return
	}

	cursor, err := strconv.ParseInt(c.DefaultQuery("last_id", "0"), 10, 64)
	if err != nil || cursor < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid last_id"})
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msgs, err := h.messages.ListSince(ctx, roomKey, cursor, streamBatchSize)
			if err != nil {
				// Store outage: skip this iteration and retry on
				// the next tick instead of terminating the stream.
				h.log.Warn().Err(err).Str("room", roomKey).Msg("stream poll failed")
				continue
			}
			for _, m := range msgs {
				if err := writeSSE(c.Writer, proto.Outbound{
					Type:    proto.TypeChatMessage,
					Message: wireMessage(m),
				}); err != nil {
					return
				}
				cursor = m.ID
			}

			for _, typist := range h.typing.ActiveTypists(roomKey, time.Now()) {
				isTyping := true
				if err := writeSSE(c.Writer, proto.Outbound{
					Type:      proto.TypeTypingStatus,
					UserID:    typist,
					ChannelID: roomKey,
					IsTyping:  &isTyping,
				}); err != nil {
					return
				}
			}

			// Keepalive comment prevents idle-timeout teardown by
			// intermediaries.
			if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// resolveScope maps the query parameters to a room key and authorizes the
// caller. Writes the error response itself on failure.
func (h *StreamHandlers) resolveScope(c *gin.Context, uid int64) (string, bool) {
	roomID := c.Query("room_id")
	contactID := c.Query("contact_id")

	switch {
	case roomID != "" && contactID != "":
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room_id and contact_id are mutually exclusive"})
		return "", false
	case roomID != "":
		id, err := strconv.ParseInt(roomID, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room_id"})
			return "", false
		}
		roomKey := store.GroupRoomKey(id)
		member, err := h.membership.IsMember(c.Request.Context(), uid, roomKey)
		if err != nil {
			h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to check membership")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return "", false
		}
		if !member {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this room"})
			return "", false
		}
		return roomKey, true
	case contactID != "":
		id, err := strconv.ParseInt(contactID, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid contact_id"})
			return "", false
		}
		return store.DirectRoomKey(uid, id), true
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room_id or contact_id is required"})
		return "", false
	}
}

// writeSSE renders one newline-delimited event-stream record.
func writeSSE(w gin.ResponseWriter, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
