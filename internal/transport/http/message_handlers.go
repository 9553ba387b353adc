package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/core"
	"github.com/worksphere/connect-server/internal/proto"
	"github.com/worksphere/connect-server/internal/store"
)

// defaultHistoryLimit caps history queries without an explicit limit.
const defaultHistoryLimit = 50

// MessageHandlers provides HTTP handlers for the message write/read surface.
// Writes are persisted first and then handed to the broadcaster, so socket
// subscribers see them immediately and polled clients pick them up through
// the cursor on the next cycle.
type MessageHandlers struct {
	store       store.Store
	typing      *core.TypingStore
	broadcaster *core.Broadcaster
	log         *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, typing *core.TypingStore, broadcaster *core.Broadcaster, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store:       st,
		typing:      typing,
		broadcaster: broadcaster,
		log:         logger,
	}
}

// SendPrivateRequest represents the private message request body.
type SendPrivateRequest struct {
	RecipientID int64  `json:"recipient_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// SendGroupRequest represents the group message request body.
type SendGroupRequest struct {
	Content string `json:"content" binding:"required"`
}

// MarkReadRequest represents the mark-read request body.
type MarkReadRequest struct {
	MessageID int64 `json:"message_id" binding:"required"`
}

// TypingRequest represents the typing signal request body. Exactly one of
// ChannelID and ContactID must be set.
type TypingRequest struct {
	ChannelID int64 `json:"channel_id"`
	ContactID int64 `json:"contact_id"`
	IsTyping  bool  `json:"is_typing"`
}

// MessageResponse wraps a message in API responses, using the same wire
// shape both transports deliver.
type MessageResponse struct {
	Message *proto.WireMessage `json:"message"`
}

// MessagesResponse wraps a message list.
type MessagesResponse struct {
	Messages []*proto.WireMessage `json:"messages"`
}

// SendPrivate persists a direct message and broadcasts it to the pair's room.
// POST /api/messages
func (h *MessageHandlers) SendPrivate(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendPrivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "recipient_id and content are required"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.RecipientID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "recipient not found"})
		return
	}

	roomKey := store.DirectRoomKey(uid, req.RecipientID)
	msg, err := h.store.CreateMessage(c.Request.Context(), uid, roomKey, req.Content)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomKey).Msg("failed to create message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.broadcaster.Broadcast(roomKey, &core.Event{
		Kind:    core.EventChatMessage,
		Room:    roomKey,
		Message: msg,
	})

	c.JSON(http.StatusOK, MessageResponse{Message: wireMessage(msg)})
}

// ListPrivate returns the direct conversation history with another user.
// GET /api/messages?user_id=
func (h *MessageHandlers) ListPrivate(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	otherID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}

	roomKey := store.DirectRoomKey(uid, otherID)
	msgs, err := h.store.ListMessages(c.Request.Context(), roomKey, defaultHistoryLimit, nil)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomKey).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{Messages: wireMessages(msgs)})
}

// SendGroup persists a group message and broadcasts it to the group room.
// POST /api/groups/:id/messages
func (h *MessageHandlers) SendGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	var req SendGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send group message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content is required"})
		return
	}

	roomKey := store.GroupRoomKey(groupID)
	if !h.requireMembership(c, uid, roomKey) {
		return
	}

	msg, err := h.store.CreateMessage(c.Request.Context(), uid, roomKey, req.Content)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomKey).Msg("failed to create message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.broadcaster.Broadcast(roomKey, &core.Event{
		Kind:    core.EventChatMessage,
		Room:    roomKey,
		Message: msg,
	})

	c.JSON(http.StatusOK, MessageResponse{Message: wireMessage(msg)})
}

// ListGroup returns the group's message history.
// GET /api/groups/:id/messages
func (h *MessageHandlers) ListGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	roomKey := store.GroupRoomKey(groupID)
	if !h.requireMembership(c, uid, roomKey) {
		return
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), roomKey, defaultHistoryLimit, nil)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomKey).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{Messages: wireMessages(msgs)})
}

// MarkRead adds the authenticated user to a message's read-by set.
// POST /api/messages/read
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid mark read request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message_id is required"})
		return
	}

	if err := h.store.MarkRead(c.Request.Context(), req.MessageID, uid); err != nil {
		h.log.Error().Err(err).Int64("message_id", req.MessageID).Msg("failed to mark message read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "message marked as read"})
}

// ListUnread returns unread messages across the user's rooms.
// GET /api/messages/unread
func (h *MessageHandlers) ListUnread(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	msgs, err := h.store.ListUnread(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list unread messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{Messages: wireMessages(msgs)})
}

// ListRecent returns the newest messages across the user's rooms.
// GET /api/messages/recent
func (h *MessageHandlers) ListRecent(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	msgs, err := h.store.ListRecent(c.Request.Context(), uid, 10)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list recent messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{Messages: wireMessages(msgs)})
}

// Typing records a typing signal from an HTTP client. The signal lands in
// the same presence store the socket path uses, so socket subscribers get an
// immediate push and polled clients observe it within the liveness window.
// POST /api/typing
func (h *MessageHandlers) Typing(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid typing request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var roomKey string
	switch {
	case req.ChannelID != 0 && req.ContactID != 0:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "channel_id and contact_id are mutually exclusive"})
		return
	case req.ChannelID != 0:
		roomKey = store.GroupRoomKey(req.ChannelID)
	case req.ContactID != 0:
		roomKey = store.DirectRoomKey(uid, req.ContactID)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "either channel_id or contact_id is required"})
		return
	}

	h.typing.SetTyping(roomKey, uid, req.IsTyping)
	h.broadcaster.Broadcast(roomKey, &core.Event{
		Kind:     core.EventTypingStatus,
		Room:     roomKey,
		UserID:   uid,
		IsTyping: req.IsTyping,
	})

	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *MessageHandlers) requireMembership(c *gin.Context, uid int64, roomKey string) bool {
	member, err := h.store.IsMember(c.Request.Context(), uid, roomKey)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomKey).Msg("failed to check membership")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return false
	}
	if !member {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found or you are not a member"})
		return false
	}
	return true
}

func wireMessages(msgs []*store.Message) []*proto.WireMessage {
	out := make([]*proto.WireMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, wireMessage(m))
	}
	return out
}
