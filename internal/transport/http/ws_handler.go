package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/auth"
	"github.com/worksphere/connect-server/internal/core"
	"github.com/worksphere/connect-server/internal/proto"
	"github.com/worksphere/connect-server/internal/store"
)

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
// It is mounted on the server mux directly: the upgrade needs the raw
// http.ResponseWriter because gin's wrapped writer refuses to hijack once
// the 101 status is recorded.
type WSHandler struct {
	registry    *core.Registry
	typing      *core.TypingStore
	broadcaster *core.Broadcaster
	store       store.Store
	authService *auth.Service
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(
	registry *core.Registry,
	typing *core.TypingStore,
	broadcaster *core.Broadcaster,
	st store.Store,
	authService *auth.Service,
	logger *zerolog.Logger,
) stdhttp.Handler {
	return &WSHandler{
		registry:    registry,
		typing:      typing,
		broadcaster: broadcaster,
		store:       st,
		authService: authService,
		log:         logger,
	}
}

// ServeHTTP accepts the websocket handshake, authenticates the principal and
// runs the read/write loops until either side closes.
// GET /ws
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	session := core.NewSession(h.registry, h.typing, h.broadcaster, h.store, h.store, h.log)
	defer session.Close()

	client, err := session.Authenticate(h.principal(r))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws handshake rejected")
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", client.SessionID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// principal derives the connection identity from the handshake. Browsers
// cannot set headers on websocket upgrades, so a token query parameter is
// accepted alongside the Authorization header.
func (h *WSHandler) principal(r *stdhttp.Request) (sessionID string, userID int64, username string) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if after, ok := cutBearer(header); ok {
			token = after
		}
	}
	if token == "" {
		return uuid.NewString(), 0, ""
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws token rejected")
		return uuid.NewString(), 0, ""
	}
	return uuid.NewString(), claims.UserID, claims.Username
}

func cutBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return "", false
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, client *core.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			// Malformed payloads are dropped; the connection stays open.
			h.log.Warn().Err(err).Str("session_id", client.SessionID).Msg("malformed ws payload dropped")
			continue
		}

		h.dispatch(ctx, session, client, inbound)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, session *core.Session, client *core.Client, inbound proto.Inbound) {
	switch inbound.Type {
	case proto.TypeRoomJoin:
		if err := session.Join(ctx, inbound.RoomID); err != nil {
			// Policy violations are rejected silently; the session
			// stays usable for other rooms.
			h.log.Debug().Err(err).
				Str("session_id", client.SessionID).
				Str("room", inbound.RoomID).
				Msg("join rejected")
		}
	case proto.TypeRoomLeave:
		if err := session.Leave(inbound.RoomID); err != nil {
			h.log.Debug().Err(err).Str("session_id", client.SessionID).Msg("leave failed")
		}
	case proto.TypeChatMessage:
		if _, err := session.SendMessage(ctx, inbound.RoomID, inbound.Body); err != nil {
			h.log.Debug().Err(err).
				Str("session_id", client.SessionID).
				Str("room", inbound.RoomID).
				Msg("message rejected")
		}
	case proto.TypeTypingStatus:
		if err := session.SetTyping(inbound.RoomID, inbound.IsTyping); err != nil {
			h.log.Debug().Err(err).Str("session_id", client.SessionID).Msg("typing signal failed")
		}
	default:
		h.log.Warn().Str("type", inbound.Type).Str("session_id", client.SessionID).Msg("unknown ws message type ignored")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", client.SessionID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
