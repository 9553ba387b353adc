package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/store"
)

// SessionState tracks where a connection is in its lifecycle.
type SessionState int

const (
	// StateConnecting is entered on transport handshake, before the
	// identity is known.
	StateConnecting SessionState = iota
	// StateAuthenticated means the connection carries a valid principal
	// and may subscribe to rooms.
	StateAuthenticated
	// StateClosed is terminal. A closed session processes nothing.
	StateClosed
)

// Session is the per-connection state machine. It owns the Client for the
// connection's lifetime: authentication gates all processing, subscriptions
// are checked against the membership store, and closing tears down every
// registry subscription exactly once.
type Session struct {
	registry    *Registry
	typing      *TypingStore
	broadcaster *Broadcaster
	messages    store.MessageStore
	membership  store.MembershipStore
	log         *zerolog.Logger

	mu     sync.Mutex
	state  SessionState
	client *Client

	closeOnce sync.Once
}

// NewSession constructs a session in the CONNECTING state.
func NewSession(
	registry *Registry,
	typing *TypingStore,
	broadcaster *Broadcaster,
	messages store.MessageStore,
	membership store.MembershipStore,
	logger *zerolog.Logger,
) *Session {
	return &Session{
		registry:    registry,
		typing:      typing,
		broadcaster: broadcaster,
		messages:    messages,
		membership:  membership,
		log:         logger,
		state:       StateConnecting,
	}
}

// Authenticate attaches the principal derived from the transport handshake.
// A missing identity closes the session immediately; anonymous connections
// are rejected with no further processing.
func (s *Session) Authenticate(sessionID string, userID int64, username string) (*Client, error) {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if userID <= 0 {
		s.state = StateClosed
		s.mu.Unlock()
		return nil, ErrUnauthorized
	}
	s.client = NewClient(sessionID, userID, username)
	s.state = StateAuthenticated
	s.mu.Unlock()
	return s.client, nil
}

// Client returns the connection's client, or nil before authentication.
func (s *Session) Client() *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Join subscribes the session to a room after verifying membership. A join
// for a room the user does not belong to is a policy violation: no
// subscription is created and the session stays usable for other rooms.
func (s *Session) Join(ctx context.Context, roomKey string) error {
	client, err := s.authenticated()
	if err != nil {
		return err
	}

	ok, err := s.membership.IsMember(ctx, client.UserID, roomKey)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ErrNotAMember
	}

	s.registry.Join(roomKey, client)
	return nil
}

// Leave unsubscribes the session from a room. Idempotent.
func (s *Session) Leave(roomKey string) error {
	client, err := s.authenticated()
	if err != nil {
		return err
	}
	s.registry.Leave(roomKey, client)
	return nil
}

// SendMessage persists a chat message and broadcasts it to the room's live
// subscribers. Membership is re-checked here because it can change after
// subscription.
func (s *Session) SendMessage(ctx context.Context, roomKey, body string) (*store.Message, error) {
	client, err := s.authenticated()
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, ErrBadRequest
	}

	ok, err := s.membership.IsMember(ctx, client.UserID, roomKey)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, ErrNotAMember
	}

	msg, err := s.messages.CreateMessage(ctx, client.UserID, roomKey, body)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.broadcaster.Broadcast(roomKey, &Event{
		Kind:    EventChatMessage,
		Room:    roomKey,
		Message: msg,
	})
	return msg, nil
}

// SetTyping records the typing signal and pushes it to live subscribers.
// Polled clients discover the same state through the typing store.
func (s *Session) SetTyping(roomKey string, isTyping bool) error {
	client, err := s.authenticated()
	if err != nil {
		return err
	}

	s.typing.SetTyping(roomKey, client.UserID, isTyping)
	s.broadcaster.Broadcast(roomKey, &Event{
		Kind:     EventTypingStatus,
		Room:     roomKey,
		UserID:   client.UserID,
		IsTyping: isTyping,
	})
	return nil
}

// Close transitions the session to CLOSED and removes the connection from
// every room it joined. Safe to call multiple times; the teardown runs once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		client := s.client
		s.mu.Unlock()

		if client != nil {
			client.CloseQueue()
			s.registry.LeaveAll(client)
		}
	})
}

func (s *Session) authenticated() (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || s.client == nil {
		return nil, ErrClosed
	}
	return s.client, nil
}
