package store

import (
	"context"
	"time"
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Contact represents a directed contact-list entry.
type Contact struct {
	UserID    int64
	ContactID int64
	AddedAt   time.Time
}

// Group represents a named multi-party room.
type Group struct {
	ID        int64
	Name      string
	CreatedBy *int64
	CreatedAt time.Time
}

// Message represents a persisted chat message. ID is the monotonically
// increasing sequence used as the cursor for incremental delivery. ReadBy is
// the canonical read state for both direct and group messages.
type Message struct {
	ID        int64
	RoomKey   string
	SenderID  int64
	Body      string
	CreatedAt time.Time
	ReadBy    []int64
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers searches for users by username substring.
	SearchUsers(ctx context.Context, query string) ([]*User, error)
}

// ContactStore handles contact-list persistence.
type ContactStore interface {
	// AddContact adds contactID to userID's contact list. Idempotent.
	AddContact(ctx context.Context, userID, contactID int64) error

	// RemoveContact removes contactID from userID's contact list.
	RemoveContact(ctx context.Context, userID, contactID int64) error

	// ListContacts lists the users on userID's contact list.
	ListContacts(ctx context.Context, userID int64) ([]*User, error)
}

// GroupStore handles group persistence.
type GroupStore interface {
	// CreateGroup creates a group and adds the creator plus memberIDs as
	// members. Unknown member ids are skipped silently.
	CreateGroup(ctx context.Context, name string, createdBy int64, memberIDs []int64) (*Group, error)

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, id int64) (*Group, error)

	// ListGroups lists groups the user is a member of.
	ListGroups(ctx context.Context, userID int64) ([]*Group, error)

	// AddGroupMember adds a user to a group. Idempotent.
	AddGroupMember(ctx context.Context, groupID, userID int64) error

	// RemoveGroupMember removes a user from a group.
	RemoveGroupMember(ctx context.Context, groupID, userID int64) error

	// ListGroupMembers lists user ids of all members of a group.
	ListGroupMembers(ctx context.Context, groupID int64) ([]int64, error)
}

// MembershipStore answers whether a user belongs to a room. This is the
// source of truth consulted at subscribe time and re-checked lazily on send.
type MembershipStore interface {
	// IsMember reports whether the user belongs to the room identified by
	// roomKey. For direct rooms the user must be one of the pair; for
	// group rooms the user must be a group member.
	IsMember(ctx context.Context, userID int64, roomKey string) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a message and returns the stored record with
	// its assigned sequence id. The sender is in the read-by set from
	// creation.
	CreateMessage(ctx context.Context, senderID int64, roomKey, body string) (*Message, error)

	// ListSince returns up to limit messages in the room with id greater
	// than afterID, ordered by id ascending. This is the fallback
	// transport's cursor query.
	ListSince(ctx context.Context, roomKey string, afterID int64, limit int) ([]*Message, error)

	// ListMessages retrieves room history, newest first. If beforeID is
	// non-nil only messages older than it are returned.
	ListMessages(ctx context.Context, roomKey string, limit int, beforeID *int64) ([]*Message, error)

	// MarkRead adds the user to the message's read-by set. Idempotent.
	MarkRead(ctx context.Context, messageID, userID int64) error

	// ListUnread returns messages in rooms the user belongs to that the
	// user has not read and did not send, newest first.
	ListUnread(ctx context.Context, userID int64) ([]*Message, error)

	// ListRecent returns the newest messages across the user's rooms.
	ListRecent(ctx context.Context, userID int64, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ContactStore
	GroupStore
	MembershipStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
