package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/worksphere/connect-server/internal/store"
)

// schema is applied on startup. Statements are idempotent so restarting the
// process against an existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS contacts (
	user_id    INTEGER NOT NULL,
	contact_id INTEGER NOT NULL,
	added_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, contact_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (contact_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS groups (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	created_by INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (created_by) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id  INTEGER NOT NULL,
	user_id   INTEGER NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (group_id, user_id),
	FOREIGN KEY (group_id) REFERENCES groups(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_key   TEXT NOT NULL,
	sender_id  INTEGER NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS message_reads (
	message_id INTEGER NOT NULL,
	user_id    INTEGER NOT NULL,
	read_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (message_id, user_id),
	FOREIGN KEY (message_id) REFERENCES messages(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_key, id);
CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// SearchUsers searches for users by username substring.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, created_at
		 FROM users
		 WHERE username LIKE '%' || ? || '%'
		 ORDER BY username
		 LIMIT 10`, query)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// ==== ContactStore implementation ====

// AddContact adds contactID to userID's contact list. Idempotent.
func (s *SQLiteStore) AddContact(ctx context.Context, userID, contactID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO contacts (user_id, contact_id) VALUES (?, ?)`,
		userID, contactID,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// RemoveContact removes contactID from userID's contact list.
func (s *SQLiteStore) RemoveContact(ctx context.Context, userID, contactID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE user_id = ? AND contact_id = ?`,
		userID, contactID,
	)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// ListContacts lists the users on userID's contact list.
func (s *SQLiteStore) ListContacts(ctx context.Context, userID int64) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.password_hash, u.created_at
		 FROM contacts c
		 JOIN users u ON u.id = c.contact_id
		 WHERE c.user_id = ?
		 ORDER BY u.username`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ==== GroupStore implementation ====

// CreateGroup creates a group and adds the creator plus memberIDs as members.
// Member ids that do not reference an existing user are skipped silently.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name string, createdBy int64, memberIDs []int64) (*store.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO groups (name, created_by) VALUES (?, ?)`, name, createdBy)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	groupID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	members := append([]int64{createdBy}, memberIDs...)
	for _, memberID := range members {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_members (group_id, user_id)
			 SELECT ?, id FROM users WHERE id = ?`, groupID, memberID)
		if err != nil {
			return nil, fmt.Errorf("insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetGroup(ctx, groupID)
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id int64) (*store.Group, error) {
	var g store.Group
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan group: %w", err)
	}
	return &g, nil
}

// ListGroups lists groups the user is a member of.
func (s *SQLiteStore) ListGroups(ctx context.Context, userID int64) ([]*store.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ?
		 ORDER BY g.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*store.Group, 0)
	for rows.Next() {
		var g store.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// AddGroupMember adds a user to a group. Idempotent.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

// RemoveGroupMember removes a user from a group.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete group member: %w", err)
	}
	return nil
}

// ListGroupMembers lists user ids of all members of a group.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ==== MembershipStore implementation ====

// IsMember reports whether the user belongs to the room identified by roomKey.
func (s *SQLiteStore) IsMember(ctx context.Context, userID int64, roomKey string) (bool, error) {
	kind, a, b := store.ParseRoomKey(roomKey)
	switch kind {
	case store.RoomKindDirect:
		return userID == a || userID == b, nil
	case store.RoomKindGroup:
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM group_members WHERE group_id = ? AND user_id = ?`,
			a, userID).Scan(&n)
		if err != nil {
			return false, fmt.Errorf("check membership: %w", err)
		}
		return n > 0, nil
	default:
		return false, nil
	}
}

// ==== MessageStore implementation ====

// CreateMessage persists a message. The sender is added to the read-by set in
// the same transaction so a message is never unread for its author.
func (s *SQLiteStore) CreateMessage(ctx context.Context, senderID int64, roomKey, body string) (*store.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (room_key, sender_id, body) VALUES (?, ?, ?)`,
		roomKey, senderID, body,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES (?, ?)`, id, senderID)
	if err != nil {
		return nil, fmt.Errorf("insert message read: %w", err)
	}

	var msg store.Message
	err = tx.QueryRowContext(ctx,
		`SELECT id, room_key, sender_id, body, created_at FROM messages WHERE id = ?`, id).
		Scan(&msg.ID, &msg.RoomKey, &msg.SenderID, &msg.Body, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	msg.ReadBy = []int64{senderID}
	return &msg, nil
}

// ListSince returns messages in the room with id greater than afterID,
// ordered by id ascending. Used as the fallback transport's cursor query.
func (s *SQLiteStore) ListSince(ctx context.Context, roomKey string, afterID int64, limit int) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_key, sender_id, body, created_at
		 FROM messages
		 WHERE room_key = ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`, roomKey, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list since: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachReadBy(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMessages retrieves room history, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomKey string, limit int, beforeID *int64) ([]*store.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if beforeID != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, room_key, sender_id, body, created_at
			 FROM messages
			 WHERE room_key = ? AND id < ?
			 ORDER BY id DESC
			 LIMIT ?`, roomKey, *beforeID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, room_key, sender_id, body, created_at
			 FROM messages
			 WHERE room_key = ?
			 ORDER BY id DESC
			 LIMIT ?`, roomKey, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachReadBy(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead adds the user to the message's read-by set. Idempotent.
func (s *SQLiteStore) MarkRead(ctx context.Context, messageID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO message_reads (message_id, user_id) VALUES (?, ?)`,
		messageID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert message read: %w", err)
	}
	return nil
}

// ListUnread returns messages in the user's rooms that the user has not read
// and did not send, newest first.
func (s *SQLiteStore) ListUnread(ctx context.Context, userID int64) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.room_key, m.sender_id, m.body, m.created_at
		 FROM messages m
		 WHERE (m.room_key IN (SELECT 'group:' || group_id FROM group_members WHERE user_id = ?1)
		        OR m.room_key LIKE 'dm:' || ?1 || ':%'
		        OR m.room_key LIKE 'dm:%:' || ?1)
		   AND m.sender_id != ?1
		   AND NOT EXISTS (
		       SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = ?1
		   )
		 ORDER BY m.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachReadBy(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListRecent returns the newest messages across the user's rooms.
func (s *SQLiteStore) ListRecent(ctx context.Context, userID int64, limit int) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.room_key, m.sender_id, m.body, m.created_at
		 FROM messages m
		 WHERE m.room_key IN (SELECT 'group:' || group_id FROM group_members WHERE user_id = ?1)
		    OR m.room_key LIKE 'dm:' || ?1 || ':%'
		    OR m.room_key LIKE 'dm:%:' || ?1
		 ORDER BY m.id DESC
		 LIMIT ?2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachReadBy(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func collectMessages(rows *sql.Rows) ([]*store.Message, error) {
	defer rows.Close()

	msgs := make([]*store.Message, 0)
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.RoomKey, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// attachReadBy populates the ReadBy set for a batch of messages with one
// query.
func (s *SQLiteStore) attachReadBy(ctx context.Context, msgs []*store.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	byID := make(map[int64]*store.Message, len(msgs))
	placeholders := make([]string, 0, len(msgs))
	args := make([]any, 0, len(msgs))
	for _, m := range msgs {
		m.ReadBy = []int64{}
		byID[m.ID] = m
		placeholders = append(placeholders, "?")
		args = append(args, m.ID)
	}

	query := `SELECT message_id, user_id FROM message_reads WHERE message_id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY user_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list message reads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, userID int64
		if err := rows.Scan(&messageID, &userID); err != nil {
			return fmt.Errorf("scan message read: %w", err)
		}
		if m, ok := byID[messageID]; ok {
			m.ReadBy = append(m.ReadBy, userID)
		}
	}
	return rows.Err()
}
