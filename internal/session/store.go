package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magpie-ai/magpie/internal/log"
)

// Store manages conversation history in SQLite.
//
// Store is safe for concurrent use; database/sql serializes access to the
// underlying connection pool.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// NewStore creates a Store over an opened (and migrated) database.
func NewStore(db *sql.DB, logger log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// CreateSession creates a new conversation session with a generated ID.
func (s *Store) CreateSession(ctx context.Context, title string) (*Session, error) {
	if len(title) > TitleMaxLength {
		title = title[:TitleMaxLength]
	}

	sess := &Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID.String(), sess.Title, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.title, s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		 FROM sessions s WHERE s.id = ?`, id.String())

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions ordered by most recent activity.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.title, s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		 FROM sessions s ORDER BY s.updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session and, via cascade, its messages.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.logger.Debug("deleted session", "id", id)
	return nil
}

// AppendMessage stores one message and bumps the session's activity time.
// Appending the same message ID twice is a no-op, so completion paths that
// re-enter do not duplicate history. The first user message of an untitled
// session becomes its title.
func (s *Store) AppendMessage(ctx context.Context, msg Message) error {
	if !ValidRole(msg.Role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, agent_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		msg.ID.String(), msg.SessionID.String(), msg.Role, msg.AgentID, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), msg.SessionID.String())
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}

	if msg.Role == RoleUser {
		_, err = tx.ExecContext(ctx,
			`UPDATE sessions SET title = ? WHERE id = ? AND title = ''`,
			titleFromContent(msg.Content), msg.SessionID.String())
		if err != nil {
			return fmt.Errorf("appending message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// Messages returns a session's messages in insertion order. Ordering is by
// rowid, not created_at: the segments of a hand-off exchange share one
// timestamp, and insertion order is the order the assembler emitted them.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, agent_id, content, created_at
		 FROM messages WHERE session_id = ? ORDER BY rowid`,
		sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var id, sid string
		if err := rows.Scan(&id, &sid, &msg.Role, &msg.AgentID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("loading messages: %w", err)
		}
		if msg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("loading messages: bad message id %q: %w", id, err)
		}
		if msg.SessionID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("loading messages: bad session id %q: %w", sid, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	return messages, nil
}

// titleFromContent derives a session title from a message: its first
// non-blank line, truncated to TitleMaxLength.
func titleFromContent(content string) string {
	title := strings.TrimSpace(content)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if len(title) > TitleMaxLength {
		title = title[:TitleMaxLength]
	}
	return title
}

// SetTitle updates a session's title, truncating to TitleMaxLength.
func (s *Store) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	if len(title) > TitleMaxLength {
		title = title[:TitleMaxLength]
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("setting title: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanSession.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var id string
	if err := row.Scan(&id, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad session id %q: %w", id, err)
	}
	sess.ID = parsed
	return &sess, nil
}
