package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notetugas/tugas/internal/note"
)

// CreateSession inserts a chat session and returns its id. Ids are
// assigned by the store and strictly increase.
func (s *Store) CreateSession(ctx context.Context, title string) (int64, error) {
	var id int64
	err := s.withTx(ctx, "create session", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO chat_sessions (title, created_at) VALUES (?, ?)`,
			title, s.now().Unix())
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns all chat sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]note.ChatSession, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, title, created_at
	FROM chat_sessions
	ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, &StoreError{Op: "list sessions", Err: err}
	}
	defer rows.Close()

	sessions := []note.ChatSession{}
	for rows.Next() {
		var cs note.ChatSession
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.CreatedAt); err != nil {
			return nil, &StoreError{Op: "list sessions", Err: fmt.Errorf("failed to scan session: %w", err)}
		}
		sessions = append(sessions, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// GetSession returns one session. The error wraps ErrNotFound for unknown ids.
func (s *Store) GetSession(ctx context.Context, id int64) (note.ChatSession, error) {
	var cs note.ChatSession
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&cs.ID, &cs.Title, &cs.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return note.ChatSession{}, &StoreError{Op: "get session", Err: fmt.Errorf("session %d: %w", id, ErrNotFound)}
	}
	if err != nil {
		return note.ChatSession{}, &StoreError{Op: "get session", Err: err}
	}
	return cs, nil
}

// DeleteSession removes a session and all of its messages in one
// transaction. Returns nil if the session doesn't exist.
func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete session", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete messages of session %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete session %d: %w", id, err)
		}
		return nil
	})
}

// AppendMessage adds a message to a live session and returns its id. The
// error wraps ErrNotFound if the session does not exist.
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, sender note.Sender, content string) (int64, error) {
	msg := note.ChatMessage{SessionID: sessionID, Sender: sender, Content: content}
	if err := msg.Validate(); err != nil {
		return 0, &StoreError{Op: "append message", Err: err}
	}

	var id int64
	err := s.withTx(ctx, "append message", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM chat_sessions WHERE id = ?`, sessionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (session_id, sender, content, timestamp) VALUES (?, ?, ?, ?)`,
			sessionID, string(sender), content, s.now().Unix())
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListMessages returns a session's messages in chronological order. An
// unknown or deleted session yields an empty slice.
func (s *Store) ListMessages(ctx context.Context, sessionID int64) ([]note.ChatMessage, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, session_id, sender, content, timestamp
	FROM chat_messages
	WHERE session_id = ?
	ORDER BY timestamp ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, &StoreError{Op: "list messages", Err: err}
	}
	defer rows.Close()

	messages := []note.ChatMessage{}
	for rows.Next() {
		var m note.ChatMessage
		var sender string
		if err := rows.Scan(&m.ID, &m.SessionID, &sender, &m.Content, &m.Timestamp); err != nil {
			return nil, &StoreError{Op: "list messages", Err: fmt.Errorf("failed to scan message: %w", err)}
		}
		m.Sender = note.Sender(sender)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list messages", Err: err}
	}
	return messages, nil
}
