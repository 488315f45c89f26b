// Package cache provides the local on-disk cache of notes and the chat
// history tables.
//
// The cache is an embedded SQLite database in WAL mode. Notes in it are a
// disposable projection of the remote store: they are created wholesale by
// ReplaceAll after a remote pull and can be rebuilt at any time. Chat
// sessions and messages exist only here.
//
// Concurrency:
//   - Every mutating operation runs in its own transaction under a single
//     store-level write lock, so writes never interleave.
//   - Reads take no lock. WAL snapshot isolation means a reader sees either
//     the table before a ReplaceAll or after it, never the empty table in
//     between.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite connection pool.
type Store struct {
	conn *sql.DB
	path string

	// writeMu serializes every mutating operation.
	writeMu sync.Mutex

	now func() time.Time
}

// Open creates or opens the cache database at path.
//
// Connection pragmas are passed in the DSN so they apply to every pooled
// connection, not just the first one.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := cache.Open("data/notes.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*Store, error) {
	path = strings.TrimPrefix(path, "file:")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("failed to create database directory: %w", err)}
	}

	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(wal)" +
		"&_txlock=immediate"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, &StoreError{Op: "ping", Err: err}
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &Store{
		conn: conn,
		path: path,
		now:  time.Now,
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection pool.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return &StoreError{Op: "close", Err: err}
	}

	s.conn = nil
	return nil
}

// InitSchema creates the tables and indexes if they don't exist.
// This is idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		deadline_timestamp INTEGER NOT NULL,
		deadline_display TEXT NOT NULL DEFAULT '',
		deadline_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		owner_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		sender TEXT NOT NULL CHECK (sender IN ('user', 'ai')),
		content TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_notes_deadline ON notes(deadline_timestamp);
	CREATE INDEX IF NOT EXISTS idx_notes_due ON notes(status, deadline_timestamp);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_created ON chat_sessions(created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, timestamp);
	`

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return &StoreError{Op: "init schema", Err: err}
	}
	return nil
}

// withTx runs fn in a transaction under the write lock. The transaction
// is rolled back unless fn returns nil and the commit succeeds.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: op, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return &StoreError{Op: op, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: op, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	return nil
}
