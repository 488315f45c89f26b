package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notetugas/tugas/internal/note"
)

const noteColumns = `id, subject, description, deadline_timestamp,
	deadline_display, deadline_date, status, owner_id`

// ReplaceAll atomically swaps the whole notes table for notes.
//
// The delete and every insert run in one transaction: if any insert fails
// the transaction is rolled back and readers keep seeing the previous set.
// Notes are validated before the transaction starts.
func (s *Store) ReplaceAll(ctx context.Context, notes []note.Note) error {
	for i := range notes {
		if err := notes[i].Validate(); err != nil {
			return &StoreError{Op: "replace all", Err: fmt.Errorf("invalid note %q: %w", notes[i].ID, err)}
		}
	}

	return s.withTx(ctx, "replace all", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM notes"); err != nil {
			return fmt.Errorf("failed to clear notes: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, n := range notes {
			_, err := stmt.ExecContext(ctx,
				n.ID,
				n.Subject,
				n.Description,
				n.Deadline.Timestamp,
				n.Deadline.Display,
				n.Deadline.Date,
				string(n.Status),
				n.OwnerID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert note %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

// ListAll returns every cached note ordered by deadline ascending. Ties are
// broken by id so the order is stable.
func (s *Store) ListAll(ctx context.Context) ([]note.Note, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT `+noteColumns+`
	FROM notes
	ORDER BY deadline_timestamp ASC, id ASC
	`)
	if err != nil {
		return nil, &StoreError{Op: "list all", Err: err}
	}
	defer rows.Close()

	notes, err := scanNotes(rows)
	if err != nil {
		return nil, &StoreError{Op: "list all", Err: err}
	}
	return notes, nil
}

// ListDueWithin returns pending notes whose deadline lies in [start, end],
// both bounds inclusive, in epoch seconds.
func (s *Store) ListDueWithin(ctx context.Context, start, end int64) ([]note.Note, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT `+noteColumns+`
	FROM notes
	WHERE status = ?
	  AND deadline_timestamp BETWEEN ? AND ?
	ORDER BY deadline_timestamp ASC, id ASC
	`, string(note.StatusPending), start, end)
	if err != nil {
		return nil, &StoreError{Op: "list due", Err: err}
	}
	defer rows.Close()

	notes, err := scanNotes(rows)
	if err != nil {
		return nil, &StoreError{Op: "list due", Err: err}
	}
	return notes, nil
}

// Get returns one cached note. The error wraps ErrNotFound for unknown ids.
func (s *Store) Get(ctx context.Context, id string) (note.Note, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT `+noteColumns+`
	FROM notes
	WHERE id = ?
	`, id)

	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return note.Note{}, &StoreError{Op: "get", Err: fmt.Errorf("note %s: %w", id, ErrNotFound)}
	}
	if err != nil {
		return note.Note{}, &StoreError{Op: "get", Err: err}
	}
	return n, nil
}

// UpsertStatus sets the status of one cached note. The error wraps
// ErrNotFound if the note is not cached.
func (s *Store) UpsertStatus(ctx context.Context, id string, status note.Status) error {
	if !status.Valid() {
		return &StoreError{Op: "update status", Err: fmt.Errorf("invalid status %q", status)}
	}

	return s.withTx(ctx, "update status", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE notes SET status = ? WHERE id = ?`, string(status), id)
		if err != nil {
			return fmt.Errorf("failed to update note %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("note %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Delete removes one cached note. Returns nil if the note doesn't exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete note %s: %w", id, err)
		}
		return nil
	})
}

// Count returns the number of cached notes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (note.Note, error) {
	var n note.Note
	var status string

	err := row.Scan(
		&n.ID,
		&n.Subject,
		&n.Description,
		&n.Deadline.Timestamp,
		&n.Deadline.Display,
		&n.Deadline.Date,
		&status,
		&n.OwnerID,
	)
	if err != nil {
		return note.Note{}, err
	}

	n.Status = note.Status(status)
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]note.Note, error) {
	notes := []note.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}
