// Package remote is the boundary to the authoritative note store.
//
// The store is keyed by owner: ListNotes only returns the owner's notes and
// CreateNote stamps the owner on the new record. Records returned by
// ListNotes are raw; they may lack a subject or deadline, and callers are
// expected to validate them before caching.
package remote

import (
	"context"
	"errors"

	"github.com/notetugas/tugas/internal/note"
)

// ErrNotFound is returned when a mutation targets an unknown note id.
var ErrNotFound = errors.New("remote note not found")

// ErrUnavailable is returned by adapters that were not configured.
var ErrUnavailable = errors.New("remote store unavailable")

// Store is the remote note store.
type Store interface {
	// ListNotes returns all notes owned by ownerID.
	ListNotes(ctx context.Context, ownerID int64) ([]note.Note, error)

	// CreateNote stores a new pending note and returns its id.
	CreateNote(ctx context.Context, ownerID int64, draft note.Draft) (string, error)

	// UpdateStatus sets the status of one note.
	UpdateStatus(ctx context.Context, id string, status note.Status) error

	// UpdateFields applies a partial update to one note.
	UpdateFields(ctx context.Context, id string, fields note.Fields) error

	// DeleteNote removes one note.
	DeleteNote(ctx context.Context, id string) error
}
