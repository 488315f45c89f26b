package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/notetugas/tugas/internal/note"
)

// Op names a Store method for failure injection.
type Op string

const (
	OpList         Op = "list"
	OpCreate       Op = "create"
	OpUpdateStatus Op = "update_status"
	OpUpdateFields Op = "update_fields"
	OpDelete       Op = "delete"
)

// Memory is an in-process Store used for offline mode and tests.
//
// Failures can be injected per operation with FailWith; an injected error
// is returned by every call until cleared.
type Memory struct {
	mu       sync.Mutex
	notes    map[string]note.Note
	failures map[Op]error
	calls    map[Op]int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		notes:    make(map[string]note.Note),
		failures: make(map[Op]error),
		calls:    make(map[Op]int),
	}
}

// Put stores a raw record as-is, overwriting any record with the same id.
// The record is not validated, so tests can seed incomplete documents.
func (m *Memory) Put(n note.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[n.ID] = n
}

// FailWith makes every call of op return err. A nil err clears the failure.
func (m *Memory) FailWith(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op was invoked, failed calls included.
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// begin records a call and returns the injected failure, if any.
// Caller must hold m.mu.
func (m *Memory) begin(ctx context.Context, op Op) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.failures[op]
}

// ListNotes implements Store. Notes are returned in id order.
func (m *Memory) ListNotes(ctx context.Context, ownerID int64) ([]note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpList); err != nil {
		return nil, err
	}

	notes := []note.Note{}
	for _, n := range m.notes {
		if n.OwnerID == ownerID {
			notes = append(notes, n)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes, nil
}

// CreateNote implements Store.
func (m *Memory) CreateNote(ctx context.Context, ownerID int64, draft note.Draft) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreate); err != nil {
		return "", err
	}

	id := uuid.NewString()
	m.notes[id] = note.Note{
		ID:          id,
		Subject:     draft.Subject,
		Description: draft.Description,
		Deadline:    draft.Deadline,
		Status:      note.StatusPending,
		OwnerID:     ownerID,
	}
	return id, nil
}

// UpdateStatus implements Store.
func (m *Memory) UpdateStatus(ctx context.Context, id string, status note.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpdateStatus); err != nil {
		return err
	}

	n, ok := m.notes[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	n.Status = status
	m.notes[id] = n
	return nil
}

// UpdateFields implements Store.
func (m *Memory) UpdateFields(ctx context.Context, id string, fields note.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpdateFields); err != nil {
		return err
	}

	n, ok := m.notes[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	fields.Apply(&n)
	m.notes[id] = n
	return nil
}

// DeleteNote implements Store. Deleting an unknown id is not an error.
func (m *Memory) DeleteNote(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDelete); err != nil {
		return err
	}

	delete(m.notes, id)
	return nil
}
