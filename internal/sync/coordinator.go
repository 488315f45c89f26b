// Package sync keeps the local note cache consistent with the remote store.
//
// Every refresh is a full pull: the owner's notes are fetched from the
// remote store, incomplete records are dropped, and the cache is replaced
// in one transaction. Observers are then handed the fresh list.
//
// Mutations go to the remote store first. The cache is never written
// directly by a mutation; it is rebuilt by the refresh that follows, so the
// cache only ever holds what the remote store returned.
//
//	Remote store ──pull──▶ Coordinator ──ReplaceAll──▶ cache
//	      ▲                     │
//	      └──── mutations ──────┘──NotesChanged──▶ observers
package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	stdsync "sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/notetugas/tugas/internal/note"
	"github.com/notetugas/tugas/internal/remote"
)

// Cache is the part of the local store the coordinator writes.
type Cache interface {
	ReplaceAll(ctx context.Context, notes []note.Note) error
	ListAll(ctx context.Context) ([]note.Note, error)
}

// Observer is notified with the full note list after every refresh.
//
// NotesChanged is called synchronously while the refresh lock is held and
// must not block.
type Observer interface {
	NotesChanged(notes []note.Note)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(notes []note.Note)

// NotesChanged implements Observer.
func (f ObserverFunc) NotesChanged(notes []note.Note) { f(notes) }

// Config holds configuration for the coordinator.
type Config struct {
	// PullAttempts is how many times a failed remote pull is tried.
	PullAttempts int

	// PullBackoff is the delay after the first failed pull. It doubles
	// after each further failure.
	PullBackoff time.Duration

	// Logger for sync activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PullAttempts: 3,
		PullBackoff:  500 * time.Millisecond,
		Logger:       log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Option customizes a Coordinator.
type Option func(*Config)

// WithLogger sets the coordinator's logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithPullRetry sets the pull attempt count and the initial backoff.
func WithPullRetry(attempts int, backoff time.Duration) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.PullAttempts = attempts
		}
		if backoff >= 0 {
			c.PullBackoff = backoff
		}
	}
}

// Coordinator pulls remote notes into the cache and routes mutations.
type Coordinator struct {
	cache   Cache
	remote  remote.Store
	ownerID int64
	config  *Config

	// refreshMu is held for replace, list and publish. It is never held
	// across a remote call.
	refreshMu stdsync.Mutex

	observersMu stdsync.RWMutex
	observers   []Observer
}

// New creates a coordinator for one owner.
//
// The cache must have its schema initialized.
//
// Example:
//
//	store, err := cache.Open("data/notes.db")
//	if err != nil {
//	    return err
//	}
//	coord := sync.New(store, remote.NewMemory(), 12345)
//	notes, err := coord.Sync(ctx)
func New(c Cache, r remote.Store, ownerID int64, opts ...Option) *Coordinator {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Coordinator{
		cache:   c,
		remote:  r,
		ownerID: ownerID,
		config:  config,
	}
}

// OwnerID returns the owner the coordinator syncs for.
func (c *Coordinator) OwnerID() int64 {
	return c.ownerID
}

// Subscribe registers an observer for future refreshes.
func (c *Coordinator) Subscribe(o Observer) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	c.observers = append(c.observers, o)
}

// Notes returns the cached notes ordered by deadline.
func (c *Coordinator) Notes(ctx context.Context) ([]note.Note, error) {
	return c.cache.ListAll(ctx)
}

// Sync pulls the owner's notes, replaces the cache with them and publishes
// the resulting list.
//
// On a pull failure the cache is left untouched and a *RemoteError is
// returned. Records without a subject or deadline are skipped.
func (c *Coordinator) Sync(ctx context.Context) ([]note.Note, error) {
	raw, err := c.pull(ctx)
	if err != nil {
		return nil, err
	}

	valid := make([]note.Note, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	skipped := 0
	for _, n := range raw {
		n.SetDefaults()
		if err := n.Validate(); err != nil {
			c.config.Logger.Printf("Skipping remote note %s: %v", n.ID, err)
			skipped++
			continue
		}
		if seen[n.ID] {
			c.config.Logger.Printf("Skipping duplicate remote note %s", n.ID)
			skipped++
			continue
		}
		seen[n.ID] = true
		valid = append(valid, n)
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if err := c.cache.ReplaceAll(ctx, valid); err != nil {
		return nil, fmt.Errorf("failed to replace cache: %w", err)
	}

	notes, err := c.cache.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	c.publish(notes)
	c.config.Logger.Printf("Sync complete: %d notes (skipped=%d)", len(notes), skipped)
	return notes, nil
}

// pull fetches the owner's notes with retry and exponential backoff.
// Errors that will not improve on retry stop it early.
func (c *Coordinator) pull(ctx context.Context) ([]note.Note, error) {
	var (
		notes   []note.Note
		lastErr error
		attempt int
	)

	operation := func() error {
		attempt++
		var err error
		notes, err = c.remote.ListNotes(ctx, c.ownerID)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(&RemoteError{Op: "list", Err: err}) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		c.config.Logger.Printf("Pull attempt %d/%d failed: %v (retrying in %s)",
			attempt, c.config.PullAttempts, err, next)
	}

	if err := backoff.RetryNotify(operation, c.pullBackOff(ctx), notify); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, &RemoteError{Op: "list", Err: lastErr}
	}
	return notes, nil
}

// pullBackOff allows PullAttempts calls in total, starting at PullBackoff
// and doubling after each failure.
func (c *Coordinator) pullBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.PullBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	var retries uint64
	if c.config.PullAttempts > 1 {
		retries = uint64(c.config.PullAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// publish hands notes to every observer. Caller must hold refreshMu.
func (c *Coordinator) publish(notes []note.Note) {
	c.observersMu.RLock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.observersMu.RUnlock()

	for _, o := range observers {
		o.NotesChanged(notes)
	}
}

// CreateNote writes a new note to the remote store and refreshes the cache.
//
// If the refresh fails the id is still returned together with an error
// wrapping ErrStaleCache.
func (c *Coordinator) CreateNote(ctx context.Context, draft note.Draft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id, err := c.remote.CreateNote(ctx, c.ownerID, draft)
	if err != nil {
		return "", &RemoteError{Op: "create", Err: err}
	}
	c.config.Logger.Printf("Created note %s (%s)", id, draft.Subject)

	return id, c.refreshAfterWrite(ctx)
}

// UpdateStatus sets a note's status remotely and refreshes the cache.
func (c *Coordinator) UpdateStatus(ctx context.Context, id string, status note.Status) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidInput, status)
	}

	if err := c.remote.UpdateStatus(ctx, id, status); err != nil {
		return &RemoteError{Op: "update status", Err: err}
	}
	c.config.Logger.Printf("Note %s status set to %s", id, status)

	return c.refreshAfterWrite(ctx)
}

// UpdateFields applies a partial edit remotely and refreshes the cache.
func (c *Coordinator) UpdateFields(ctx context.Context, id string, fields note.Fields) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if fields.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if fields.Subject != nil && *fields.Subject == "" {
		return fmt.Errorf("%w: subject cannot be empty", ErrInvalidInput)
	}
	if fields.Deadline != nil && fields.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline cannot be empty", ErrInvalidInput)
	}

	if err := c.remote.UpdateFields(ctx, id, fields); err != nil {
		return &RemoteError{Op: "update fields", Err: err}
	}
	c.config.Logger.Printf("Note %s updated", id)

	return c.refreshAfterWrite(ctx)
}

// DeleteNote removes a note remotely and refreshes the cache.
func (c *Coordinator) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	if err := c.remote.DeleteNote(ctx, id); err != nil {
		return &RemoteError{Op: "delete", Err: err}
	}
	c.config.Logger.Printf("Note %s deleted", id)

	return c.refreshAfterWrite(ctx)
}

// PushStatus writes a status to the remote store without pulling. It is
// used when the cache already carries the new status, and publishes the
// cached list so observers see it.
func (c *Coordinator) PushStatus(ctx context.Context, id string, status note.Status) error {
	if err := c.remote.UpdateStatus(ctx, id, status); err != nil {
		return &RemoteError{Op: "update status", Err: err}
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	notes, err := c.cache.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache: %w", err)
	}
	c.publish(notes)
	return nil
}

func (c *Coordinator) refreshAfterWrite(ctx context.Context) error {
	if _, err := c.Sync(ctx); err != nil {
		c.config.Logger.Printf("WARNING: refresh after write failed: %v", err)
		return fmt.Errorf("%w: %w", ErrStaleCache, err)
	}
	return nil
}

// Run syncs every interval until ctx is cancelled. Failures are logged and
// the loop keeps going.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	c.config.Logger.Printf("Periodic sync every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.config.Logger.Println("Periodic sync stopped")
			return
		case <-ticker.C:
			if _, err := c.Sync(ctx); err != nil {
				c.config.Logger.Printf("Periodic sync failed: %v", err)
			}
		}
	}
}
