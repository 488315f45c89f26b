// Package notifier sends reminders for notes whose deadline is near.
//
// The scheduler runs a check cycle, sleeps, and repeats:
//  1. List pending notes with a deadline in [now, now+Window]
//  2. Send one notification per note
//  3. Mark each delivered note "notified" in the cache, then push the
//     status to the remote store
//
// A note whose notification fails stays pending and is retried on the
// next cycle, so delivery is at least once. A note is only marked after
// its notification succeeded.
package notifier

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/notetugas/tugas/internal/note"
)

// Cache is the part of the local store the scheduler reads and marks.
type Cache interface {
	ListDueWithin(ctx context.Context, start, end int64) ([]note.Note, error)
	UpsertStatus(ctx context.Context, id string, status note.Status) error
}

// StatusPusher writes a status back to the remote store.
type StatusPusher interface {
	PushStatus(ctx context.Context, id string, status note.Status) error
}

// Config holds configuration for the scheduler.
type Config struct {
	// Interval is the sleep after a completed cycle.
	Interval time.Duration

	// RetryBackoff is the sleep after a cycle whose scan failed.
	RetryBackoff time.Duration

	// Window is how far ahead of now a deadline counts as due.
	Window time.Duration

	// NotifyTimeout bounds each notification and is its display time.
	NotifyTimeout time.Duration

	// Logger for scheduler activity
	Logger *log.Logger

	// Now returns the current time.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:      time.Hour,
		RetryBackoff:  5 * time.Minute,
		Window:        24 * time.Hour,
		NotifyTimeout: 20 * time.Second,
		Logger:        log.New(os.Stderr, "[notifier] ", log.LstdFlags),
		Now:           time.Now,
	}
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithConfig replaces the scheduler configuration. Zero fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		if cfg.Interval > 0 {
			s.config.Interval = cfg.Interval
		}
		if cfg.RetryBackoff > 0 {
			s.config.RetryBackoff = cfg.RetryBackoff
		}
		if cfg.Window > 0 {
			s.config.Window = cfg.Window
		}
		if cfg.NotifyTimeout > 0 {
			s.config.NotifyTimeout = cfg.NotifyTimeout
		}
		if cfg.Logger != nil {
			s.config.Logger = cfg.Logger
		}
		if cfg.Now != nil {
			s.config.Now = cfg.Now
		}
	}
}

// WithStatusPusher makes the scheduler push "notified" to the remote store
// after marking the cache.
func WithStatusPusher(p StatusPusher) Option {
	return func(s *Scheduler) {
		s.pusher = p
	}
}

// CycleResult summarizes one check cycle.
type CycleResult struct {
	Due      int
	Notified int
	Failed   int
}

// Scheduler runs deadline check cycles.
type Scheduler struct {
	cache  Cache
	sink   Sink
	pusher StatusPusher
	config *Config
}

// New creates a scheduler reading from c and notifying through sink.
func New(c Cache, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		cache:  c,
		sink:   sink,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle performs one check. The returned error is non-nil only if the
// due notes could not be listed; failures of single notes are counted in
// the result and logged.
func (s *Scheduler) RunCycle(ctx context.Context) (result CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier cycle panicked: %v", r)
		}
	}()

	now := s.config.Now()
	notes, err := s.cache.ListDueWithin(ctx, now.Unix(), now.Add(s.config.Window).Unix())
	if err != nil {
		return result, fmt.Errorf("failed to scan due notes: %w", err)
	}

	result.Due = len(notes)
	if len(notes) == 0 {
		s.config.Logger.Println("No deadlines in the next window")
		return result, nil
	}
	s.config.Logger.Printf("Found %d notes to notify", len(notes))

	for _, n := range notes {
		if ctx.Err() != nil {
			break
		}
		if err := s.notifyOne(ctx, n); err != nil {
			s.config.Logger.Printf("Failed to notify note %s: %v", n.ID, err)
			result.Failed++
			continue
		}
		result.Notified++
	}

	return result, nil
}

// notifyOne sends one reminder and marks the note. A panicking sink is
// reported as a failure of this note only.
func (s *Scheduler) notifyOne(ctx context.Context, n note.Note) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()

	notifyCtx, cancel := context.WithTimeout(ctx, s.config.NotifyTimeout)
	defer cancel()

	if err := s.sink.Notify(notifyCtx, Reminder(n, s.config.NotifyTimeout)); err != nil {
		return err
	}
	s.config.Logger.Printf("Notification for %s displayed", n.ID)

	if err := s.cache.UpsertStatus(ctx, n.ID, note.StatusNotified); err != nil {
		// Delivered, but the note may be notified again next cycle.
		s.config.Logger.Printf("WARNING: failed to mark note %s notified: %v", n.ID, err)
		return nil
	}

	if s.pusher != nil {
		if err := s.pusher.PushStatus(ctx, n.ID, note.StatusNotified); err != nil {
			s.config.Logger.Printf("WARNING: failed to push status of note %s: %v", n.ID, err)
		}
	}
	return nil
}

// Reminder builds the notification for a note.
func Reminder(n note.Note, timeout time.Duration) Notification {
	return Notification{
		NoteID:  n.ID,
		Title:   fmt.Sprintf("Deadline Reminder: %s", n.Subject),
		Body:    fmt.Sprintf("Task '%s' due on %s", n.Description, n.Display),
		Timeout: timeout,
	}
}

// Run loops RunCycle until ctx is cancelled, sleeping Interval after a good
// cycle and RetryBackoff after a failed scan.
func (s *Scheduler) Run(ctx context.Context) {
	s.config.Logger.Printf("Starting notifier (interval=%s, window=%s)", s.config.Interval, s.config.Window)

	for {
		s.config.Logger.Println("Checking deadlines...")
		wait := s.config.Interval

		result, err := s.RunCycle(ctx)
		if err != nil {
			s.config.Logger.Printf("Check failed: %v (retrying in %s)", err, s.config.RetryBackoff)
			wait = s.config.RetryBackoff
		} else if result.Due > 0 {
			s.config.Logger.Printf("Cycle complete: due=%d notified=%d failed=%d",
				result.Due, result.Notified, result.Failed)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.config.Logger.Println("Notifier stopped")
			return
		case <-timer.C:
		}
	}
}
