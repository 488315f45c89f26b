package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

// Notification is one deadline reminder.
type Notification struct {
	NoteID string
	Title  string
	Body   string

	// Timeout is how long the notification should stay on screen.
	Timeout time.Duration
}

// Sink delivers notifications. A nil error means the user was notified.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

// Notify implements Sink.
func (f SinkFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogSink only logs notifications. It is used when no display or push
// channel is configured.
type LogSink struct {
	Logger *log.Logger
}

// NewLogSink returns a sink logging to logger, or to stderr if nil.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(os.Stderr, "[notifier] ", log.LstdFlags)
	}
	return &LogSink{Logger: logger}
}

// Notify implements Sink.
func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	s.Logger.Printf("%s: %s", n.Title, n.Body)
	return nil
}

// MultiSink fans a notification out to several sinks. It succeeds if at
// least one of them succeeds.
type MultiSink []Sink

// Notify implements Sink.
func (m MultiSink) Notify(ctx context.Context, n Notification) error {
	if len(m) == 0 {
		return fmt.Errorf("no notification sinks configured")
	}

	var errs []error
	delivered := false
	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return errors.Join(errs...)
}
