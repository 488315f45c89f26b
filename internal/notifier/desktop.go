package notifier

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// DesktopSink shows notifications on the local desktop.
type DesktopSink struct {
	// AppIcon is an optional icon path.
	AppIcon string

	notify func(title, message, icon string) error
}

// NewDesktopSink returns a sink using the platform notification service.
func NewDesktopSink(appIcon string) *DesktopSink {
	return &DesktopSink{AppIcon: appIcon, notify: beeep.Notify}
}

// Notify implements Sink. The platform call is abandoned when ctx is done.
func (s *DesktopSink) Notify(ctx context.Context, n Notification) error {
	done := make(chan error, 1)
	go func() {
		done <- s.notify(n.Title, n.Body, s.AppIcon)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to show desktop notification: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("desktop notification timed out: %w", ctx.Err())
	}
}
