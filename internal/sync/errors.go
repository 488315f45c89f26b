package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/notetugas/tugas/internal/cache"
	"github.com/notetugas/tugas/internal/remote"
)

var (
	// ErrStaleCache is returned when a remote write succeeded but the
	// refresh that follows it failed. The cache is behind the remote store
	// until the next successful sync.
	ErrStaleCache = errors.New("remote write succeeded but cache refresh failed")

	// ErrInvalidInput is returned for mutations rejected before any remote
	// call is made.
	ErrInvalidInput = errors.New("invalid input")
)

// RemoteError reports a failed call to the remote store.
type RemoteError struct {
	// Op names the remote operation, e.g. "list" or "create".
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err came from the remote store.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsRetryable returns true if the error is likely to succeed on retry.
//
// Remote failures are treated as transient unless the note does not exist
// or the caller gave up. Cache failures are local and never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if cache.IsStoreError(err) {
		return false
	}

	if errors.Is(err, remote.ErrNotFound) || errors.Is(err, remote.ErrUnavailable) {
		return false
	}

	return IsRemoteError(err)
}
