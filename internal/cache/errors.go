package cache

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a point operation targets a row that does
// not exist.
var ErrNotFound = errors.New("not found")

// StoreError reports a local persistence failure. Callers do not retry
// these automatically.
type StoreError struct {
	// Op names the store operation, e.g. "replace all".
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err came from the cache.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
