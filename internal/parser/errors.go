package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the parse failure kinds. A *ParseError unwraps to
// exactly one of them, so callers can use errors.Is:
//
//	if errors.Is(err, parser.ErrUnparseableDate) {
//	    // ask the user for a clearer date
//	}
var (
	// ErrTooFewSegments is returned when the command has fewer than three
	// comma separated segments.
	ErrTooFewSegments = errors.New("too few segments")

	// ErrMissingField is returned when subject, description or deadline
	// is absent or empty.
	ErrMissingField = errors.New("missing field")

	// ErrUnparseableDate is returned when the deadline text cannot be
	// resolved to an instant.
	ErrUnparseableDate = errors.New("unparseable date")
)

// Kind classifies a ParseError.
type Kind int

const (
	KindTooFewSegments Kind = iota + 1
	KindMissingField
	KindUnparseableDate
)

func (k Kind) String() string {
	switch k {
	case KindTooFewSegments:
		return "TooFewSegments"
	case KindMissingField:
		return "MissingField"
	case KindUnparseableDate:
		return "UnparseableDate"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseError describes why a command could not be turned into a draft.
// Its message is meant to be shown to the user as is.
type ParseError struct {
	Kind Kind
	// Fields lists the missing fields for KindMissingField.
	Fields []string
	// Input is the offending text: the whole command, or the deadline
	// value for KindUnparseableDate.
	Input string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindTooFewSegments:
		return "incorrect format: separate the subject, task and deadline with commas (',')"
	case KindMissingField:
		return fmt.Sprintf("incomplete format: keywords 'matkul', 'tugas' and 'deadline' must exist and have content (missing: %s)",
			strings.Join(e.Fields, ", "))
	case KindUnparseableDate:
		return fmt.Sprintf("date format %q not recognized", e.Input)
	}
	return "parse error"
}

// Unwrap returns the sentinel error matching e.Kind.
func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case KindTooFewSegments:
		return ErrTooFewSegments
	case KindMissingField:
		return ErrMissingField
	case KindUnparseableDate:
		return ErrUnparseableDate
	}
	return nil
}
