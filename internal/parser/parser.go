// Package parser turns a loosely structured text command such as
//
//	matkul Kalkulus, tugas latihan bab 3, deadline tomorrow 10pm
//
// into a validated note.Draft. Parsing is pure: the only inputs are the
// text, the reference clock and the time zone.
package parser

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/notetugas/tugas/internal/note"
)

// DefaultTimezone is the zone deadlines are interpreted in.
const DefaultTimezone = "Asia/Jakarta"

// Field names used in ParseError.Fields.
const (
	FieldSubject     = "subject"
	FieldDescription = "description"
	FieldDeadline    = "deadline"
)

type fieldAliases struct {
	field   string
	aliases []string
}

// aliases are tested in order; the first matching alias of the first
// matching field wins for a segment.
var aliases = []fieldAliases{
	{FieldSubject, []string{"matakuliah", "matkul", "mk", "subject"}},
	{FieldDescription, []string{"tugas", "deskripsi", "task", "apa"}},
	{FieldDeadline, []string{"deadline", "dl", "tenggat", "kapan"}},
}

// Parser parses note commands. The zero value is not usable; call New.
type Parser struct {
	loc   *time.Location
	now   func() time.Time
	dates *dateResolver
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the reference time zone.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock sets the source of "now".
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Parser using DefaultTimezone and the wall clock unless
// overridden.
func New(opts ...Option) *Parser {
	p := &Parser{
		loc:   DefaultLocation(),
		now:   time.Now,
		dates: newDateResolver(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultLocation loads DefaultTimezone, falling back to a fixed UTC+7 zone.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// LoadLocation resolves a zone name, using DefaultLocation for "".
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return DefaultLocation(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Location returns the zone deadlines are resolved in.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Now returns the current reference time in the parser's zone.
func (p *Parser) Now() time.Time {
	return p.now().In(p.loc)
}

// Parse converts a comma separated command into a draft. The returned error
// is always a *ParseError.
func (p *Parser) Parse(text string) (*note.Draft, error) {
	parts := strings.Split(text, ",")
	if len(parts) < 3 {
		return nil, &ParseError{Kind: KindTooFewSegments, Input: text}
	}

	values := make(map[string]string, len(aliases))
	for _, part := range parts {
		field, value, ok := matchSegment(strings.TrimSpace(part))
		if !ok || value == "" {
			continue
		}
		values[field] = value
	}

	var missing []string
	for _, fa := range aliases {
		if values[fa.field] == "" {
			missing = append(missing, fa.field)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Kind: KindMissingField, Fields: missing, Input: text}
	}

	deadline, err := p.ParseDeadline(values[FieldDeadline])
	if err != nil {
		return nil, err
	}

	return &note.Draft{
		Subject:     values[FieldSubject],
		Description: values[FieldDescription],
		Deadline:    deadline,
	}, nil
}

// ParseFields builds a command from separate form fields and parses it,
// so form input goes through exactly the same rules as typed commands.
func (p *Parser) ParseFields(subject, description, deadline string) (*note.Draft, error) {
	text := fmt.Sprintf("matkul %s, tugas %s, deadline %s",
		strings.TrimSpace(subject), strings.TrimSpace(description), strings.TrimSpace(deadline))
	return p.Parse(text)
}

// ParseDeadline resolves a free text date into all three deadline
// renderings.
func (p *Parser) ParseDeadline(text string) (note.Deadline, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return note.Deadline{}, &ParseError{Kind: KindMissingField, Fields: []string{FieldDeadline}}
	}

	t, ok := p.dates.resolve(text, p.Now())
	if !ok {
		return note.Deadline{}, &ParseError{Kind: KindUnparseableDate, Input: text}
	}
	return note.NewDeadline(t.In(p.loc)), nil
}

// matchSegment finds the field whose alias prefixes segment.
func matchSegment(segment string) (field, value string, ok bool) {
	for _, fa := range aliases {
		for _, alias := range fa.aliases {
			prefix := alias + " "
			if len(segment) >= len(prefix) && strings.EqualFold(segment[:len(prefix)], prefix) {
				return fa.field, strings.TrimSpace(segment[len(prefix):]), true
			}
		}
	}
	return "", "", false
}
