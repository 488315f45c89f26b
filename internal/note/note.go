// Package note provides the data structures shared by the cache, the remote
// store adapters, the sync coordinator and the notifier.
package note

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used for the human readable deadline strings.
const (
	DisplayLayout = "02 January 2006 15:04"
	DateLayout    = "2006-01-02"
)

// Status is the lifecycle state of a note.
type Status string

const (
	StatusPending   Status = "pending"
	StatusNotified  Status = "notified"
	StatusDone      Status = "done"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusNotified, StatusDone, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are expected from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCompleted
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Deadline holds the three renderings of one resolved instant.
// Build it with NewDeadline so the fields never drift apart.
type Deadline struct {
	Timestamp int64  `json:"deadline_timestamp"`
	Display   string `json:"deadline_display"`
	Date      string `json:"deadline_date"`
}

// NewDeadline renders t in its own location.
func NewDeadline(t time.Time) Deadline {
	return Deadline{
		Timestamp: t.Unix(),
		Display:   t.Format(DisplayLayout),
		Date:      t.Format(DateLayout),
	}
}

// Time returns the deadline instant in loc.
func (d Deadline) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(d.Timestamp, 0).In(loc)
}

// IsZero reports whether the deadline was never set.
func (d Deadline) IsZero() bool {
	return d.Timestamp == 0 && d.Display == "" && d.Date == ""
}

// Note is a coursework task record. The remote store is authoritative;
// the local cache holds a disposable copy.
type Note struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Deadline
	Status  Status `json:"status"`
	OwnerID int64  `json:"owner_id"`
}

// Validate checks the fields the cache requires. Statuses this package
// does not know are accepted; other clients may add their own.
func (n *Note) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(n.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if n.Deadline.Timestamp == 0 {
		return fmt.Errorf("deadline is required")
	}
	if n.Status == "" {
		return fmt.Errorf("status is required")
	}
	return nil
}

// SetDefaults fills optional fields.
func (n *Note) SetDefaults() {
	if n.Status == "" {
		n.Status = StatusPending
	}
}

// Draft is a parsed, not yet stored note.
type Draft struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Deadline
}

// Validate checks that the draft can be written to the remote store.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if d.Deadline.Timestamp == 0 {
		return fmt.Errorf("deadline is required")
	}
	return nil
}

// Fields is a partial update of a note's editable fields.
// Nil pointers leave the stored value unchanged.
type Fields struct {
	Subject     *string
	Description *string
	Deadline    *Deadline
}

// Empty reports whether the update changes nothing.
func (f Fields) Empty() bool {
	return f.Subject == nil && f.Description == nil && f.Deadline == nil
}

// Map returns the update keyed by wire field name.
func (f Fields) Map() map[string]interface{} {
	m := make(map[string]interface{})
	if f.Subject != nil {
		m["subject"] = *f.Subject
	}
	if f.Description != nil {
		m["description"] = *f.Description
	}
	if f.Deadline != nil {
		m["deadline_timestamp"] = f.Deadline.Timestamp
		m["deadline_display"] = f.Deadline.Display
		m["deadline_date"] = f.Deadline.Date
	}
	return m
}

// Apply copies the set fields onto n.
func (f Fields) Apply(n *Note) {
	if f.Subject != nil {
		n.Subject = *f.Subject
	}
	if f.Description != nil {
		n.Description = *f.Description
	}
	if f.Deadline != nil {
		n.Deadline = *f.Deadline
	}
}
