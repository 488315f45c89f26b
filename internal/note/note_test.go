package note

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNote_Validate(t *testing.T) {
	deadline := NewDeadline(time.Date(2026, 10, 20, 22, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		note    Note
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid note",
			note:    Note{ID: "n1", Subject: "Kalkulus", Deadline: deadline, Status: StatusPending},
			wantErr: false,
		},
		{
			name:    "empty description is allowed",
			note:    Note{ID: "n1", Subject: "Kalkulus", Description: "", Deadline: deadline, Status: StatusNotified},
			wantErr: false,
		},
		{
			name:    "missing id",
			note:    Note{Subject: "Kalkulus", Deadline: deadline, Status: StatusPending},
			wantErr: true,
			errMsg:  "id is required",
		},
		{
			name:    "blank subject",
			note:    Note{ID: "n1", Subject: "  ", Deadline: deadline, Status: StatusPending},
			wantErr: true,
			errMsg:  "subject is required",
		},
		{
			name:    "missing deadline",
			note:    Note{ID: "n1", Subject: "Kalkulus", Status: StatusPending},
			wantErr: true,
			errMsg:  "deadline is required",
		},
		{
			name:    "status set by another client",
			note:    Note{ID: "n1", Subject: "Kalkulus", Deadline: deadline, Status: "archived"},
			wantErr: false,
		},
		{
			name:    "missing status",
			note:    Note{ID: "n1", Subject: "Kalkulus", Deadline: deadline},
			wantErr: true,
			errMsg:  "status is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.note.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestNewDeadline(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	ts := time.Date(2026, 3, 5, 9, 30, 0, 0, loc)

	d := NewDeadline(ts)
	if d.Timestamp != ts.Unix() {
		t.Errorf("Timestamp = %d, want %d", d.Timestamp, ts.Unix())
	}
	if d.Display != "05 March 2026 09:30" {
		t.Errorf("Display = %q", d.Display)
	}
	if d.Date != "2026-03-05" {
		t.Errorf("Date = %q", d.Date)
	}
	if got := d.Time(loc); !got.Equal(ts) {
		t.Errorf("Time() = %v, want %v", got, ts)
	}
}

func TestNote_JSONFieldNames(t *testing.T) {
	n := Note{
		ID:          "abc",
		Subject:     "Fisika",
		Description: "Laporan",
		Deadline:    Deadline{Timestamp: 1700000000, Display: "x", Date: "y"},
		Status:      StatusPending,
		OwnerID:     42,
	}

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"id", "subject", "description", "deadline_timestamp", "deadline_display", "deadline_date", "status", "owner_id"}
	if len(fields) != len(want) {
		t.Errorf("got %d fields, want %d: %v", len(fields), len(want), fields)
	}
	for _, key := range want {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if st, err := ParseStatus(" Completed "); err != nil || st != StatusCompleted {
		t.Errorf("ParseStatus() = %q, %v", st, err)
	}
	if _, err := ParseStatus("later"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestFields_Map(t *testing.T) {
	subject := "Basis Data"
	d := NewDeadline(time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC))
	f := Fields{Subject: &subject, Deadline: &d}

	m := f.Map()
	if m["subject"] != subject {
		t.Errorf("subject = %v", m["subject"])
	}
	if _, ok := m["description"]; ok {
		t.Error("description should be absent")
	}
	if m["deadline_timestamp"] != d.Timestamp || m["deadline_date"] != "2026-01-02" {
		t.Errorf("deadline fields = %v", m)
	}

	n := Note{Subject: "old", Description: "keep"}
	f.Apply(&n)
	if n.Subject != subject || n.Description != "keep" || n.Deadline != d {
		t.Errorf("Apply() = %+v", n)
	}
}
