package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/notetugas/tugas/internal/note"
)

func testNotes() []note.Note {
	return []note.Note{
		{
			ID:          "a1b2c3d4e5f6",
			Subject:     "Kalkulus",
			Description: "Latihan 3",
			Deadline:    note.NewDeadline(time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)),
			Status:      note.StatusPending,
		},
		{
			ID:          "zz",
			Subject:     "Fisika",
			Description: "Lab",
			Deadline:    note.NewDeadline(time.Date(2026, 10, 25, 8, 0, 0, 0, time.UTC)),
			Status:      note.StatusNotified,
		},
	}
}

func TestWriteNotes_Structured(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	want := toRecords(testNotes())

	tests := []struct {
		format string
		decode func([]byte) ([]noteRecord, error)
	}{
		{formatJSON, func(b []byte) ([]noteRecord, error) {
			var got []noteRecord
			err := json.Unmarshal(b, &got)
			return got, err
		}},
		{formatYAML, func(b []byte) ([]noteRecord, error) {
			var got []noteRecord
			err := yaml.Unmarshal(b, &got)
			return got, err
		}},
		{formatTOML, func(b []byte) ([]noteRecord, error) {
			var got struct {
				Notes []noteRecord `toml:"notes"`
			}
			_, err := toml.Decode(string(b), &got)
			return got.Notes, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeNotes(&buf, testNotes(), tt.format, now, 100); err != nil {
				t.Fatalf("writeNotes() failed: %v", err)
			}
			got, err := tt.decode(buf.Bytes())
			if err != nil {
				t.Fatalf("decode failed: %v\n%s", err, buf.String())
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteNotes_Table(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := writeNotes(&buf, testNotes(), formatTable, now, 120); err != nil {
		t.Fatalf("writeNotes() failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"MATA KULIAH", "Kalkulus", "a1b2c3d4", "19 October 2026 22:00", "in 34h", "notified"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeNotes(&buf, nil, formatTable, now, 120); err != nil {
		t.Fatalf("writeNotes(empty) failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No notes.") {
		t.Errorf("empty table = %q", buf.String())
	}

	if err := writeNotes(&buf, nil, "xml", now, 120); err == nil {
		t.Error("writeNotes() accepted an unknown format")
	}
}

func TestDueIn(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{30 * time.Second, "now"},
		{45 * time.Minute, "in 45m"},
		{5 * time.Hour, "in 5h"},
		{72 * time.Hour, "in 3d"},
		{-2 * time.Hour, "2h ago"},
	}
	for _, tt := range tests {
		if got := dueIn(now.Add(tt.offset), now); got != tt.want {
			t.Errorf("dueIn(%v) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}
