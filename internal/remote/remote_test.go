package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/notetugas/tugas/internal/note"
)

func testDraft(subject string) note.Draft {
	return note.Draft{
		Subject:     subject,
		Description: "Tugas " + subject,
		Deadline:    note.NewDeadline(time.Date(2026, 10, 20, 23, 59, 0, 0, time.UTC)),
	}
}

func TestMemory_CreateAndList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.CreateNote(ctx, 42, testDraft("Kalkulus"))
	if err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}
	if id == "" {
		t.Fatal("CreateNote() returned empty id")
	}
	if _, err := m.CreateNote(ctx, 99, testDraft("Fisika")); err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}

	notes, err := m.ListNotes(ctx, 42)
	if err != nil {
		t.Fatalf("ListNotes() failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("ListNotes(42) returned %d notes, want 1", len(notes))
	}

	want := note.Note{
		ID:          id,
		Subject:     "Kalkulus",
		Description: "Tugas Kalkulus",
		Deadline:    testDraft("Kalkulus").Deadline,
		Status:      note.StatusPending,
		OwnerID:     42,
	}
	if diff := cmp.Diff(want, notes[0]); diff != "" {
		t.Errorf("note mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_Mutations(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, _ := m.CreateNote(ctx, 1, testDraft("Basis Data"))

	if err := m.UpdateStatus(ctx, id, note.StatusDone); err != nil {
		t.Fatalf("UpdateStatus() failed: %v", err)
	}

	subject := "Sistem Basis Data"
	if err := m.UpdateFields(ctx, id, note.Fields{Subject: &subject}); err != nil {
		t.Fatalf("UpdateFields() failed: %v", err)
	}

	notes, _ := m.ListNotes(ctx, 1)
	if notes[0].Status != note.StatusDone || notes[0].Subject != subject {
		t.Errorf("note after updates = %+v", notes[0])
	}

	if err := m.UpdateStatus(ctx, "missing", note.StatusDone); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrNotFound", err)
	}
	if err := m.UpdateFields(ctx, "missing", note.Fields{Subject: &subject}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateFields(missing) error = %v, want ErrNotFound", err)
	}

	if err := m.DeleteNote(ctx, id); err != nil {
		t.Fatalf("DeleteNote() failed: %v", err)
	}
	if err := m.DeleteNote(ctx, id); err != nil {
		t.Errorf("second DeleteNote() failed: %v", err)
	}
	notes, _ = m.ListNotes(ctx, 1)
	if len(notes) != 0 {
		t.Errorf("ListNotes() after delete returned %d notes", len(notes))
	}
}

func TestMemory_FailWith(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	m.FailWith(OpList, boom)
	if _, err := m.ListNotes(ctx, 1); !errors.Is(err, boom) {
		t.Errorf("ListNotes() error = %v, want boom", err)
	}
	if _, err := m.ListNotes(ctx, 1); !errors.Is(err, boom) {
		t.Errorf("second ListNotes() error = %v, want boom", err)
	}
	if got := m.Calls(OpList); got != 2 {
		t.Errorf("Calls(list) = %d, want 2", got)
	}

	m.FailWith(OpList, nil)
	if _, err := m.ListNotes(ctx, 1); err != nil {
		t.Errorf("ListNotes() after clear failed: %v", err)
	}

	m.FailWith(OpCreate, boom)
	if _, err := m.CreateNote(ctx, 1, testDraft("x")); !errors.Is(err, boom) {
		t.Errorf("CreateNote() error = %v, want boom", err)
	}
	notes, _ := m.ListNotes(ctx, 1)
	if len(notes) != 0 {
		t.Errorf("failed create stored %d notes", len(notes))
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.ListNotes(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("ListNotes() error = %v, want context.Canceled", err)
	}
}

func TestNoteFromData(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
		want note.Note
	}{
		{
			name: "complete document with float timestamp",
			data: map[string]interface{}{
				fieldSubject:     "Kalkulus",
				fieldDescription: "Latihan 3",
				fieldTimestamp:   float64(1792519140),
				fieldDisplay:     "20 October 2026 23:59",
				fieldDate:        "2026-10-20",
				fieldStatus:      "notified",
				fieldOwner:       int64(42),
			},
			want: note.Note{
				ID:          "doc1",
				Subject:     "Kalkulus",
				Description: "Latihan 3",
				Deadline:    note.Deadline{Timestamp: 1792519140, Display: "20 October 2026 23:59", Date: "2026-10-20"},
				Status:      note.StatusNotified,
				OwnerID:     42,
			},
		},
		{
			name: "missing status defaults to pending",
			data: map[string]interface{}{
				fieldSubject:   "Fisika",
				fieldTimestamp: int64(100),
				fieldOwner:     int64(1),
			},
			want: note.Note{
				ID:       "doc1",
				Subject:  "Fisika",
				Deadline: note.Deadline{Timestamp: 100},
				Status:   note.StatusPending,
				OwnerID:  1,
			},
		},
		{
			name: "missing subject stays empty",
			data: map[string]interface{}{
				fieldTimestamp: int64(100),
			},
			want: note.Note{
				ID:       "doc1",
				Deadline: note.Deadline{Timestamp: 100},
				Status:   note.StatusPending,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := noteFromData("doc1", tt.data)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("noteFromData() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdatesFor(t *testing.T) {
	if got := updatesFor(note.Fields{}); len(got) != 0 {
		t.Errorf("updatesFor(empty) = %v, want none", got)
	}

	subject := "Kimia"
	deadline := note.NewDeadline(time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC))
	got := updatesFor(note.Fields{Subject: &subject, Deadline: &deadline})

	paths := make(map[string]interface{})
	for _, u := range got {
		paths[u.Path] = u.Value
	}
	want := map[string]interface{}{
		fieldSubject:   "Kimia",
		fieldTimestamp: deadline.Timestamp,
		fieldDisplay:   deadline.Display,
		fieldDate:      deadline.Date,
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("updatesFor() mismatch (-want +got):\n%s", diff)
	}
}
