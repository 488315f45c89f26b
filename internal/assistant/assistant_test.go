package assistant

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/notetugas/tugas/internal/note"
)

type fakeCompleter struct {
	system string
	turns  []Turn
	answer string
	err    error
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	f.system = system
	f.turns = turns
	return f.answer, f.err
}

func newTestAssistant(c Completer) *Assistant {
	return New(c, log.New(io.Discard, "", 0))
}

func TestAsk(t *testing.T) {
	fake := &fakeCompleter{answer: "  Start with chapter 2.  "}
	a := newTestAssistant(fake)

	n := note.Note{
		Subject:     "Kalkulus",
		Description: "Latihan 3",
		Deadline:    note.NewDeadline(time.Date(2026, 10, 20, 23, 59, 0, 0, time.UTC)),
	}

	got, err := a.Ask(context.Background(), "how do I start?", NoteContext(n))
	if err != nil {
		t.Fatalf("Ask() failed: %v", err)
	}
	if got != "Start with chapter 2." {
		t.Errorf("Ask() = %q", got)
	}
	if !strings.Contains(fake.system, "Mata Kuliah: Kalkulus") || !strings.Contains(fake.system, "Deadline: 20 October 2026 23:59") {
		t.Errorf("system prompt lacks task context:\n%s", fake.system)
	}
	want := []Turn{{Sender: note.SenderUser, Content: "how do I start?"}}
	if diff := cmp.Diff(want, fake.turns); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func TestAsk_Errors(t *testing.T) {
	if _, err := newTestAssistant(&fakeCompleter{answer: "x"}).Ask(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("Ask(blank) error = %v, want ErrEmptyPrompt", err)
	}
	if _, err := newTestAssistant(nil).Ask(context.Background(), "hi", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Ask() without backend error = %v, want ErrNotConfigured", err)
	}

	boom := errors.New("rate limited")
	if _, err := newTestAssistant(&fakeCompleter{err: boom}).Ask(context.Background(), "hi", ""); !errors.Is(err, boom) {
		t.Errorf("Ask() error = %v, want wrapped backend error", err)
	}
	if _, err := newTestAssistant(&fakeCompleter{answer: " "}).Ask(context.Background(), "hi", ""); err == nil {
		t.Error("Ask() accepted an empty answer")
	}
}

func TestReply_NormalizesHistory(t *testing.T) {
	fake := &fakeCompleter{answer: "ok"}
	a := newTestAssistant(fake)

	history := []note.ChatMessage{
		{Sender: note.SenderAI, Content: "welcome"},
		{Sender: note.SenderUser, Content: "first"},
		{Sender: note.SenderUser, Content: "second"},
		{Sender: note.SenderAI, Content: "answer"},
		{Sender: note.SenderUser, Content: "  "},
		{Sender: note.SenderUser, Content: "third"},
	}

	if _, err := a.Reply(context.Background(), history, ""); err != nil {
		t.Fatalf("Reply() failed: %v", err)
	}

	want := []Turn{
		{Sender: note.SenderUser, Content: "first\n\nsecond"},
		{Sender: note.SenderAI, Content: "answer"},
		{Sender: note.SenderUser, Content: "third"},
	}
	if diff := cmp.Diff(want, fake.turns); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func TestReply_LastTurnMustBeUser(t *testing.T) {
	a := newTestAssistant(&fakeCompleter{answer: "ok"})
	history := []note.ChatMessage{
		{Sender: note.SenderUser, Content: "q"},
		{Sender: note.SenderAI, Content: "a"},
	}
	if _, err := a.Reply(context.Background(), history, ""); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("Reply() error = %v, want ErrEmptyPrompt", err)
	}
}

func TestSessionTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "New chat"},
		{"  how   do limits work? ", "how do limits work?"},
		{strings.Repeat("a", 50), strings.Repeat("a", 40) + "..."},
	}
	for _, tt := range tests {
		if got := SessionTitle(tt.in); got != tt.want {
			t.Errorf("SessionTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewAnthropic_RequiresKey(t *testing.T) {
	if _, err := NewAnthropic("", "model"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NewAnthropic() error = %v, want ErrNotConfigured", err)
	}
	c, err := NewAnthropic("sk-test", "claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("NewAnthropic() failed: %v", err)
	}
	if c.model != "claude-sonnet-4-5" || c.maxTokens != DefaultMaxTokens {
		t.Errorf("completer = %+v", c)
	}
}
