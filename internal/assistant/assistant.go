// Package assistant answers study questions about notes with a language
// model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/notetugas/tugas/internal/note"
)

// ErrNotConfigured is returned when no model backend is available.
var ErrNotConfigured = errors.New("AI assistant is not configured")

// ErrEmptyPrompt is returned for blank questions.
var ErrEmptyPrompt = errors.New("prompt is empty")

const systemPrompt = `You are a study assistant for a university student.
You help plan, break down and explain coursework assignments.
Answer in the language the student writes in. Be concise and practical.`

// Turn is one message of a conversation.
type Turn struct {
	Sender  note.Sender
	Content string
}

// Completer produces the next assistant turn for a conversation. The
// conversation always starts with a user turn and alternates.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// Assistant builds prompts from notes and chat history.
type Assistant struct {
	completer Completer
	logger    *log.Logger
}

// New creates an assistant. A nil completer makes every call return
// ErrNotConfigured.
func New(completer Completer, logger *log.Logger) *Assistant {
	if logger == nil {
		logger = log.New(os.Stderr, "[assistant] ", log.LstdFlags)
	}
	return &Assistant{completer: completer, logger: logger}
}

// Available reports whether a backend is configured.
func (a *Assistant) Available() bool {
	return a != nil && a.completer != nil
}

// Ask answers a single question. noteContext is optional task information
// prepended to the system prompt.
func (a *Assistant) Ask(ctx context.Context, prompt, noteContext string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	return a.complete(ctx, noteContext, []Turn{{Sender: note.SenderUser, Content: prompt}})
}

// Reply answers the last user message of a stored chat session.
func (a *Assistant) Reply(ctx context.Context, history []note.ChatMessage, noteContext string) (string, error) {
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, Turn{Sender: m.Sender, Content: m.Content})
	}
	return a.complete(ctx, noteContext, turns)
}

func (a *Assistant) complete(ctx context.Context, noteContext string, turns []Turn) (string, error) {
	if !a.Available() {
		return "", ErrNotConfigured
	}

	turns = normalize(turns)
	if len(turns) == 0 || turns[len(turns)-1].Sender != note.SenderUser {
		return "", ErrEmptyPrompt
	}

	system := systemPrompt
	if ctxText := strings.TrimSpace(noteContext); ctxText != "" {
		system += "\n\nThe student is asking about this task:\n" + ctxText
	}

	answer, err := a.completer.Complete(ctx, system, turns)
	if err != nil {
		return "", fmt.Errorf("failed to get AI response: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("AI returned an empty response")
	}

	a.logger.Printf("Answered %d-turn conversation", len(turns))
	return answer, nil
}

// normalize drops blank and leading AI turns and merges consecutive turns
// of the same sender.
func normalize(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" || !t.Sender.Valid() {
			continue
		}
		if len(out) == 0 && t.Sender != note.SenderUser {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Sender == t.Sender {
			out[len(out)-1].Content += "\n\n" + content
			continue
		}
		out = append(out, Turn{Sender: t.Sender, Content: content})
	}
	return out
}

// NoteContext formats a note as task context for the model.
func NoteContext(n note.Note) string {
	return fmt.Sprintf("Mata Kuliah: %s\nDeskripsi: %s\nDeadline: %s", n.Subject, n.Description, n.Display)
}

// SessionTitle derives a chat session title from its first message.
func SessionTitle(firstMessage string) string {
	title := strings.Join(strings.Fields(firstMessage), " ")
	if title == "" {
		return "New chat"
	}
	const max = 40
	if r := []rune(title); len(r) > max {
		return string(r[:max]) + "..."
	}
	return title
}
