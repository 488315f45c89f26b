// Package bot lets the owner add notes by chatting with a Telegram bot.
//
// Handler holds the conversation logic and knows nothing about Telegram;
// Runner feeds it updates from the Bot API by long polling.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/notetugas/tugas/internal/note"
	"github.com/notetugas/tugas/internal/parser"
	"github.com/notetugas/tugas/internal/sync"
)

// Creator stores a new note.
type Creator interface {
	CreateNote(ctx context.Context, draft note.Draft) (string, error)
}

// Incoming is a message received by the bot.
type Incoming struct {
	FromID    int64
	FirstName string
	Text      string
	// Command is the bot command without the slash, e.g. "start".
	Command string
}

// Reply is the bot's answer. Markdown replies use Telegram's legacy
// Markdown mode.
type Reply struct {
	Text     string
	Markdown bool
}

// Handler turns owner messages into notes.
type Handler struct {
	parser  *parser.Parser
	creator Creator
	ownerID int64
	logger  *log.Logger
}

// NewHandler creates a handler accepting messages from ownerID only.
func NewHandler(p *parser.Parser, c Creator, ownerID int64, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[bot] ", log.LstdFlags)
	}
	return &Handler{parser: p, creator: c, ownerID: ownerID, logger: logger}
}

// Handle answers one message.
func (h *Handler) Handle(ctx context.Context, in Incoming) Reply {
	switch in.Command {
	case "":
	case "start", "help":
		return h.greeting(in.FirstName)
	default:
		return Reply{Text: "Unknown command. Send /start to see the note format."}
	}

	if h.ownerID == 0 {
		return Reply{Text: "⚠️ Error: Telegram User ID is not set in the app."}
	}
	if in.FromID != h.ownerID {
		h.logger.Printf("Refused message from unregistered user %d", in.FromID)
		return Reply{Text: "⚠️ Sorry, you are not registered to use this bot."}
	}

	draft, err := h.parser.Parse(in.Text)
	if err != nil {
		return Reply{Text: "⚠️ Oops! " + err.Error()}
	}

	id, err := h.creator.CreateNote(ctx, *draft)
	if err != nil && !errors.Is(err, sync.ErrStaleCache) {
		h.logger.Printf("Failed to save note: %v", err)
		return Reply{Text: "Sorry, an error occurred while saving data to the database."}
	}
	if err != nil {
		h.logger.Printf("Note %s saved but cache refresh failed: %v", id, err)
	}

	h.logger.Printf("Saved note %s from chat (%s)", id, draft.Subject)
	return Reply{Text: Summary(*draft), Markdown: true}
}

func (h *Handler) greeting(name string) Reply {
	if name == "" {
		name = "there"
	}
	return Reply{
		Text: fmt.Sprintf("Halo, %s!\n\n"+
			"Saya siap mencatat tugasmu. Kirim dengan format:\n\n"+
			"`matkul [nama matkul], tugas [deskripsi tugas], deadline [tanggal]`", escape(name)),
		Markdown: true,
	}
}

// Summary renders a saved draft for the chat reply.
func Summary(d note.Draft) string {
	return fmt.Sprintf("✅ *Tugas Berhasil Disimpan!*\n\n"+
		"📖 *Mata Kuliah:* %s\n"+
		"📝 *Tugas:* %s\n"+
		"🗓️ *Deadline:* %s",
		escape(d.Subject), escape(d.Description), escape(d.Display))
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escape neutralizes legacy Markdown control characters in user text.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}
