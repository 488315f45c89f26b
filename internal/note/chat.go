package note

import "fmt"

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// ChatSession groups the messages of one assistant conversation.
// Chat data lives only in the local cache.
type ChatSession struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
}

// ChatMessage is a single turn in a ChatSession.
type ChatMessage struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Validate checks a message before it is stored.
func (m *ChatMessage) Validate() error {
	if m.SessionID <= 0 {
		return fmt.Errorf("session_id is required")
	}
	if !m.Sender.Valid() {
		return fmt.Errorf("invalid sender %q", m.Sender)
	}
	return nil
}
