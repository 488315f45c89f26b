package bot

import (
	"context"
	"fmt"
	"log"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Runner connects a Handler to the Telegram Bot API.
type Runner struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	logger  *log.Logger
}

// NewRunner authenticates with token.
func NewRunner(token string, h *Handler, logger *log.Logger) (*Runner, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token has not been set")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[bot] ", log.LstdFlags)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	logger.Printf("Authorized as @%s", api.Self.UserName)
	return &Runner{api: api, handler: h, logger: logger}, nil
}

// Run long-polls for updates until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := r.api.GetUpdatesChan(u)
	defer r.api.StopReceivingUpdates()

	r.logger.Println("Telegram bot is running")
	for {
		select {
		case <-ctx.Done():
			r.logger.Println("Telegram bot stopped")
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			r.handle(ctx, update.Message)
		}
	}
}

func (r *Runner) handle(ctx context.Context, m *tgbotapi.Message) {
	in := Incoming{
		FromID:    m.From.ID,
		FirstName: m.From.FirstName,
		Text:      m.Text,
	}
	if m.IsCommand() {
		in.Command = m.Command()
	}

	reply := r.handler.Handle(ctx, in)

	msg := tgbotapi.NewMessage(m.Chat.ID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := r.api.Send(msg); err != nil {
		r.logger.Printf("Failed to send reply to chat %d: %v", m.Chat.ID, err)
	}
}
