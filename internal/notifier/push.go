package notifier

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// multicastSender is the part of the FCM client PushSink uses.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushSink sends notifications to registered devices through Firebase
// Cloud Messaging.
type PushSink struct {
	client multicastSender
	tokens []string
	logger *log.Logger
}

// NewPushSink initializes a Firebase app and its messaging client.
func NewPushSink(ctx context.Context, credentialsFile string, tokens []string, logger *log.Logger) (*PushSink, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no device tokens configured")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[fcm] ", log.LstdFlags)
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	logger.Printf("FCM client initialized (%d devices)", len(tokens))
	return &PushSink{client: client, tokens: tokens, logger: logger}, nil
}

// Notify implements Sink. It succeeds if at least one device accepted the
// message.
func (s *PushSink) Notify(ctx context.Context, n Notification) error {
	message := &messaging.MulticastMessage{
		Tokens: s.tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: map[string]string{
			"type":    "deadline_reminder",
			"note_id": n.NoteID,
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: n.Title,
				Body:  n.Body,
			},
		},
	}

	resp, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	s.logger.Printf("Multicast sent: %d success, %d failures", resp.SuccessCount, resp.FailureCount)
	for i, r := range resp.Responses {
		if !r.Success && i < len(s.tokens) {
			s.logger.Printf("Failed to send to device %d: %v", i, r.Error)
		}
	}

	if resp.SuccessCount == 0 {
		return fmt.Errorf("no device accepted the notification")
	}
	return nil
}
