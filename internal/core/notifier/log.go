package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
)

// Message is an email captured by LogNotifier.
type Message struct {
	ID         string
	Recipients []string
	Subject    string
	Body       string
}

// LogNotifier writes emails to the log instead of delivering them.
// Used for local runs without an email service configured. Bodies are only logged at debug level.
type LogNotifier struct {
	log *zap.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, recipients []string, subject, body string) (string, error) {
	id := uuid.NewString()
	n.log.Info("email (not delivered)",
		zap.String("message_id", id),
		zap.Strings("to", recipients),
		zap.String("subject", subject),
	)
	// bodies carry live confirmation and reset links
	n.log.Debug("email body", zap.String("message_id", id), zap.String("body", body))

	n.mu.Lock()
	n.sent = append(n.sent, Message{ID: id, Recipients: recipients, Subject: subject, Body: body})
	n.mu.Unlock()
	return id, nil
}

// Sent returns a copy of every message handed to Send.
func (n *LogNotifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}

var _ core.Notifier = (*LogNotifier)(nil)
