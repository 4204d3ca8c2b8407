package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

const (
	SystemInstruction = `You are a general-purpose AI assistant for demonstration purposes.
- Respond helpfully and accurately to user input.
- Explain your reasoning clearly when asked.
- Keep responses concise unless detail is requested.
- Ask clarifying questions if a request is unclear.
- Avoid sensitive, private, or inappropriate content.`

	MaxMessageLength = 2000

	testPrefix      = "test:"
	queryTimeLayout = "2006-01-02T15:04:05Z"
)

// DefaultGeneration are the sampling parameters used for every turn.
var DefaultGeneration = core.GenerationConfig{
	Temperature:     0.2,
	TopP:            0.8,
	TopK:            20,
	MaxOutputTokens: 400,
}

// ChatService runs one conversational turn against the model.
type ChatService struct {
	history *HistoryStore
	model   core.LLMProvider
	gen     core.GenerationConfig
	now     Clock
	log     *zap.Logger
}

func NewChatService(history *HistoryStore, model core.LLMProvider, log *zap.Logger) *ChatService {
	return &ChatService{history: history, model: model, gen: DefaultGeneration, now: time.Now, log: log}
}

// SetClock replaces the time source used for query timestamps.
func (s *ChatService) SetClock(c Clock) { s.now = c }

// Send returns the model's reply to message.
//
// A message starting with "test:" is answered with the stored history as context,
// but neither the question nor the reply is saved. Any other message is stamped
// with the current UTC time, and the question and reply are appended to the history
// in a single write.
func (s *ChatService) Send(ctx context.Context, username, message string) (string, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return "", errs.Validation("Empty message")
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return "", errs.Validation(fmt.Sprintf("Message too long. Limit is %d characters.", MaxMessageLength))
	}

	ephemeral := strings.HasPrefix(msg, testPrefix)
	if ephemeral {
		msg = strings.TrimSpace(strings.TrimPrefix(msg, testPrefix))
		s.log.Info("test message; history left unchanged", zap.String("username", username))
	}

	history, err := s.history.Read(ctx, username)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	turn := models.Turn{
		Role:      models.RoleUser,
		Text:      fmt.Sprintf("[Query-%s] %s", now.Format(queryTimeLayout), msg),
		Timestamp: now,
	}

	reply, err := s.model.Generate(ctx, SystemInstruction, history, turn, s.gen)
	if err != nil {
		return "", err
	}
	if ephemeral {
		return reply, nil
	}

	answer := models.Turn{Role: models.RoleAssistant, Text: reply, Timestamp: s.now().UTC()}
	if err := s.history.Save(ctx, username, append(history, turn, answer)); err != nil {
		return "", err
	}
	s.log.Info("chat turn stored", zap.String("username", username), zap.Int("turns", len(history)+2))
	return reply, nil
}
