package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

const brevoBaseURL = "https://api.brevo.com"

type brevoAddress struct {
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	TextContent string         `json:"textContent"`
}

type brevoResult struct {
	MessageID string `json:"messageId"`
}

// BrevoNotifier sends transactional email through the Brevo HTTP API.
type BrevoNotifier struct {
	http   *resty.Client
	sender string
	log    *zap.Logger
}

func NewBrevoNotifier(apiKey, sender string, log *zap.Logger) *BrevoNotifier {
	return NewBrevoNotifierWithURL(brevoBaseURL, apiKey, sender, log)
}

// NewBrevoNotifierWithURL points the client at a different API host.
func NewBrevoNotifierWithURL(baseURL, apiKey, sender string, log *zap.Logger) *BrevoNotifier {
	cl := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("api-key", apiKey).
		SetHeader("Accept", "application/json")
	return &BrevoNotifier{http: cl, sender: sender, log: log}
}

func (n *BrevoNotifier) Send(ctx context.Context, recipients []string, subject, body string) (string, error) {
	if len(recipients) == 0 {
		return "", fmt.Errorf("brevo send: no recipients")
	}

	msg := brevoEmail{
		Sender:      brevoAddress{Email: n.sender},
		Subject:     subject,
		TextContent: body,
	}
	for _, r := range recipients {
		msg.To = append(msg.To, brevoAddress{Email: r})
	}

	var out brevoResult
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&out).
		Post("/v3/smtp/email")
	if err != nil {
		n.log.Error("brevo send failed", zap.Strings("to", recipients), zap.Error(err))
		return "", errs.Upstream("brevo send", subject, err)
	}
	if resp.IsError() {
		err := fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
		n.log.Error("brevo send rejected", zap.Strings("to", recipients), zap.Error(err))
		return "", errs.Upstream("brevo send", subject, err)
	}

	n.log.Info("email sent", zap.String("message_id", out.MessageID), zap.Strings("to", recipients))
	return out.MessageID, nil
}

var _ core.Notifier = (*BrevoNotifier)(nil)
