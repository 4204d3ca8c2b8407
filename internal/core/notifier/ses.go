// Package notifier sends the account emails (signup confirmation, password reset)
// through SES, Brevo, or the process log.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// SESAPI is the part of *sesv2.Client the notifier calls.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESNotifier struct {
	client SESAPI
	sender string
	log    *zap.Logger
}

func NewSESNotifier(awsCfg aws.Config, sender string, log *zap.Logger) *SESNotifier {
	return NewSESNotifierWithAPI(sesv2.NewFromConfig(awsCfg), sender, log)
}

func NewSESNotifierWithAPI(api SESAPI, sender string, log *zap.Logger) *SESNotifier {
	return &SESNotifier{client: api, sender: sender, log: log}
}

func (n *SESNotifier) Send(ctx context.Context, recipients []string, subject, body string) (string, error) {
	if len(recipients) == 0 {
		return "", fmt.Errorf("ses send: no recipients")
	}

	ctxSend, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := n.client.SendEmail(ctxSend, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.sender),
		Destination:      &sestypes.Destination{ToAddresses: recipients},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		n.log.Error("ses send failed", zap.Strings("to", recipients), zap.String("subject", subject), zap.Error(err))
		return "", errs.Upstream("ses send", subject, err)
	}

	id := aws.ToString(out.MessageId)
	n.log.Info("email sent", zap.String("message_id", id), zap.Strings("to", recipients))
	return id, nil
}

var _ core.Notifier = (*SESNotifier)(nil)
