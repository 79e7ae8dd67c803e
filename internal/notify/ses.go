package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	appaws "signalx/internal/common/aws"
)

// SESMailer sends through Amazon SES.
type SESMailer struct {
	api  appaws.SESAPI
	from string
}

func NewSESMailer(api appaws.SESAPI, from string) *SESMailer {
	return &SESMailer{api: api, from: from}
}

func (m *SESMailer) Provider() string { return "ses" }

func (m *SESMailer) Send(ctx context.Context, msg Message) (string, error) {
	if !isValidEmail(msg.To) {
		return "", fmt.Errorf("invalid recipient address: %q", msg.To)
	}

	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := m.api.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// Verify checks that the account can still send.
func (m *SESMailer) Verify(ctx context.Context) error {
	quota, err := m.api.GetSendQuota(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return fmt.Errorf("ses quota: %w", err)
	}
	if quota.Max24HourSend > 0 && quota.SentLast24Hours >= quota.Max24HourSend {
		return fmt.Errorf("ses daily quota exhausted (%.0f/%.0f)", quota.SentLast24Hours, quota.Max24HourSend)
	}
	return nil
}
