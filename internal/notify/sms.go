package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	appaws "signalx/internal/common/aws"
	"signalx/internal/common/metrics"
)

// SMSSender publishes transactional SMS through SNS.
type SMSSender struct {
	api      appaws.SNSAPI
	senderID string
}

func NewSMSSender(api appaws.SNSAPI, senderID string) *SMSSender {
	return &SMSSender{api: api, senderID: senderID}
}

func (s *SMSSender) Send(ctx context.Context, phone, text string) (string, error) {
	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType: aws.String("String"), StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.api.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(text),
		MessageAttributes: attrs,
	})
	metrics.SMSSent.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
