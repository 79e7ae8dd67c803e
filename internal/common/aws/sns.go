// internal/common/aws/sns.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the subset of the SNS client used for SMS job alerts.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewSNSClient builds an SNS client from the default credential chain.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}
