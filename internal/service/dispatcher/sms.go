package dispatcher

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/jwalitptl/notify-api/internal/model"
)

// snsSender delivers SMS through AWS SNS using the provider's stored
// credentials.
type snsSender struct{}

func NewSNSSender() SMSSender {
	return &snsSender{}
}

func (s *snsSender) Send(ctx context.Context, cfg *model.SMSProviderConfig, text, phoneNumber string) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := sns.NewFromConfig(awsCfg)
	if _, err := client.Publish(ctx, &sns.PublishInput{
		Message:     aws.String(text),
		PhoneNumber: aws.String(phoneNumber),
	}); err != nil {
		return fmt.Errorf("SNS publish failed: %w", err)
	}
	return nil
}
