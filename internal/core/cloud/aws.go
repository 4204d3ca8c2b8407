package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/config"
	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/core/llm"
	"github.com/markdave123-py/genai-chat/internal/core/notifier"
	objectclient "github.com/markdave123-py/genai-chat/internal/core/object-client"
	"github.com/markdave123-py/genai-chat/internal/core/secrets"
)

// LoadAWSConfig loads the SDK config for the configured region, profile and optional static keys.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AwsRegion),
	}
	if cfg.AwsProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AwsProfile))
	}
	if cfg.AwsAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// NewAWS wires S3, SSM Parameter Store, SES and Bedrock.
func NewAWS(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Provider, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := secrets.NewCachedStore(secrets.NewParameterStore(awsCfg, log.Named("ssm")))
	settings, err := LoadSettings(ctx, store, AWSSecretNames, cfg)
	if err != nil {
		return nil, err
	}

	objects, err := objectclient.NewS3Client(awsCfg, settings.Bucket, log.Named("s3"))
	if err != nil {
		return nil, err
	}

	var mail core.Notifier
	if settings.Sender != "" {
		mail = notifier.NewSESNotifier(awsCfg, settings.Sender, log.Named("ses"))
	} else {
		log.Warn("no sender configured; emails will only be logged")
		mail = notifier.NewLogNotifier(log.Named("mail"))
	}

	log.Info("aws backend ready", zap.String("region", cfg.AwsRegion), zap.String("bucket", settings.Bucket))
	return &Provider{
		Backend:  config.BackendAWS,
		Secrets:  store,
		Objects:  objects,
		Notifier: mail,
		Model:    llm.NewBedrockLLM(awsCfg, cfg.ModelID, log.Named("bedrock")),
		Settings: settings,
	}, nil
}
