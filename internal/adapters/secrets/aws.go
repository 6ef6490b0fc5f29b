package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	secretsmanagertypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"go.uber.org/zap"
)

// AWSSecretsManagerConfig contains configuration for AWS Secrets Manager
type AWSSecretsManagerConfig struct {
	Region string
	// Optional AWS profile name for local development
	Profile string
	// Optional custom endpoint (LocalStack)
	Endpoint string
}

type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore implements ports.SecretStore on AWS Secrets Manager. Secrets hold
// a JSON object in SecretString.
type AWSStore struct {
	api    secretsManagerAPI
	logger *zap.Logger
}

var _ ports.SecretStore = (*AWSStore)(nil)

// NewAWSStore loads the default credential chain and creates the client
func NewAWSStore(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (*AWSStore, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager secret store initialized",
		zap.String("region", cfg.Region),
	)
	return &AWSStore{api: secretsmanager.NewFromConfig(awsConfig, clientOptions...), logger: logger}, nil
}

// GetSecret reads the secret named path
func (s *AWSStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	result, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		var nf *secretsmanagertypes.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil, notFound(path)
		}
		s.logger.Error("Failed to retrieve secret",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", path)
	}
	return parsePayload(path, []byte(aws.ToString(result.SecretString)))
}
