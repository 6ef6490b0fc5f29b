package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// GCPStore implements ports.SecretStore on Google Cloud Secret Manager.
// The latest version of each secret holds a JSON object.
type GCPStore struct {
	client    secretAccessor
	closer    func() error
	projectID string
	logger    *zap.Logger
}

var _ ports.SecretStore = (*GCPStore)(nil)

// NewGCPStore creates a client using application default credentials
func NewGCPStore(ctx context.Context, projectID string, logger *zap.Logger) (*GCPStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager secret store initialized", zap.String("project_id", projectID))
	return &GCPStore{client: client, closer: client.Close, projectID: projectID, logger: logger}, nil
}

// Close releases the client
func (s *GCPStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// GetSecret reads the latest version of the secret named path. Secret ids
// cannot contain slashes, so "ecorepay/mc" reads the secret "ecorepay-mc".
func (s *GCPStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	secretID := strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, secretID)

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFound(path)
		}
		s.logger.Error("Failed to access GCP secret",
			zap.String("secret_name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to access GCP secret %s: %w", path, err)
	}
	return parsePayload(path, result.GetPayload().GetData())
}
