package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"go.uber.org/zap"
)

// LocalStore reads JSON secrets from files under a base directory.
// Development only.
type LocalStore struct {
	basePath string
	logger   *zap.Logger
}

var _ ports.SecretStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at basePath
func NewLocalStore(basePath string, logger *zap.Logger) *LocalStore {
	return &LocalStore{basePath: basePath, logger: logger}
}

// GetSecret reads basePath/path.json, falling back to basePath/path
func (s *LocalStore) GetSecret(_ context.Context, path string) (map[string]string, error) {
	// rooting the path keeps ".." from escaping basePath
	base := filepath.Join(s.basePath, filepath.Clean("/"+path))

	for _, candidate := range []string{base + ".json", base} {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read secret: %w", err)
		}
		s.logger.Debug("Secret read from filesystem", zap.String("path", path))
		return parsePayload(path, data)
	}
	return nil, notFound(path)
}
