package ports

import "context"

// SecretStore reads a key/value secret by path from a secret manager
type SecretStore interface {
	GetSecret(ctx context.Context, path string) (map[string]string, error)
}
