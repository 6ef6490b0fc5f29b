package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
)

// Keys expected in a credential secret
const (
	KeyAccountID   = "account_id"
	KeyAccountAuth = "account_auth"
)

// CredentialResolver picks gateway credentials for a card brand.
// It reads prefix/<brand> first and falls back to prefix/default.
type CredentialResolver struct {
	store  ports.SecretStore
	prefix string
}

// NewCredentialResolver creates a resolver reading below prefix
func NewCredentialResolver(store ports.SecretStore, prefix string) *CredentialResolver {
	return &CredentialResolver{store: store, prefix: strings.TrimSuffix(prefix, "/")}
}

// Resolve returns the credentials for cardType
func (r *CredentialResolver) Resolve(ctx context.Context, cardType string) (ports.Credentials, error) {
	if brand := strings.ToLower(strings.TrimSpace(cardType)); brand != "" {
		creds, err := r.read(ctx, r.prefix+"/"+brand)
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return ports.Credentials{}, err
		}
	}
	return r.read(ctx, r.prefix+"/default")
}

func (r *CredentialResolver) read(ctx context.Context, path string) (ports.Credentials, error) {
	secret, err := r.store.GetSecret(ctx, path)
	if err != nil {
		return ports.Credentials{}, err
	}
	creds := ports.Credentials{
		AccountID:   secret[KeyAccountID],
		AccountAuth: secret[KeyAccountAuth],
	}
	if creds.AccountID == "" || creds.AccountAuth == "" {
		return ports.Credentials{}, domain.WrapError(domain.ErrorCodeConfigError,
			fmt.Sprintf("secret %s must hold %s and %s", path, KeyAccountID, KeyAccountAuth), nil)
	}
	return creds, nil
}
