package main

import (
	"context"
	"io"

	"github.com/dema501/magento-payment-module-EcorePay/internal/adapters/secrets"
	"github.com/dema501/magento-payment-module-EcorePay/internal/config"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"go.uber.org/zap"
)

// initSecretStore picks the credential backend from SECRETS_BACKEND.
//   - env: ECOREPAY_ACID/ECOREPAY_AUTHCODE (and the _MC pair); returns a nil source
//   - local: JSON files under SECRETS_LOCAL_PATH, development only
//   - vault: HashiCorp Vault KV, token or AppRole auth
//   - aws: AWS Secrets Manager
//   - gcp: Google Cloud Secret Manager
//
// The returned closer is nil when the backend holds no connection.
func initSecretStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (config.CredentialSource, io.Closer) {
	sc := cfg.Secrets

	var (
		store  ports.SecretStore
		closer io.Closer
	)

	switch sc.Backend {
	case "env":
		logger.Info("Reading gateway credentials from the environment")
		return nil, nil

	case "local":
		logger.Warn("Using LOCAL secret store - NOT for production use!",
			zap.String("path", sc.LocalPath),
		)
		store = secrets.NewLocalStore(sc.LocalPath, logger)

	case "vault":
		vcfg := secrets.DefaultVaultConfig(sc.VaultAddress)
		vcfg.AuthMethod = sc.VaultAuth
		vcfg.Token = sc.VaultToken
		vcfg.RoleID = sc.VaultRoleID
		vcfg.SecretID = sc.VaultSecretID
		vcfg.MountPath = sc.VaultMount
		vcfg.KVVersion = sc.VaultKV

		vs, err := secrets.NewVaultStore(ctx, vcfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Vault", zap.Error(err), zap.String("address", sc.VaultAddress))
		}
		store = vs

	case "aws":
		as, err := secrets.NewAWSStore(ctx, &secrets.AWSSecretsManagerConfig{
			Region:   sc.AWSRegion,
			Profile:  sc.AWSProfile,
			Endpoint: sc.AWSEndpoint,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize AWS Secrets Manager", zap.Error(err), zap.String("region", sc.AWSRegion))
		}
		store = as

	case "gcp":
		gs, err := secrets.NewGCPStore(ctx, sc.GCPProjectID, logger)
		if err != nil {
			logger.Fatal("Failed to initialize GCP Secret Manager", zap.Error(err), zap.String("project_id", sc.GCPProjectID))
		}
		store, closer = gs, gs

	default:
		logger.Fatal("Unknown secrets backend", zap.String("backend", sc.Backend))
	}

	logger.Info("Secret store initialized",
		zap.String("backend", sc.Backend),
		zap.String("prefix", sc.Prefix),
		zap.Duration("cache_ttl", sc.CacheTTL),
	)
	return secrets.NewCredentialResolver(secrets.NewCachedStore(store, sc.CacheTTL), sc.Prefix), closer
}
