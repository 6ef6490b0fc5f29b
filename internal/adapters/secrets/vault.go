package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for the HashiCorp Vault store
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string

	// Vault Enterprise namespace
	Namespace string

	// KV secrets engine mount path (default: "secret")
	MountPath string
	// KV version: "v1" or "v2" (default: "v2")
	KVVersion string

	TLSSkipVerify bool
}

// DefaultVaultConfig returns default configuration for Vault
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:    address,
		AuthMethod: "token",
		MountPath:  "secret",
		KVVersion:  "v2",
	}
}

// VaultStore implements ports.SecretStore on a KV engine
type VaultStore struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
}

var _ ports.SecretStore = (*VaultStore)(nil)

// NewVaultStore creates and authenticates a Vault client
func NewVaultStore(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (*VaultStore, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault secret store initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return &VaultStore{client: client, config: cfg, logger: logger}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "", "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

// GetSecret reads all string fields stored at path
func (s *VaultStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	path = strings.TrimPrefix(path, "/")
	fullPath := s.config.MountPath + "/" + path
	if s.config.KVVersion != "v1" {
		fullPath = s.config.MountPath + "/data/" + path
	}

	secret, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		s.logger.Error("Failed to read secret from Vault",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, notFound(path)
	}

	data := secret.Data
	if s.config.KVVersion != "v1" {
		inner, ok := data["data"].(map[string]interface{})
		if !ok {
			// KV v2 returns a null data block for deleted versions
			return nil, notFound(path)
		}
		data = inner
	}

	s.logger.Debug("Secret read from Vault", zap.String("path", path))
	return stringify(data), nil
}
