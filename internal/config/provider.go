package config

import (
	"context"
	"strings"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
)

// CredentialSource resolves credentials from a secret manager
type CredentialSource interface {
	Resolve(ctx context.Context, cardType string) (ports.Credentials, error)
}

// Provider implements ports.ConfigProvider on a loaded Config
type Provider struct {
	gateway       GatewayConfig
	notifications bool
	source        CredentialSource
}

var _ ports.ConfigProvider = (*Provider)(nil)

// NewProvider serves cfg. A nil source reads credentials from the gateway env values.
func NewProvider(cfg *Config, source CredentialSource) *Provider {
	return &Provider{
		gateway:       cfg.Gateway,
		notifications: cfg.Notifications.Enabled,
		source:        source,
	}
}

func (p *Provider) IsActive() bool             { return p.gateway.Active }
func (p *Provider) IsAsync() bool              { return p.gateway.Async }
func (p *Provider) GatewayURL() string         { return p.gateway.URL }
func (p *Provider) RefundEnabled() bool        { return p.gateway.RefundEnabled }
func (p *Provider) NotificationsEnabled() bool { return p.notifications }

// Credentials returns the Mastercard pair for MC cards when one is configured,
// otherwise the default pair
func (p *Provider) Credentials(ctx context.Context, cardType string) (ports.Credentials, error) {
	if p.source != nil {
		return p.source.Resolve(ctx, cardType)
	}

	if strings.EqualFold(strings.TrimSpace(cardType), "MC") && p.gateway.MCAccountID != "" && p.gateway.MCAccountAuth != "" {
		return ports.Credentials{AccountID: p.gateway.MCAccountID, AccountAuth: p.gateway.MCAccountAuth}, nil
	}
	if p.gateway.AccountID == "" || p.gateway.AccountAuth == "" {
		return ports.Credentials{}, domain.WrapError(domain.ErrorCodeConfigError, "EcorePay account credentials are not configured", nil)
	}
	return ports.Credentials{AccountID: p.gateway.AccountID, AccountAuth: p.gateway.AccountAuth}, nil
}
