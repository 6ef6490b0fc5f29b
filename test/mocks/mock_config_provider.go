package mocks

import (
	"context"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
)

// MockConfigProvider is a settable ConfigProvider
type MockConfigProvider struct {
	CredentialsErr error
	Default        ports.Credentials
	BrandOverrides map[string]ports.Credentials
	URL            string
	Active         bool
	Async          bool
	Refund         bool
	Notifications  bool
}

// NewMockConfigProvider returns an active, async config with refunds and notifications on
func NewMockConfigProvider(url string) *MockConfigProvider {
	return &MockConfigProvider{
		Default:        ports.Credentials{AccountID: "ACC-1", AccountAuth: "secret-auth"},
		BrandOverrides: map[string]ports.Credentials{},
		URL:            url,
		Active:         true,
		Async:          true,
		Refund:         true,
		Notifications:  true,
	}
}

func (m *MockConfigProvider) IsActive() bool             { return m.Active }
func (m *MockConfigProvider) IsAsync() bool              { return m.Async }
func (m *MockConfigProvider) GatewayURL() string         { return m.URL }
func (m *MockConfigProvider) RefundEnabled() bool        { return m.Refund }
func (m *MockConfigProvider) NotificationsEnabled() bool { return m.Notifications }

// Credentials returns the brand override for cardType, else the default pair
func (m *MockConfigProvider) Credentials(_ context.Context, cardType string) (ports.Credentials, error) {
	if m.CredentialsErr != nil {
		return ports.Credentials{}, m.CredentialsErr
	}
	if c, ok := m.BrandOverrides[cardType]; ok {
		return c, nil
	}
	return m.Default, nil
}
