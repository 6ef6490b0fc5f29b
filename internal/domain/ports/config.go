package ports

import "context"

// Credentials is an EcorePay account id and its authorization code
type Credentials struct {
	AccountID   string
	AccountAuth string
}

// ConfigProvider exposes the payment method configuration
type ConfigProvider interface {
	IsActive() bool
	IsAsync() bool
	GatewayURL() string
	RefundEnabled() bool
	NotificationsEnabled() bool

	// Credentials returns the account pair for a card type, falling back to the default pair
	Credentials(ctx context.Context, cardType string) (Credentials, error)
}
