package ports

import (
	"context"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentGateway defines the card operations the checkout and admin flows call
type PaymentGateway interface {
	// Authorize runs a sale and leaves the transaction open
	Authorize(ctx context.Context, order *domain.Order, amount decimal.Decimal) error

	// Capture runs a sale (or closes an earlier authorization) and closes the transaction
	Capture(ctx context.Context, order *domain.Order, amount decimal.Decimal) error

	// Void cancels the parent transaction and closes it
	Void(ctx context.Context, order *domain.Order) error

	// Refund returns an amount against the payment's refund transaction
	Refund(ctx context.Context, order *domain.Order, amount decimal.Decimal) error

	StatusLookup
}

// StatusLookup queries the gateway for the state of an order's transaction.
// A nil response with a nil error means the order has no transaction yet.
type StatusLookup interface {
	LookupStatus(ctx context.Context, order *domain.Order) (*domain.GatewayResponse, error)
}
