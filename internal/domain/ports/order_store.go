package ports

import (
	"context"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
)

// PendingPaymentFilter selects payments the reconciliation sweep should visit
type PendingPaymentFilter struct {
	Method               string
	ReconciliationStatus domain.ReconciliationStatus
	States               []domain.OrderState
	Limit                int
	// AfterID selects only orders with a greater id
	AfterID int64
}

// OrderPaymentStore reads orders and persists payment bookkeeping and order state.
// It never stores card data.
type OrderPaymentStore interface {
	// FindPendingReconciliation returns order ids whose payment matches the filter
	FindPendingReconciliation(ctx context.Context, filter PendingPaymentFilter) ([]int64, error)

	// GetOrder loads an order with its billing address and payment
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)

	// GetOrderByIncrementID loads an order by its customer facing number
	GetOrderByIncrementID(ctx context.Context, incrementID string) (*domain.Order, error)

	// SavePayment persists transaction id, closed flag, state and additional information
	SavePayment(ctx context.Context, payment *domain.Payment) error

	// SaveOrder persists state, status, hold-before values and appends new history entries
	SaveOrder(ctx context.Context, order *domain.Order, newHistory ...domain.StatusHistoryEntry) error
}

// OrderLocker serializes work on a single order across processes
type OrderLocker interface {
	// TryLock returns ok=false when another worker holds the lock.
	// The returned release func must be called when ok is true.
	TryLock(ctx context.Context, orderID int64) (release func(), ok bool, err error)
}
