// Package mocks provides shared testify mocks for the domain ports.
package mocks

import (
	"context"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockOrderPaymentStore mocks ports.OrderPaymentStore
type MockOrderPaymentStore struct {
	mock.Mock
}

func (m *MockOrderPaymentStore) FindPendingReconciliation(ctx context.Context, filter ports.PendingPaymentFilter) ([]int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(ports.PendingPaymentFilter) []int64); ok {
		return fn(filter), args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockOrderPaymentStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderPaymentStore) GetOrderByIncrementID(ctx context.Context, incrementID string) (*domain.Order, error) {
	args := m.Called(ctx, incrementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderPaymentStore) SavePayment(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockOrderPaymentStore) SaveOrder(ctx context.Context, order *domain.Order, newHistory ...domain.StatusHistoryEntry) error {
	args := m.Called(ctx, order, newHistory)
	return args.Error(0)
}

// MockOrderLocker mocks ports.OrderLocker
type MockOrderLocker struct {
	mock.Mock
	Released []int64
}

func (m *MockOrderLocker) TryLock(ctx context.Context, orderID int64) (func(), bool, error) {
	args := m.Called(ctx, orderID)
	return func() { m.Released = append(m.Released, orderID) }, args.Bool(0), args.Error(1)
}

// MockStatusLookup mocks ports.StatusLookup
type MockStatusLookup struct {
	mock.Mock
}

func (m *MockStatusLookup) LookupStatus(ctx context.Context, order *domain.Order) (*domain.GatewayResponse, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewayResponse), args.Error(1)
}

// MockAuditTrail mocks ports.AuditTrail
type MockAuditTrail struct {
	mock.Mock
}

func (m *MockAuditTrail) Record(ctx context.Context, entry ports.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
