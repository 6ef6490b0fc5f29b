package reconciliation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/dema501/magento-payment-module-EcorePay/internal/services/reconciliation"
	testmocks "github.com/dema501/magento-payment-module-EcorePay/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCron_Gating(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		async  bool
	}{
		{name: "inactive", active: false, async: true},
		{name: "synchronous", active: true, async: false},
		{name: "both_off", active: false, async: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(reconciliation.DefaultConfig())
			f.config.Active = tt.active
			f.config.Async = tt.async

			report := f.engine.Cron(context.Background())

			assert.True(t, report.Disabled)
			assert.Equal(t, 0, report.Selected)
			assert.NotEmpty(t, report.RunID)
			f.store.AssertNotCalled(t, "FindPendingReconciliation", mock.Anything, mock.Anything)
			f.lookup.AssertNotCalled(t, "LookupStatus", mock.Anything, mock.Anything)
		})
	}
}

func TestCron_Sweep(t *testing.T) {
	f := newEngineFixture(reconciliation.DefaultConfig())

	noTxn := pendingOrder(1, "")
	settled := pendingOrder(2, "T-2")
	failing := pendingOrder(3, "T-3")

	f.store.On("FindPendingReconciliation", mock.Anything, ports.PendingPaymentFilter{
		Method:               "ecorepay",
		ReconciliationStatus: domain.ReconciliationPending,
		States:               []domain.OrderState{domain.OrderStatePendingPayment, domain.OrderStateProcessing},
		Limit:                500,
	}).Return([]int64{1, 2, 3}, nil)
	f.store.On("GetOrder", mock.Anything, int64(1)).Return(noTxn, nil)
	f.store.On("GetOrder", mock.Anything, int64(2)).Return(settled, nil)
	f.store.On("GetOrder", mock.Anything, int64(3)).Return(failing, nil)
	f.store.On("SaveOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.lookup.On("LookupStatus", mock.Anything, settled).Return(&domain.GatewayResponse{ResponseCode: 110, Status: "Processed"}, nil)
	f.lookup.On("LookupStatus", mock.Anything, failing).Return(nil, &domain.TransportError{ErrorCode: "timeout"})

	report := f.engine.Cron(context.Background())

	require.NoError(t, report.Err)
	assert.False(t, report.Disabled)
	assert.Equal(t, 3, report.Selected)
	assert.Equal(t, 1, report.Held)
	assert.Equal(t, 1, report.Processing)
	assert.Equal(t, 1, report.Errors)
	assert.Len(t, report.Results, 3)

	assert.Equal(t, domain.OrderStateHolded, noTxn.State)
	assert.Equal(t, domain.OrderStateProcessing, settled.State)
	assert.Equal(t, domain.OrderStatePendingPayment, failing.State, "errors never auto-hold by default")
}

// pagedIDs serves ids the way the order store does: ascending, after the
// filter's AfterID, at most Limit per call
func pagedIDs(ids ...int64) func(ports.PendingPaymentFilter) []int64 {
	return func(filter ports.PendingPaymentFilter) []int64 {
		out := []int64{}
		for _, id := range ids {
			if id > filter.AfterID && len(out) < filter.Limit {
				out = append(out, id)
			}
		}
		return out
	}
}

func TestCron_PagesThroughAllPendingOrders(t *testing.T) {
	tests := []struct {
		name     string
		ids      []int64
		wantFind []int64
	}{
		{name: "partial_last_page", ids: []int64{1, 2, 3, 4, 5}, wantFind: []int64{0, 2, 4}},
		{name: "exact_multiple", ids: []int64{1, 2, 3, 4}, wantFind: []int64{0, 2, 4}},
		{name: "single_page", ids: []int64{7}, wantFind: []int64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := reconciliation.DefaultConfig()
			cfg.BatchSize = 2
			f := newEngineFixture(cfg)

			f.store.On("FindPendingReconciliation", mock.Anything, mock.Anything).Return(pagedIDs(tt.ids...), nil)
			for _, id := range tt.ids {
				order := pendingOrder(id, fmt.Sprintf("T-%d", id))
				f.store.On("GetOrder", mock.Anything, id).Return(order, nil)
				f.lookup.On("LookupStatus", mock.Anything, order).Return(&domain.GatewayResponse{ResponseCode: 110, Status: "Pending"}, nil)
			}

			report := f.engine.Cron(context.Background())

			require.NoError(t, report.Err)
			assert.Equal(t, len(tt.ids), report.Selected)
			assert.Equal(t, len(tt.ids), report.Unchanged)
			require.Len(t, report.Results, len(tt.ids))
			for i, id := range tt.ids {
				assert.Equal(t, fmt.Sprintf("1000000%02d", id), report.Results[i].IncrementID)
			}

			var afterIDs []int64
			for _, call := range f.store.Calls {
				if call.Method != "FindPendingReconciliation" {
					continue
				}
				filter := call.Arguments.Get(1).(ports.PendingPaymentFilter)
				assert.Equal(t, 2, filter.Limit)
				afterIDs = append(afterIDs, filter.AfterID)
			}
			assert.Equal(t, tt.wantFind, afterIDs)
		})
	}
}

func TestCron_LaterPageFailureKeepsEarlierResults(t *testing.T) {
	cfg := reconciliation.DefaultConfig()
	cfg.BatchSize = 1
	f := newEngineFixture(cfg)

	order := pendingOrder(1, "T-1")
	f.store.On("FindPendingReconciliation", mock.Anything, mock.MatchedBy(func(p ports.PendingPaymentFilter) bool {
		return p.AfterID == 0
	})).Return([]int64{1}, nil)
	f.store.On("FindPendingReconciliation", mock.Anything, mock.MatchedBy(func(p ports.PendingPaymentFilter) bool {
		return p.AfterID == 1
	})).Return(nil, domain.ErrDatabaseError)
	f.store.On("GetOrder", mock.Anything, int64(1)).Return(order, nil)
	f.lookup.On("LookupStatus", mock.Anything, order).Return(&domain.GatewayResponse{ResponseCode: 110, Status: "Pending"}, nil)

	report := f.engine.Cron(context.Background())

	assert.True(t, errors.Is(report.Err, domain.ErrDatabaseError))
	assert.Equal(t, 1, report.Selected)
	assert.Equal(t, 1, report.Unchanged)
	assert.Len(t, report.Results, 1)
}

func TestCron_FindFails(t *testing.T) {
	f := newEngineFixture(reconciliation.DefaultConfig())
	f.store.On("FindPendingReconciliation", mock.Anything, mock.Anything).Return(nil, domain.ErrDatabaseError)

	report := f.engine.Cron(context.Background())

	assert.True(t, errors.Is(report.Err, domain.ErrDatabaseError))
	assert.NotEmpty(t, report.Error)
	f.store.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestCron_LockedOrdersAreSkipped(t *testing.T) {
	locker := new(testmocks.MockOrderLocker)
	f := newEngineFixture(reconciliation.DefaultConfig(), reconciliation.WithLocker(locker))

	settled := pendingOrder(2, "T-2")
	f.store.On("FindPendingReconciliation", mock.Anything, mock.Anything).Return([]int64{1, 2}, nil)
	f.store.On("GetOrder", mock.Anything, int64(2)).Return(settled, nil)
	f.store.On("SaveOrder", mock.Anything, settled, mock.Anything).Return(nil)
	f.lookup.On("LookupStatus", mock.Anything, settled).Return(&domain.GatewayResponse{ResponseCode: 100}, nil)
	locker.On("TryLock", mock.Anything, int64(1)).Return(false, nil)
	locker.On("TryLock", mock.Anything, int64(2)).Return(true, nil)

	report := f.engine.Cron(context.Background())

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Processing)
	assert.Equal(t, []int64{2}, locker.Released)
	f.store.AssertNotCalled(t, "GetOrder", mock.Anything, int64(1))
}

func TestCron_StopsOnCancel(t *testing.T) {
	f := newEngineFixture(reconciliation.DefaultConfig())
	f.store.On("FindPendingReconciliation", mock.Anything, mock.Anything).Return([]int64{1, 2}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.engine.Cron(ctx)

	assert.True(t, errors.Is(report.Err, context.Canceled))
	assert.Empty(t, report.Results)
}

func TestSyncOrder(t *testing.T) {
	t.Run("not_found", func(t *testing.T) {
		f := newEngineFixture(reconciliation.DefaultConfig())
		f.store.On("GetOrderByIncrementID", mock.Anything, "404").Return(nil, domain.ErrOrderNotFound)

		_, err := f.engine.SyncOrder(context.Background(), "404")

		assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
	})

	t.Run("other_payment_method", func(t *testing.T) {
		f := newEngineFixture(reconciliation.DefaultConfig())
		order := pendingOrder(8, "T-8")
		order.Payment.Method = "checkmo"
		f.store.On("GetOrderByIncrementID", mock.Anything, order.IncrementID).Return(order, nil)

		_, err := f.engine.SyncOrder(context.Background(), order.IncrementID)

		assert.True(t, errors.Is(err, domain.ErrTxnInvalidState))
	})

	t.Run("settles_order", func(t *testing.T) {
		locker := new(testmocks.MockOrderLocker)
		f := newEngineFixture(reconciliation.DefaultConfig(), reconciliation.WithLocker(locker))
		order := pendingOrder(9, "T-9")
		f.store.On("GetOrderByIncrementID", mock.Anything, order.IncrementID).Return(order, nil)
		f.store.On("SaveOrder", mock.Anything, order, mock.Anything).Return(nil)
		f.lookup.On("LookupStatus", mock.Anything, order).Return(&domain.GatewayResponse{ResponseCode: 110, Status: "Processed"}, nil)
		locker.On("TryLock", mock.Anything, int64(9)).Return(true, nil)

		result, err := f.engine.SyncOrder(context.Background(), order.IncrementID)

		require.NoError(t, err)
		assert.Equal(t, reconciliation.ActionProcessing, result.Action)
		assert.Equal(t, []int64{9}, locker.Released)
	})

	t.Run("inactive", func(t *testing.T) {
		f := newEngineFixture(reconciliation.DefaultConfig())
		f.config.Active = false

		_, err := f.engine.SyncOrder(context.Background(), "1")

		assert.True(t, errors.Is(err, domain.ErrConfig))
	})
}
