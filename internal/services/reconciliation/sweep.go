package reconciliation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/observability"
	"github.com/google/uuid"
)

// SweepStates are the order states the sweep looks at
var SweepStates = []domain.OrderState{domain.OrderStatePendingPayment, domain.OrderStateProcessing}

// Cron runs one sweep over pending EcorePay payments. It does nothing unless
// the method is both active and asynchronous. Orders are processed one at a time.
func (e *Engine) Cron(ctx context.Context) SweepReport {
	report := SweepReport{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
	}

	if !e.config.IsActive() || !e.config.IsAsync() {
		report.Disabled = true
		report.FinishedAt = e.now()
		e.logger.Debug("Reconciliation sweep disabled",
			ports.String("run_id", report.RunID),
			ports.Bool("active", e.config.IsActive()),
			ports.Bool("async", e.config.IsAsync()),
		)
		observability.RecordSweep("disabled", 0, 0)
		return report
	}

	e.logger.Info("Reconciliation sweep started",
		ports.String("run_id", report.RunID),
		ports.Int("batch_size", e.cfg.BatchSize),
	)

	// Keyset pages on order id: each pending order is visited once per sweep
	filter := ports.PendingPaymentFilter{
		Method:               domain.PaymentMethodCode,
		ReconciliationStatus: domain.ReconciliationPending,
		States:               SweepStates,
		Limit:                e.cfg.BatchSize,
	}
	for page := 1; ; page++ {
		ids, err := e.store.FindPendingReconciliation(ctx, filter)
		if err != nil {
			report.Err = fmt.Errorf("find pending payments: %w", err)
			report.Error = report.Err.Error()
			report.FinishedAt = e.now()
			e.logger.Error("Reconciliation sweep failed",
				ports.String("run_id", report.RunID),
				ports.Int("page", page),
				ports.Int("processed", len(report.Results)),
				ports.Err(err),
			)
			observability.RecordSweep("failed", report.Selected, report.FinishedAt.Sub(report.StartedAt).Seconds())
			return report
		}
		report.Selected += len(ids)
		e.logger.Debug("Reconciliation page selected",
			ports.String("run_id", report.RunID),
			ports.Int("page", page),
			ports.Int("selected", len(ids)),
			ports.Any("after_id", filter.AfterID),
		)

		if !e.sweepPage(ctx, &report, ids) || len(ids) < filter.Limit {
			break
		}
		filter.AfterID = ids[len(ids)-1]
	}

	report.FinishedAt = e.now()
	e.logger.Info("Reconciliation sweep finished",
		ports.String("run_id", report.RunID),
		ports.Int("selected", report.Selected),
		ports.Int("processing", report.Processing),
		ports.Int("held", report.Held),
		ports.Int("unchanged", report.Unchanged),
		ports.Int("errors", report.Errors),
		ports.Int("skipped", report.Skipped),
		ports.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	observability.RecordSweep("completed", report.Selected, report.FinishedAt.Sub(report.StartedAt).Seconds())
	return report
}

// sweepPage syncs ids in order and reports whether the sweep may continue
func (e *Engine) sweepPage(ctx context.Context, report *SweepReport, ids []int64) bool {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Err = err
			report.Error = err.Error()
			return false
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				report.Err = err
				report.Error = err.Error()
				return false
			}
		}
		report.add(e.syncByID(ctx, report.RunID, id))
	}
	return true
}

// SyncOrder reconciles a single order by increment id, outside the sweep
func (e *Engine) SyncOrder(ctx context.Context, incrementID string) (SyncResult, error) {
	if !e.config.IsActive() {
		return SyncResult{}, domain.WrapError(domain.ErrorCodeConfigError, "payment method is not active", nil)
	}

	order, err := e.store.GetOrderByIncrementID(ctx, incrementID)
	if err != nil {
		return SyncResult{}, err
	}
	if order.Payment == nil || order.Payment.Method != domain.PaymentMethodCode {
		return SyncResult{}, domain.WrapError(domain.ErrorCodeTxnInvalidState, "order "+incrementID+" is not paid with "+domain.PaymentMethodCode, nil)
	}

	return e.withLock(ctx, "", order.ID, incrementID, func() SyncResult {
		return e.syncOrderStatus(ctx, "", order)
	}), nil
}

func (e *Engine) syncByID(ctx context.Context, runID string, orderID int64) SyncResult {
	label := strconv.FormatInt(orderID, 10)
	return e.withLock(ctx, runID, orderID, label, func() SyncResult {
		order, err := e.store.GetOrder(ctx, orderID)
		if err != nil {
			e.logger.Error("Failed to load order for reconciliation",
				ports.String("run_id", runID),
				ports.String("order_id", label),
				ports.Err(err),
			)
			recordOutcome(ActionError)
			return SyncResult{IncrementID: label, Action: ActionError, Reason: err.Error(), Err: err}
		}
		return e.syncOrderStatus(ctx, runID, order)
	})
}

// withLock runs fn under the per-order lock when a locker is configured.
// A lock held elsewhere skips the order.
func (e *Engine) withLock(ctx context.Context, runID string, orderID int64, label string, fn func() SyncResult) SyncResult {
	if e.locker == nil {
		return fn()
	}

	release, ok, err := e.locker.TryLock(ctx, orderID)
	if err != nil {
		e.logger.Error("Failed to acquire order lock",
			ports.String("run_id", runID),
			ports.String("order", label),
			ports.Err(err),
		)
		recordOutcome(ActionError)
		return SyncResult{IncrementID: label, Action: ActionError, Reason: err.Error(), Err: err}
	}
	if !ok {
		e.logger.Info("Order locked by another worker, skipping",
			ports.String("run_id", runID),
			ports.String("order", label),
		)
		recordOutcome(ActionSkipped)
		return SyncResult{IncrementID: label, Action: ActionSkipped, Reason: "locked by another worker"}
	}
	defer release()
	return fn()
}
