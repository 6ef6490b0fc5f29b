// Package reconciliation polls the gateway for orders whose payment is still
// pending locally and moves them to processing or on hold.
package reconciliation

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/security"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Status history comments written by the engine
const (
	ReasonNoTransaction    = "No transaction found, you should manually make invoice"
	CommentPaymentReceived = "We received your payment, thank you!"
)

// OnSyncError decides what happens to an order when its sync fails
type OnSyncError string

const (
	OnSyncErrorIgnore OnSyncError = "ignore" // leave the order as it is
	OnSyncErrorHold   OnSyncError = "hold"   // hold the order with the error message
)

// Config holds engine tuning
type Config struct {
	// SettledStatuses are lookup Status values that mean the money arrived (case-insensitive)
	SettledStatuses []string
	OnSyncError     OnSyncError
	BatchSize       int
	// RatePerSecond paces gateway lookups during a sweep; 0 disables pacing
	RatePerSecond float64
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		SettledStatuses: []string{"Processed"},
		OnSyncError:     OnSyncErrorIgnore,
		BatchSize:       500,
	}
}

// Engine reconciles asynchronous payments against the gateway
type Engine struct {
	store   ports.OrderPaymentStore
	lookup  ports.StatusLookup
	config  ports.ConfigProvider
	locker  ports.OrderLocker
	audit   ports.AuditTrail
	logger  ports.Logger
	limiter *rate.Limiter
	now     func() time.Time
	cfg     Config
}

// Option configures an Engine
type Option func(*Engine)

// WithLocker serializes work per order across processes
func WithLocker(locker ports.OrderLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// WithAuditTrail records every decision
func WithAuditTrail(audit ports.AuditTrail) Option {
	return func(e *Engine) { e.audit = audit }
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a reconciliation engine
func NewEngine(
	store ports.OrderPaymentStore,
	lookup ports.StatusLookup,
	config ports.ConfigProvider,
	logger ports.Logger,
	cfg Config,
	opts ...Option,
) *Engine {
	if len(cfg.SettledStatuses) == 0 {
		cfg.SettledStatuses = DefaultConfig().SettledStatuses
	}
	if cfg.OnSyncError == "" {
		cfg.OnSyncError = OnSyncErrorIgnore
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	e := &Engine{
		store:  store,
		lookup: lookup,
		config: config,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
	if cfg.RatePerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsSettled reports whether a lookup result means the payment went through.
// Without a Status the approved code counts as settled.
func (e *Engine) IsSettled(resp *domain.GatewayResponse) bool {
	if resp == nil {
		return false
	}
	status := strings.TrimSpace(resp.Status)
	if status == "" {
		return resp.ResponseCode == 100
	}
	return slices.ContainsFunc(e.cfg.SettledStatuses, func(s string) bool {
		return strings.EqualFold(s, status)
	})
}

// SyncOrderStatus reconciles one order. Errors are logged and reported in the
// result; they never propagate.
func (e *Engine) SyncOrderStatus(ctx context.Context, order *domain.Order) SyncResult {
	return e.syncOrderStatus(ctx, "", order)
}

func (e *Engine) syncOrderStatus(ctx context.Context, runID string, order *domain.Order) SyncResult {
	result := SyncResult{
		IncrementID: order.IncrementID,
		FromState:   order.State,
		ToState:     order.State,
	}

	parentID := order.Payment.ResolveParentTransactionID()
	result.TransactionID = parentID

	if parentID == "" {
		if err := e.putOnHold(ctx, order, ReasonNoTransaction); err != nil {
			return e.handleError(ctx, runID, order, result, err)
		}
		result.Action = ActionHold
		result.Reason = ReasonNoTransaction
		result.ToState = order.State
		e.finish(ctx, runID, result, "")
		return result
	}

	resp, err := e.lookup.LookupStatus(ctx, order)
	if err != nil {
		return e.handleError(ctx, runID, order, result, err)
	}
	if resp == nil {
		result.Action = ActionUnchanged
		result.Reason = "no lookup result"
		e.finish(ctx, runID, result, "")
		return result
	}
	result.GatewayStatus = resp.Status
	result.ResponseCode = resp.ResponseCode

	if !e.IsSettled(resp) {
		result.Action = ActionUnchanged
		result.Reason = "payment not settled yet"
		e.finish(ctx, runID, result, resp.RawXML)
		return result
	}

	if !order.CanShip() {
		result.Action = ActionUnchanged
		result.Reason = "order cannot ship from state " + string(order.State)
		e.finish(ctx, runID, result, resp.RawXML)
		return result
	}

	if err := e.putOnProcessing(ctx, order); err != nil {
		return e.handleError(ctx, runID, order, result, err)
	}
	result.Action = ActionProcessing
	result.Reason = CommentPaymentReceived
	result.ToState = order.State
	e.finish(ctx, runID, result, resp.RawXML)
	return result
}

// putOnProcessing closes the transaction, moves the order to processing and
// notifies the customer. The in-memory order is restored if the save fails.
func (e *Engine) putOnProcessing(ctx context.Context, order *domain.Order) error {
	restore := snapshot(order)

	order.Payment.IsTransactionClosed = true
	order.Payment.ReconciliationStatus = domain.ReconciliationComplete
	order.SetProcessing()
	entry := order.AddStatusHistory(domain.OrderStatusProcessing, CommentPaymentReceived, true, e.now())

	if err := e.store.SaveOrder(ctx, order, entry); err != nil {
		restore()
		return err
	}
	return nil
}

// putOnHold holds the order with reason as a status comment
func (e *Engine) putOnHold(ctx context.Context, order *domain.Order, reason string) error {
	restore := snapshot(order)

	if err := order.Hold(); err != nil {
		return err
	}
	entry := order.AddStatusHistory(order.Status, reason, false, e.now())

	if err := e.store.SaveOrder(ctx, order, entry); err != nil {
		restore()
		return err
	}
	return nil
}

func (e *Engine) handleError(ctx context.Context, runID string, order *domain.Order, result SyncResult, err error) SyncResult {
	result.Action = ActionError
	result.Err = err
	result.Reason = err.Error()

	e.logger.Error("Order status sync failed",
		ports.String("run_id", runID),
		ports.String("order", order.IncrementID),
		ports.String("transaction_id", result.TransactionID),
		ports.String("policy", string(e.cfg.OnSyncError)),
		ports.Err(err),
	)

	if e.cfg.OnSyncError == OnSyncErrorHold {
		if holdErr := e.putOnHold(ctx, order, err.Error()); holdErr != nil {
			e.logger.Error("Failed to hold order after sync error",
				ports.String("order", order.IncrementID),
				ports.Err(holdErr),
			)
		} else {
			result.ToState = order.State
		}
	}

	e.finish(ctx, runID, result, "")
	return result
}

// finish logs the decision, records it in the audit trail and counts it
func (e *Engine) finish(ctx context.Context, runID string, result SyncResult, rawPayload string) {
	recordOutcome(result.Action)
	rawPayload = security.RedactXML(rawPayload)

	if result.Action != ActionError {
		e.logger.Info("Order status synced",
			ports.String("run_id", runID),
			ports.String("order", result.IncrementID),
			ports.String("action", string(result.Action)),
			ports.String("reason", result.Reason),
			ports.String("transaction_id", result.TransactionID),
			ports.String("from_state", string(result.FromState)),
			ports.String("to_state", string(result.ToState)),
			ports.String("gateway_payload", rawPayload),
		)
	}

	if e.audit == nil {
		return
	}
	entry := ports.AuditEntry{
		ID:             uuid.NewString(),
		RunID:          runID,
		CreatedAt:      e.now(),
		OrderIncrement: result.IncrementID,
		TransactionID:  result.TransactionID,
		Action:         string(result.Action),
		Reason:         result.Reason,
		FromState:      string(result.FromState),
		ToState:        string(result.ToState),
		GatewayPayload: rawPayload,
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		e.logger.Warn("Failed to record reconciliation audit entry",
			ports.String("order", result.IncrementID),
			ports.Err(err),
		)
	}
}

func snapshot(order *domain.Order) func() {
	saved := *order
	saved.History = slices.Clone(order.History)
	var payment domain.Payment
	if order.Payment != nil {
		payment = *order.Payment
	}
	return func() {
		p := order.Payment
		*order = saved
		if p != nil {
			*p = payment
			order.Payment = p
		}
	}
}
