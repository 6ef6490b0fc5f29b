// Package postgres stores orders and their EcorePay payments in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/adapters/database"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const selectOrder = `
SELECT o.entity_id, o.increment_id, o.state, o.status,
       o.hold_before_state, o.hold_before_status,
       o.customer_email, o.customer_dob, o.remote_ip,
       o.is_virtual, o.billing_address, o.updated_at,
       p.entity_id, p.method, p.cc_type, p.amount_paid, p.amount_refunded,
       p.transaction_id, p.parent_transaction_id, p.last_trans_id, p.refund_transaction_id,
       p.additional_information, p.transaction_state, p.reconciliation_status,
       p.is_transaction_closed
FROM sales_order o
LEFT JOIN sales_order_payment p ON p.parent_id = o.entity_id
`

const upsertPayment = `
INSERT INTO sales_order_payment (
    parent_id, method, cc_type, amount_paid, amount_refunded,
    transaction_id, parent_transaction_id, last_trans_id, refund_transaction_id,
    additional_information, transaction_state, reconciliation_status, is_transaction_closed
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (parent_id) DO UPDATE SET
    method                 = EXCLUDED.method,
    cc_type                = EXCLUDED.cc_type,
    amount_paid            = EXCLUDED.amount_paid,
    amount_refunded        = EXCLUDED.amount_refunded,
    transaction_id         = EXCLUDED.transaction_id,
    parent_transaction_id  = EXCLUDED.parent_transaction_id,
    last_trans_id          = EXCLUDED.last_trans_id,
    refund_transaction_id  = EXCLUDED.refund_transaction_id,
    additional_information = EXCLUDED.additional_information,
    transaction_state      = EXCLUDED.transaction_state,
    reconciliation_status  = EXCLUDED.reconciliation_status,
    is_transaction_closed  = EXCLUDED.is_transaction_closed
RETURNING entity_id`

// OrderStore implements ports.OrderPaymentStore
type OrderStore struct {
	db *database.PostgreSQLAdapter
}

var _ ports.OrderPaymentStore = (*OrderStore)(nil)

// NewOrderStore creates a store on top of the shared pool
func NewOrderStore(db *database.PostgreSQLAdapter) *OrderStore {
	return &OrderStore{db: db}
}

// FindPendingReconciliation returns ids of orders whose payment still waits for the sweep
func (s *OrderStore) FindPendingReconciliation(ctx context.Context, filter ports.PendingPaymentFilter) ([]int64, error) {
	ctx, cancel := s.db.SweepQueryContext(ctx)
	defer cancel()

	states := make([]string, len(filter.States))
	for i, st := range filter.States {
		states[i] = string(st)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.db.Pool().Query(ctx, `
SELECT o.entity_id
FROM sales_order_payment p
JOIN sales_order o ON o.entity_id = p.parent_id
WHERE p.method = $1
  AND p.reconciliation_status = $2
  AND o.state = ANY($3)
  AND o.entity_id > $5
ORDER BY o.entity_id
LIMIT $4`, filter.Method, string(filter.ReconciliationStatus), states, limit, filter.AfterID)
	if err != nil {
		return nil, dbError(err, "find pending payments", nil)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, dbError(err, "scan pending payments", nil)
	}
	return ids, nil
}

// GetOrder loads an order with its payment and status history
func (s *OrderStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()
	return s.loadOrder(ctx, s.db.Pool(), "WHERE o.entity_id = $1", orderID)
}

// GetOrderByIncrementID loads an order by its customer-facing number
func (s *OrderStore) GetOrderByIncrementID(ctx context.Context, incrementID string) (*domain.Order, error) {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()
	return s.loadOrder(ctx, s.db.Pool(), "WHERE o.increment_id = $1", incrementID)
}

// SavePayment persists payment bookkeeping. Card fields are never written.
func (s *OrderStore) SavePayment(ctx context.Context, payment *domain.Payment) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()
	return savePayment(ctx, s.db.Pool(), payment)
}

// SaveOrder persists state, status, hold-before values, the payment and the
// new history entries in one transaction
func (s *OrderStore) SaveOrder(ctx context.Context, order *domain.Order, newHistory ...domain.StatusHistoryEntry) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE sales_order
SET state = $2, status = $3, hold_before_state = $4, hold_before_status = $5, updated_at = NOW()
WHERE entity_id = $1`,
			order.ID, string(order.State), order.Status,
			nullText(string(order.HoldBeforeState)), nullText(order.HoldBeforeStatus),
		)
		if err != nil {
			return dbError(err, "update order", nil)
		}
		if tag.RowsAffected() == 0 {
			return domain.WrapError(domain.ErrorCodeOrderNotFound, fmt.Sprintf("order %d not found", order.ID), nil)
		}

		if order.Payment != nil {
			order.Payment.OrderID = order.ID
			if err := savePayment(ctx, tx, order.Payment); err != nil {
				return err
			}
		}

		for _, h := range newHistory {
			if err := insertHistory(ctx, tx, order.ID, h); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateOrder inserts a new order with its payment and sets the assigned ids
func (s *OrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	var billing []byte
	if order.BillingAddress != nil {
		var err error
		if billing, err = json.Marshal(order.BillingAddress); err != nil {
			return fmt.Errorf("marshal billing address: %w", err)
		}
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO sales_order (
    increment_id, state, status, customer_email, customer_dob, remote_ip, is_virtual, billing_address
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING entity_id`,
			order.IncrementID, string(order.State), order.Status,
			nullText(order.CustomerEmail), nullText(order.CustomerDOB), nullText(order.RemoteIP),
			order.IsVirtual, billing,
		).Scan(&order.ID)
		if err != nil {
			return dbError(err, "insert order", nil)
		}

		if order.Payment != nil {
			order.Payment.OrderID = order.ID
			if err := savePayment(ctx, tx, order.Payment); err != nil {
				return err
			}
		}
		for _, h := range order.History {
			if err := insertHistory(ctx, tx, order.ID, h); err != nil {
				return err
			}
		}
		return nil
	})
}

func savePayment(ctx context.Context, db DBTX, p *domain.Payment) error {
	amount, err := decimalToNumeric(p.Amount)
	if err != nil {
		return err
	}
	refunded, err := decimalToNumeric(p.AmountRefunded)
	if err != nil {
		return err
	}
	state := p.State()
	recon := p.ReconciliationStatus
	if recon == "" {
		recon = domain.ReconciliationPending
	}

	err = db.QueryRow(ctx, upsertPayment,
		p.OrderID, p.Method, nullText(p.CCType), amount, refunded,
		nullText(p.TransactionID), nullText(p.ParentTransactionID), nullText(p.LastTransID), nullText(p.RefundTransactionID),
		nullText(p.AdditionalInformation), string(state), string(recon), p.IsTransactionClosed,
	).Scan(&p.ID)
	if err != nil {
		return dbError(err, "save payment", nil)
	}
	return nil
}

func insertHistory(ctx context.Context, db DBTX, orderID int64, h domain.StatusHistoryEntry) error {
	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.Exec(ctx, `
INSERT INTO sales_order_status_history (parent_id, status, comment, is_customer_notified, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		orderID, nullText(h.Status), nullText(h.Comment), h.CustomerNotified, createdAt,
	)
	if err != nil {
		return dbError(err, "insert status history", nil)
	}
	return nil
}

func (s *OrderStore) loadOrder(ctx context.Context, db DBTX, where string, arg any) (*domain.Order, error) {
	var (
		o                                          domain.Order
		state                                      string
		holdState, holdStatus, email, dob, ip      pgtype.Text
		billing                                    []byte
		paymentID                                  pgtype.Int8
		method, ccType                             pgtype.Text
		amount, refunded                           pgtype.Numeric
		txnID, parentTxnID, lastTxnID, refundTxnID pgtype.Text
		info, txnState, recon                      pgtype.Text
		closed                                     pgtype.Bool
	)

	err := db.QueryRow(ctx, selectOrder+where, arg).Scan(
		&o.ID, &o.IncrementID, &state, &o.Status,
		&holdState, &holdStatus,
		&email, &dob, &ip,
		&o.IsVirtual, &billing, &o.UpdatedAt,
		&paymentID, &method, &ccType, &amount, &refunded,
		&txnID, &parentTxnID, &lastTxnID, &refundTxnID,
		&info, &txnState, &recon,
		&closed,
	)
	if err != nil {
		return nil, dbError(err, fmt.Sprintf("get order %v", arg), domain.ErrOrderNotFound)
	}

	o.State = domain.OrderState(state)
	o.HoldBeforeState = domain.OrderState(holdState.String)
	o.HoldBeforeStatus = holdStatus.String
	o.CustomerEmail = email.String
	o.CustomerDOB = dob.String
	o.RemoteIP = ip.String

	if len(billing) > 0 {
		var addr domain.Address
		if err := json.Unmarshal(billing, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
		o.BillingAddress = &addr
	}

	if paymentID.Valid {
		p := &domain.Payment{
			ID:                    paymentID.Int64,
			OrderID:               o.ID,
			Method:                method.String,
			CCType:                ccType.String,
			TransactionID:         txnID.String,
			ParentTransactionID:   parentTxnID.String,
			LastTransID:           lastTxnID.String,
			RefundTransactionID:   refundTxnID.String,
			AdditionalInformation: info.String,
			TransactionState:      domain.TransactionState(txnState.String),
			ReconciliationStatus:  domain.ReconciliationStatus(recon.String),
			IsTransactionClosed:   closed.Bool,
		}
		if p.Amount, err = pgNumericToDecimal(amount); err != nil {
			return nil, err
		}
		if p.AmountRefunded, err = pgNumericToDecimal(refunded); err != nil {
			return nil, err
		}
		o.Payment = p
	}

	history, err := loadHistory(ctx, db, o.ID)
	if err != nil {
		return nil, err
	}
	o.History = history
	return &o, nil
}

func loadHistory(ctx context.Context, db DBTX, orderID int64) ([]domain.StatusHistoryEntry, error) {
	rows, err := db.Query(ctx, `
SELECT COALESCE(status, ''), COALESCE(comment, ''), is_customer_notified, created_at
FROM sales_order_status_history
WHERE parent_id = $1
ORDER BY created_at, entity_id`, orderID)
	if err != nil {
		return nil, dbError(err, "load status history", nil)
	}

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StatusHistoryEntry, error) {
		var h domain.StatusHistoryEntry
		err := row.Scan(&h.Status, &h.Comment, &h.CustomerNotified, &h.CreatedAt)
		return h, err
	})
	if err != nil {
		return nil, dbError(err, "scan status history", nil)
	}
	return history, nil
}
