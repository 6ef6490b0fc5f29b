package domain

import (
	"github.com/shopspring/decimal"
)

// PaymentMethodCode identifies payments made through the EcorePay gateway
const PaymentMethodCode = "ecorepay"

// ReconciliationStatus marks whether the sweep still has to look at a payment
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationComplete ReconciliationStatus = "complete"
)

// Payment is the order's payment record. Card fields are only populated in
// memory by checkout and are never persisted by this module.
type Payment struct {
	Amount                decimal.Decimal      `json:"amount"`
	AmountRefunded        decimal.Decimal      `json:"amount_refunded"`
	ID                    int64                `json:"id"`
	OrderID               int64                `json:"order_id"`
	Method                string               `json:"method"`
	CCType                string               `json:"cc_type"`
	CCNumber              string               `json:"-"`
	CCExpMonth            string               `json:"-"`
	CCExpYear             string               `json:"-"`
	CCCid                 string               `json:"-"`
	TransactionID         string               `json:"transaction_id"`
	ParentTransactionID   string               `json:"parent_transaction_id"`
	LastTransID           string               `json:"last_trans_id"`
	RefundTransactionID   string               `json:"refund_transaction_id"`
	AdditionalInformation string               `json:"additional_information"`
	TransactionState      TransactionState     `json:"transaction_state"`
	ReconciliationStatus  ReconciliationStatus `json:"reconciliation_status"`
	IsTransactionClosed   bool                 `json:"is_transaction_closed"`
}

// ResolveParentTransactionID returns the parent transaction id, falling back to the last one
func (p *Payment) ResolveParentTransactionID() string {
	if p == nil {
		return ""
	}
	if p.ParentTransactionID != "" {
		return p.ParentTransactionID
	}
	return p.LastTransID
}

// ResolveRefundTransactionID returns the id a refund should reference
func (p *Payment) ResolveRefundTransactionID() string {
	if p == nil {
		return ""
	}
	if p.RefundTransactionID != "" {
		return p.RefundTransactionID
	}
	return p.ResolveParentTransactionID()
}

// State returns the transaction state, treating unset as none
func (p *Payment) State() TransactionState {
	if p.TransactionState == "" {
		return TransactionStateNone
	}
	return p.TransactionState
}

// IsFullyRefunded reports whether refunds cover the whole paid amount
func (p *Payment) IsFullyRefunded() bool {
	return p.Amount.IsPositive() && p.AmountRefunded.GreaterThanOrEqual(p.Amount)
}

func (p *Payment) transition(to TransactionState) error {
	from := p.State()
	if from.IsTerminal() {
		return WrapError(ErrorCodeTxnInvalidState, "transaction is "+string(from)+", no further operation is allowed", nil)
	}
	if from == TransactionStateRefunded && p.IsFullyRefunded() {
		return WrapError(ErrorCodeTxnInvalidState, "transaction is fully refunded", nil)
	}
	if !CanTransition(from, to) {
		return WrapError(ErrorCodeTxnInvalidState, "transaction cannot move from "+string(from)+" to "+string(to), nil)
	}
	p.TransactionState = to
	return nil
}

// CheckTransition validates a move without applying it
func (p *Payment) CheckTransition(to TransactionState) error {
	cp := *p
	return cp.transition(to)
}

// ApplyAuthorization records an accepted sale that stays open
func (p *Payment) ApplyAuthorization(resp *GatewayResponse, amount decimal.Decimal) error {
	if err := p.transition(TransactionStateAuthorized); err != nil {
		return err
	}
	p.Amount = amount
	p.TransactionID = resp.TransactionID
	p.LastTransID = resp.TransactionID
	p.AdditionalInformation = resp.RawXML
	p.IsTransactionClosed = false
	return nil
}

// ApplyCapture records an accepted sale and closes the transaction.
// resp is nil when the funds were already taken by an earlier authorization.
func (p *Payment) ApplyCapture(resp *GatewayResponse, amount decimal.Decimal) error {
	if err := p.transition(TransactionStateCaptured); err != nil {
		return err
	}
	if resp != nil {
		p.Amount = amount
		p.TransactionID = resp.TransactionID
		p.LastTransID = resp.TransactionID
		p.AdditionalInformation = resp.RawXML
	}
	p.IsTransactionClosed = true
	return nil
}

// ApplyVoid records an accepted void of the parent transaction
func (p *Payment) ApplyVoid(parentTransactionID string) error {
	if err := p.transition(TransactionStateVoided); err != nil {
		return err
	}
	p.TransactionID = parentTransactionID
	p.IsTransactionClosed = true
	return nil
}

// ApplyRefund records an accepted refund. The open/closed flag is untouched.
func (p *Payment) ApplyRefund(amount decimal.Decimal) error {
	if err := p.transition(TransactionStateRefunded); err != nil {
		return err
	}
	p.AmountRefunded = p.AmountRefunded.Add(amount)
	return nil
}
