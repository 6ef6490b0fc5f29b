package domain

import (
	"time"
)

// OrderState is the order lifecycle state owned by the order system
type OrderState string

const (
	OrderStateNew            OrderState = "new"
	OrderStatePendingPayment OrderState = "pending_payment"
	OrderStateProcessing     OrderState = "processing"
	OrderStateComplete       OrderState = "complete"
	OrderStateClosed         OrderState = "closed"
	OrderStateCanceled       OrderState = "canceled"
	OrderStateHolded         OrderState = "holded"
	OrderStatePaymentReview  OrderState = "payment_review"
)

// Order statuses written by reconciliation
const (
	OrderStatusProcessing = "processing"
	OrderStatusHolded     = "holded"
)

// Address is the billing address used to build sale requests
type Address struct {
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	Street     string `json:"street"`
	City       string `json:"city"`
	RegionCode string `json:"region_code"`
	PostCode   string `json:"postcode"`
	Country    string `json:"country_id"`
	Telephone  string `json:"telephone"`
}

// StatusHistoryEntry is a comment appended to the order's status history
type StatusHistoryEntry struct {
	CreatedAt        time.Time `json:"created_at"`
	Status           string    `json:"status"`
	Comment          string    `json:"comment"`
	CustomerNotified bool      `json:"is_customer_notified"`
}

// Order is the slice of the external order that payment processing needs
type Order struct {
	UpdatedAt        time.Time            `json:"updated_at"`
	Payment          *Payment             `json:"payment"`
	BillingAddress   *Address             `json:"billing_address"`
	IncrementID      string               `json:"increment_id"`
	State            OrderState           `json:"state"`
	Status           string               `json:"status"`
	HoldBeforeState  OrderState           `json:"hold_before_state"`
	HoldBeforeStatus string               `json:"hold_before_status"`
	CustomerEmail    string               `json:"customer_email"`
	CustomerDOB      string               `json:"customer_dob"`
	RemoteIP         string               `json:"remote_ip"`
	History          []StatusHistoryEntry `json:"status_history"`
	ID               int64                `json:"entity_id"`
	IsVirtual        bool                 `json:"is_virtual"`
}

// CanShip reports whether the order may still move to processing for shipment
func (o *Order) CanShip() bool {
	if o.IsVirtual {
		return false
	}
	switch o.State {
	case OrderStateHolded, OrderStateCanceled, OrderStateClosed, OrderStateComplete, OrderStatePaymentReview:
		return false
	}
	return true
}

// CanHold reports whether the order may be put on hold
func (o *Order) CanHold() bool {
	switch o.State {
	case OrderStateHolded, OrderStateCanceled, OrderStateClosed, OrderStateComplete, OrderStatePaymentReview:
		return false
	}
	return true
}

// Hold puts the order on hold, remembering where it came from
func (o *Order) Hold() error {
	if !o.CanHold() {
		return WrapError(ErrorCodeOrderCannotHold, "order "+o.IncrementID+" cannot be put on hold from state "+string(o.State), nil)
	}
	o.HoldBeforeState = o.State
	o.HoldBeforeStatus = o.Status
	o.State = OrderStateHolded
	o.Status = OrderStatusHolded
	return nil
}

// SetProcessing moves the order to processing
func (o *Order) SetProcessing() {
	o.State = OrderStateProcessing
	o.Status = OrderStatusProcessing
}

// AddStatusHistory appends a status comment
func (o *Order) AddStatusHistory(status, comment string, notifyCustomer bool, at time.Time) StatusHistoryEntry {
	entry := StatusHistoryEntry{
		CreatedAt:        at,
		Status:           status,
		Comment:          comment,
		CustomerNotified: notifyCustomer,
	}
	o.History = append(o.History, entry)
	return entry
}
