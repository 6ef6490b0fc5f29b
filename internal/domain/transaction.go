package domain

import (
	"time"
)

// TransactionState is the bookkeeping state of the gateway transaction behind a payment
type TransactionState string

const (
	TransactionStateNone       TransactionState = "none"
	TransactionStateAuthorized TransactionState = "authorized" // Sale accepted, transaction open
	TransactionStateCaptured   TransactionState = "captured"   // Sale accepted, transaction closed
	TransactionStateVoided     TransactionState = "voided"
	TransactionStateRefunded   TransactionState = "refunded" // At least one refund accepted
)

// TransactionOperation names a gateway request type on the wire
type TransactionOperation string

const (
	OperationAuthorizeCapture TransactionOperation = "AuthorizeCapture"
	OperationVoid             TransactionOperation = "Void"
	OperationRefund           TransactionOperation = "Refund"
	OperationLookup           TransactionOperation = "Lookup"
)

// allowedTransitions lists the states each state may move to.
// An empty source state is treated as none.
var allowedTransitions = map[TransactionState][]TransactionState{
	TransactionStateNone:       {TransactionStateAuthorized, TransactionStateCaptured, TransactionStateVoided, TransactionStateRefunded},
	TransactionStateAuthorized: {TransactionStateCaptured, TransactionStateVoided, TransactionStateRefunded},
	TransactionStateCaptured:   {TransactionStateVoided, TransactionStateRefunded},
	TransactionStateRefunded:   {TransactionStateRefunded},
	TransactionStateVoided:     {},
}

// CanTransition reports whether a transaction may move from one state to another
func CanTransition(from, to TransactionState) bool {
	if from == "" {
		from = TransactionStateNone
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further gateway operation is allowed
func (s TransactionState) IsTerminal() bool {
	return s == TransactionStateVoided
}

// GatewayResponse is a parsed gateway reply. It is immutable after parsing.
type GatewayResponse struct {
	ReceivedAt    time.Time
	Description   string
	TransactionID string
	Status        string
	Reference     string
	RawXML        string
	HTTPStatus    int
	ResponseCode  int
}
