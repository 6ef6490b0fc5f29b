package ports

import (
	"context"
	"time"
)

// AuditEntry records one reconciliation decision with the gateway payload behind it
type AuditEntry struct {
	CreatedAt      time.Time
	ID             string
	RunID          string
	OrderIncrement string
	TransactionID  string
	Action         string // processing, hold, unchanged, error
	Reason         string
	FromState      string
	ToState        string
	GatewayPayload string // redacted
}

// AuditTrail persists reconciliation decisions
type AuditTrail interface {
	Record(ctx context.Context, entry AuditEntry) error
}
