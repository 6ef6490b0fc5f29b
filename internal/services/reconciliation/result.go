package reconciliation

import (
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/observability"
)

// Action is what the engine did with an order
type Action string

const (
	ActionProcessing Action = "processing"
	ActionHold       Action = "hold"
	ActionUnchanged  Action = "unchanged"
	ActionError      Action = "error"
	ActionSkipped    Action = "skipped" // locked by another worker
)

// SyncResult describes the outcome for one order
type SyncResult struct {
	Err           error             `json:"-"`
	IncrementID   string            `json:"increment_id"`
	Action        Action            `json:"action"`
	Reason        string            `json:"reason,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	GatewayStatus string            `json:"gateway_status,omitempty"`
	FromState     domain.OrderState `json:"from_state"`
	ToState       domain.OrderState `json:"to_state"`
	ResponseCode  int               `json:"response_code,omitempty"`
}

// SweepReport summarizes one sweep
type SweepReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Err        error        `json:"-"`
	RunID      string       `json:"run_id"`
	Error      string       `json:"error,omitempty"`
	Results    []SyncResult `json:"results,omitempty"`
	Selected   int          `json:"selected"`
	Processing int          `json:"processing"`
	Held       int          `json:"held"`
	Unchanged  int          `json:"unchanged"`
	Errors     int          `json:"errors"`
	Skipped    int          `json:"skipped"`
	Disabled   bool         `json:"disabled"`
}

func (r *SweepReport) add(result SyncResult) {
	r.Results = append(r.Results, result)
	switch result.Action {
	case ActionProcessing:
		r.Processing++
	case ActionHold:
		r.Held++
	case ActionUnchanged:
		r.Unchanged++
	case ActionError:
		r.Errors++
	case ActionSkipped:
		r.Skipped++
	}
}

func recordOutcome(action Action) {
	observability.RecordReconciliationOrder(string(action))
}
