package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation metrics
	reconciliationOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_orders_total",
		Help: "Orders visited by the reconciliation engine",
	}, []string{
		"action", // processing, hold, unchanged, error, skipped
	})

	reconciliationSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_sweeps_total",
		Help: "Reconciliation sweeps by result",
	}, []string{
		"result", // completed, disabled, failed
	})

	reconciliationSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconciliation_sweep_duration_seconds",
		Help:    "Time to run a full reconciliation sweep",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	lastSweepOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reconciliation_last_sweep_orders",
		Help: "Orders selected by the most recent sweep",
	})

	// Money movement bookkeeping
	paymentOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecorepay_payment_operations_total",
		Help: "Payment operations applied to local bookkeeping",
	}, []string{
		"operation", // authorize, capture, void, refund
		"status",    // applied, failed
	})

	paymentAmountCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecorepay_payment_amount_cents_total",
		Help: "Total amount moved in cents by operation",
	}, []string{
		"operation",
	})
)

// RecordReconciliationOrder records the action taken for one order
func RecordReconciliationOrder(action string) {
	reconciliationOrdersTotal.WithLabelValues(action).Inc()
}

// RecordSweep records a finished sweep
func RecordSweep(result string, selected int, durationSeconds float64) {
	reconciliationSweepsTotal.WithLabelValues(result).Inc()
	if result == "completed" {
		lastSweepOrders.Set(float64(selected))
		reconciliationSweepDuration.Observe(durationSeconds)
	}
}

// RecordPaymentOperation records a client operation and, when applied, its amount
func RecordPaymentOperation(operation, status string, amountCents int64) {
	paymentOperationsTotal.WithLabelValues(operation, status).Inc()
	if status == "applied" && amountCents > 0 {
		paymentAmountCents.WithLabelValues(operation).Add(float64(amountCents))
	}
}
