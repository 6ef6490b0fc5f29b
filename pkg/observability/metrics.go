package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway call metrics
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecorepay_gateway_requests_total",
			Help: "Total number of EcorePay gateway requests",
		},
		[]string{"operation", "outcome"}, // outcome: success, rejected, transport_error, malformed
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ecorepay_gateway_request_duration_seconds",
			Help: "Duration of EcorePay gateway requests in seconds",
			// Total timeout is 40s
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"operation"},
	)

	gatewayResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecorepay_gateway_response_codes_total",
			Help: "Gateway business response codes by operation",
		},
		[]string{"operation", "response_code"},
	)
)

// Gateway call outcomes
const (
	OutcomeSuccess        = "success"
	OutcomeRejected       = "rejected"
	OutcomeTransportError = "transport_error"
	OutcomeMalformed      = "malformed"
)

// RecordGatewayRequest records one gateway round trip
func RecordGatewayRequest(operation, outcome string, duration time.Duration) {
	gatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordGatewayResponseCode records the business response code of a parsed reply
func RecordGatewayResponseCode(operation, responseCode string) {
	gatewayResponseCodes.WithLabelValues(operation, responseCode).Inc()
}
