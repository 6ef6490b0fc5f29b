package ecorepay

import (
	"slices"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
)

// ExpectedCodes is the set of response codes an operation treats as success
type ExpectedCodes []int

// Contains reports whether code is expected
func (e ExpectedCodes) Contains(code int) bool {
	return slices.Contains(e, code)
}

// Gateway response codes
const (
	CodeApproved = 100
	CodeAccepted = 110
)

var (
	ExpectedSale   = ExpectedCodes{CodeApproved}
	ExpectedVoid   = ExpectedCodes{CodeAccepted}
	ExpectedRefund = ExpectedCodes{CodeAccepted}
	ExpectedLookup = ExpectedCodes{CodeApproved, CodeAccepted}
)

// ExpectedCodesFor returns the success codes for an operation
func ExpectedCodesFor(op domain.TransactionOperation) ExpectedCodes {
	switch op {
	case domain.OperationAuthorizeCapture:
		return ExpectedSale
	case domain.OperationVoid:
		return ExpectedVoid
	case domain.OperationRefund:
		return ExpectedRefund
	case domain.OperationLookup:
		return ExpectedLookup
	default:
		return nil
	}
}

// Validate checks the response code against the expected set.
// The gateway description is carried verbatim on rejection.
func Validate(resp *domain.GatewayResponse, expected ExpectedCodes) error {
	if resp == nil {
		return domain.WrapError(domain.ErrorCodeGatewayMalformed, "empty gateway response", nil)
	}
	if !expected.Contains(resp.ResponseCode) {
		return &domain.GatewayRejectedError{
			Code:        resp.ResponseCode,
			Description: resp.Description,
			Expected:    slices.Clone(expected),
		}
	}
	return nil
}
