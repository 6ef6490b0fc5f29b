package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"

	// Transaction Errors (TXN_*)
	ErrorCodeTxnMissingID          ErrorCode = "TXN_MISSING_ID"
	ErrorCodeTxnInvalidState       ErrorCode = "TXN_INVALID_STATE"
	ErrorCodeTxnRefundNotAvailable ErrorCode = "TXN_REFUND_NOT_AVAILABLE"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayTransport ErrorCode = "GATEWAY_TRANSPORT"
	ErrorCodeGatewayRejected  ErrorCode = "GATEWAY_REJECTED"
	ErrorCodeGatewayMalformed ErrorCode = "GATEWAY_MALFORMED_RESPONSE"

	// Order Errors (ORDER_*)
	ErrorCodeOrderNotFound   ErrorCode = "ORDER_NOT_FOUND"
	ErrorCodeOrderCannotHold ErrorCode = "ORDER_CANNOT_HOLD"

	// Internal Errors (INTERNAL_*)
	ErrorCodeConfigError   ErrorCode = "INTERNAL_CONFIG_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so wrapped instances
// compare equal to the sentinel values below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return GetErrorCode(err) == code
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return ErrorCodeGatewayTransport
	}
	var rejectedErr *GatewayRejectedError
	if errors.As(err, &rejectedErr) {
		return ErrorCodeGatewayRejected
	}
	return ""
}

// IsGatewayError checks if an error came from talking to the payment gateway
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayTransport ||
		code == ErrorCodeGatewayRejected ||
		code == ErrorCodeGatewayMalformed
}

var (
	ErrInvalidAmount        = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrMissingTransactionID = NewDomainError(ErrorCodeTxnMissingID, "invalid transaction ID")
	ErrTxnInvalidState      = NewDomainError(ErrorCodeTxnInvalidState, "transaction is in invalid state for this operation")
	ErrRefundNotAvailable   = NewDomainError(ErrorCodeTxnRefundNotAvailable, "refund action is not available")

	ErrGatewayTransport  = NewDomainError(ErrorCodeGatewayTransport, "payment gateway transport failure")
	ErrGatewayRejected   = NewDomainError(ErrorCodeGatewayRejected, "payment gateway rejected the request")
	ErrMalformedResponse = NewDomainError(ErrorCodeGatewayMalformed, "malformed gateway response")

	ErrOrderNotFound   = NewDomainError(ErrorCodeOrderNotFound, "order not found")
	ErrOrderCannotHold = NewDomainError(ErrorCodeOrderCannotHold, "order cannot be put on hold")

	ErrConfig        = NewDomainError(ErrorCodeConfigError, "configuration error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)

// TransportError is a network or HTTP level failure talking to the gateway.
// It never carries a business response code.
type TransportError struct {
	Err          error
	RawHeaders   string
	ErrorCode    string // timeout, connection, tls, protocol, http_status
	ErrorMessage string
	HTTPStatus   int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error during process payment: response code: %d %s (%s)", e.HTTPStatus, e.ErrorMessage, e.ErrorCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrGatewayTransport) match.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == ErrorCodeGatewayTransport
}

// GatewayRejectedError is a well-formed gateway response whose ResponseCode is
// outside the operation's expected set.
type GatewayRejectedError struct {
	Description string
	Expected    []int
	Code        int
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("error during process payment: response code: %d, %s", e.Code, e.Description)
}

// Is lets errors.Is(err, ErrGatewayRejected) match.
func (e *GatewayRejectedError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == ErrorCodeGatewayRejected
}
