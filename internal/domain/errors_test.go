package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := WrapError(ErrorCodeTxnMissingID, "void needs a parent transaction", nil)

	assert.True(t, errors.Is(wrapped, ErrMissingTransactionID))
	assert.False(t, errors.Is(wrapped, ErrInvalidAmount))

	outer := fmt.Errorf("void order 100000012: %w", wrapped)
	assert.True(t, errors.Is(outer, ErrMissingTransactionID))
	assert.Equal(t, ErrorCodeTxnMissingID, GetErrorCode(outer))
}

func TestDomainError_ErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "without_cause",
			err:      NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount"),
			expected: "VALIDATION_AMOUNT_INVALID: invalid amount",
		},
		{
			name:     "with_cause",
			err:      WrapError(ErrorCodeGatewayMalformed, "decode response", errors.New("EOF")),
			expected: "GATEWAY_MALFORMED_RESPONSE: decode response: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := fmt.Errorf("post: %w", &TransportError{
		Err:          cause,
		ErrorCode:    "timeout",
		ErrorMessage: "dial tcp: i/o timeout",
	})

	assert.True(t, errors.Is(err, ErrGatewayTransport))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrGatewayRejected))
	assert.True(t, IsGatewayError(err))
	assert.Equal(t, ErrorCodeGatewayTransport, GetErrorCode(err))

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "timeout", te.ErrorCode)
}

func TestGatewayRejectedError(t *testing.T) {
	err := &GatewayRejectedError{Code: 300, Description: "Card Declined", Expected: []int{100}}

	assert.True(t, errors.Is(err, ErrGatewayRejected))
	assert.False(t, errors.Is(err, ErrGatewayTransport))
	assert.Equal(t, "error during process payment: response code: 300, Card Declined", err.Error())
	assert.True(t, IsGatewayError(err))
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrOrderNotFound, ErrorCodeOrderNotFound))
	assert.False(t, IsDomainError(errors.New("plain"), ErrorCodeOrderNotFound))
	assert.True(t, IsDomainError(&GatewayRejectedError{Code: 1}, ErrorCodeGatewayRejected))
}
