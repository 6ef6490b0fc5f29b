package ecorepay

import (
	"strconv"
	"strings"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
)

// ParseResponse decodes a gateway reply. A ResponseCode that is not an integer
// parses as 0, which no operation expects.
func ParseResponse(raw *RawResponse, receivedAt time.Time) (*domain.GatewayResponse, error) {
	if raw == nil || len(strings.TrimSpace(string(raw.Body))) == 0 {
		return nil, domain.WrapError(domain.ErrorCodeGatewayMalformed, "empty gateway response body", nil)
	}

	doc, err := Decode(raw.Body)
	if err != nil {
		return nil, err
	}

	// Description is kept verbatim; the identifiers are trimmed
	description, _ := doc.Fields().Get("Description")

	code, convErr := strconv.Atoi(doc.Text("ResponseCode"))
	if convErr != nil {
		code = 0
	}

	return &domain.GatewayResponse{
		ReceivedAt:    receivedAt,
		HTTPStatus:    raw.StatusCode,
		ResponseCode:  code,
		Description:   description,
		TransactionID: doc.Text("TransactionID"),
		Status:        doc.Text("Status"),
		Reference:     doc.Text("Reference"),
		RawXML:        string(raw.Body),
	}, nil
}
