package ecorepay

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/security"
)

// maxResponseBytes bounds how much of a reply is read
const maxResponseBytes = 1 << 20

// Transport error codes
const (
	TransportTimeout    = "timeout"
	TransportCanceled   = "canceled"
	TransportConnection = "connection"
	TransportTLS        = "tls"
	TransportProtocol   = "protocol"
	TransportHTTPStatus = "http_status"
)

// RawResponse is an HTTP reply split into its header block and body
type RawResponse struct {
	Headers    string
	Body       []byte
	StatusCode int
}

// Transport posts XML payloads to the gateway. It never retries.
type Transport struct {
	client ports.HTTPClient
	alerts *Alerter
	logger ports.Logger
}

// NewTransport creates a Transport. Timeouts live on the HTTP client
// (see pkg/http.EcorePayClientConfig).
func NewTransport(client ports.HTTPClient, alerts *Alerter, logger ports.Logger) *Transport {
	return &Transport{client: client, alerts: alerts, logger: logger}
}

// Post sends body to url. Connection, timeout, TLS and protocol failures are
// returned as *domain.TransportError. A non-2xx status is one too unless its
// body is a gateway reply with a ResponseCode, which is returned for validation.
func (t *Transport) Post(ctx context.Context, url string, body []byte) (*RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, t.fail(ctx, url, body, &domain.TransportError{
			Err:          err,
			ErrorCode:    TransportProtocol,
			ErrorMessage: err.Error(),
		})
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Cache-Control", "no-cache")
	req.ContentLength = int64(len(body))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.fail(ctx, url, body, &domain.TransportError{
			Err:          err,
			ErrorCode:    classifyTransportError(err),
			ErrorMessage: err.Error(),
		})
	}
	defer resp.Body.Close()

	headers := renderHeaders(resp)
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, t.fail(ctx, url, body, &domain.TransportError{
			Err:          err,
			HTTPStatus:   resp.StatusCode,
			RawHeaders:   headers,
			ErrorCode:    classifyTransportError(err),
			ErrorMessage: err.Error(),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if carriesGatewayReply(respBody) {
			t.logger.Warn("EcorePay replied with non-2xx status",
				ports.String("url", url),
				ports.Int("http_status", resp.StatusCode),
			)
			return &RawResponse{StatusCode: resp.StatusCode, Headers: headers, Body: respBody}, nil
		}
		return nil, t.fail(ctx, url, body, &domain.TransportError{
			HTTPStatus:   resp.StatusCode,
			RawHeaders:   headers,
			ErrorCode:    TransportHTTPStatus,
			ErrorMessage: http.StatusText(resp.StatusCode),
		})
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       respBody,
	}, nil
}

func (t *Transport) fail(ctx context.Context, url string, body []byte, terr *domain.TransportError) error {
	t.logger.Error("EcorePay request failed",
		ports.String("url", url),
		ports.Int("http_status", terr.HTTPStatus),
		ports.String("error_code", terr.ErrorCode),
		ports.String("error_message", terr.ErrorMessage),
		ports.String("response_headers", terr.RawHeaders),
		ports.String("request", security.RedactXML(string(body))),
	)
	t.alerts.PaymentFailed(ctx, strconv.Itoa(terr.HTTPStatus), terr.ErrorMessage, body)
	return terr
}

// carriesGatewayReply reports whether body decodes to a reply with a ResponseCode
func carriesGatewayReply(body []byte) bool {
	doc, err := Decode(body)
	if err != nil {
		return false
	}
	return doc.Text("ResponseCode") != ""
}

// renderHeaders rebuilds the status line and header block as received
func renderHeaders(resp *http.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\r\n", resp.Proto, resp.Status)
	_ = resp.Header.Write(&b)
	return b.String()
}

func classifyTransportError(err error) string {
	if errors.Is(err, context.Canceled) {
		return TransportCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TransportTimeout
	}

	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	if errors.As(err, &certErr) || errors.As(err, &recordErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) || errors.As(err, &invalidErr) {
		return TransportTLS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimeout
	}

	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return TransportConnection
	}
	return TransportProtocol
}
