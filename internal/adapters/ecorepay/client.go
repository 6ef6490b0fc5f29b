package ecorepay

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/observability"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/security"
	"github.com/shopspring/decimal"
)

const requestRootTag = "Request"

// Client runs EcorePay transactions and applies the results to the order's payment
type Client struct {
	transport *Transport
	config    ports.ConfigProvider
	alerts    *Alerter
	logger    ports.Logger
	dobPolicy DOBPolicy
	now       func() time.Time
	repeatTag string
}

// Option configures a Client
type Option func(*Client)

// WithDOBPolicy replaces SynthesizeDOB. Use NoDOB to turn synthesis off.
func WithDOBPolicy(policy DOBPolicy) Option {
	return func(c *Client) {
		if policy != nil {
			c.dobPolicy = policy
		}
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRepeatTag sets the element name used for numeric keys
func WithRepeatTag(tag string) Option {
	return func(c *Client) {
		if tag != "" {
			c.repeatTag = tag
		}
	}
}

// NewClient creates a gateway client
func NewClient(transport *Transport, config ports.ConfigProvider, alerts *Alerter, logger ports.Logger, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		config:    config,
		alerts:    alerts,
		logger:    logger,
		dobPolicy: SynthesizeDOB,
		now:       time.Now,
		repeatTag: DefaultRepeatTag,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.PaymentGateway = (*Client)(nil)

func requirePayment(order *domain.Order) (*domain.Payment, error) {
	if order == nil || order.Payment == nil {
		return nil, domain.WrapError(domain.ErrorCodeTxnInvalidState, "order has no payment", nil)
	}
	return order.Payment, nil
}

func requirePositive(amount decimal.Decimal, op string) error {
	if !amount.IsPositive() {
		return domain.WrapError(domain.ErrorCodeValidationAmountInvalid, "invalid amount for "+op+": "+amount.String(), nil)
	}
	return nil
}

// Authorize runs a sale and leaves the transaction open
func (c *Client) Authorize(ctx context.Context, order *domain.Order, amount decimal.Decimal) error {
	if err := requirePositive(amount, "authorization"); err != nil {
		return err
	}
	payment, err := requirePayment(order)
	if err != nil {
		return err
	}
	if err := payment.CheckTransition(domain.TransactionStateAuthorized); err != nil {
		return err
	}

	resp, err := c.send(ctx, domain.OperationAuthorizeCapture, payment.CCType, c.saleFields(order, amount, c.now()))
	if err != nil {
		observability.RecordPaymentOperation("authorize", "failed", 0)
		return err
	}
	if err := payment.ApplyAuthorization(resp, amount); err != nil {
		return err
	}

	observability.RecordPaymentOperation("authorize", "applied", amount.Shift(2).IntPart())
	c.logger.Info("EcorePay authorization applied",
		ports.String("order", order.IncrementID),
		ports.String("transaction_id", resp.TransactionID),
		ports.String("amount", amount.StringFixed(2)),
	)
	return nil
}

// Capture runs a sale and closes the transaction. When the payment is already
// authorized the funds were taken by that sale, so only bookkeeping changes.
func (c *Client) Capture(ctx context.Context, order *domain.Order, amount decimal.Decimal) error {
	if err := requirePositive(amount, "capture"); err != nil {
		return err
	}
	payment, err := requirePayment(order)
	if err != nil {
		return err
	}

	if payment.State() == domain.TransactionStateAuthorized {
		if err := payment.ApplyCapture(nil, amount); err != nil {
			return err
		}
		observability.RecordPaymentOperation("capture", "applied", 0)
		c.logger.Info("EcorePay capture closed existing authorization",
			ports.String("order", order.IncrementID),
			ports.String("transaction_id", payment.TransactionID),
		)
		return nil
	}

	if err := payment.CheckTransition(domain.TransactionStateCaptured); err != nil {
		return err
	}

	resp, err := c.send(ctx, domain.OperationAuthorizeCapture, payment.CCType, c.saleFields(order, amount, c.now()))
	if err != nil {
		observability.RecordPaymentOperation("capture", "failed", 0)
		return err
	}
	if err := payment.ApplyCapture(resp, amount); err != nil {
		return err
	}

	observability.RecordPaymentOperation("capture", "applied", amount.Shift(2).IntPart())
	c.logger.Info("EcorePay capture applied",
		ports.String("order", order.IncrementID),
		ports.String("transaction_id", resp.TransactionID),
		ports.String("amount", amount.StringFixed(2)),
	)
	return nil
}

// Void cancels the parent transaction and closes it
func (c *Client) Void(ctx context.Context, order *domain.Order) error {
	payment, err := requirePayment(order)
	if err != nil {
		return err
	}
	parentID := payment.ResolveParentTransactionID()
	if parentID == "" {
		return domain.WrapError(domain.ErrorCodeTxnMissingID, "invalid transaction id for void", nil)
	}
	if err := payment.CheckTransition(domain.TransactionStateVoided); err != nil {
		return err
	}

	if _, err := c.send(ctx, domain.OperationVoid, payment.CCType, voidFields(parentID)); err != nil {
		observability.RecordPaymentOperation("void", "failed", 0)
		return err
	}
	if err := payment.ApplyVoid(parentID); err != nil {
		return err
	}

	observability.RecordPaymentOperation("void", "applied", 0)
	c.logger.Info("EcorePay void applied",
		ports.String("order", order.IncrementID),
		ports.String("transaction_id", parentID),
	)
	return nil
}

// Cancel is Void
func (c *Client) Cancel(ctx context.Context, order *domain.Order) error {
	return c.Void(ctx, order)
}

// Refund returns amount against the payment's refund transaction
func (c *Client) Refund(ctx context.Context, order *domain.Order, amount decimal.Decimal) error {
	if !c.config.RefundEnabled() {
		return domain.WrapError(domain.ErrorCodeTxnRefundNotAvailable, "refund action is not available", nil)
	}
	if err := requirePositive(amount, "refund"); err != nil {
		return err
	}
	payment, err := requirePayment(order)
	if err != nil {
		return err
	}
	if payment.Amount.IsPositive() && payment.AmountRefunded.Add(amount).GreaterThan(payment.Amount) {
		return domain.WrapError(domain.ErrorCodeValidationAmountInvalid, "refund exceeds paid amount", nil).
			WithDetail("refundable", payment.Amount.Sub(payment.AmountRefunded).StringFixed(2))
	}
	txnID := payment.ResolveRefundTransactionID()
	if txnID == "" {
		return domain.WrapError(domain.ErrorCodeTxnMissingID, "invalid transaction id for refund", nil)
	}
	if err := payment.CheckTransition(domain.TransactionStateRefunded); err != nil {
		return err
	}

	if _, err := c.send(ctx, domain.OperationRefund, payment.CCType, refundFields(amount, txnID)); err != nil {
		observability.RecordPaymentOperation("refund", "failed", 0)
		return err
	}
	if err := payment.ApplyRefund(amount); err != nil {
		return err
	}

	observability.RecordPaymentOperation("refund", "applied", amount.Shift(2).IntPart())
	c.logger.Info("EcorePay refund applied",
		ports.String("order", order.IncrementID),
		ports.String("transaction_id", txnID),
		ports.String("amount", amount.StringFixed(2)),
		ports.Bool("fully_refunded", payment.IsFullyRefunded()),
	)
	return nil
}

// LookupStatus queries the gateway for the order's parent transaction.
// It returns (nil, nil) without a network call when there is no transaction yet.
func (c *Client) LookupStatus(ctx context.Context, order *domain.Order) (*domain.GatewayResponse, error) {
	if order == nil {
		return nil, nil
	}
	parentID := order.Payment.ResolveParentTransactionID()
	if parentID == "" {
		return nil, nil
	}
	return c.send(ctx, domain.OperationLookup, order.Payment.CCType, lookupFields(order.IncrementID, parentID))
}

// send wraps txn with credentials, posts it and validates the reply
func (c *Client) send(ctx context.Context, op domain.TransactionOperation, ccType string, txn Fields) (*domain.GatewayResponse, error) {
	gatewayURL := c.config.GatewayURL()
	if gatewayURL == "" {
		return nil, domain.WrapError(domain.ErrorCodeConfigError, "gateway url is not configured", nil)
	}

	creds, err := c.config.Credentials(ctx, ccType)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeConfigError, "resolve gateway credentials", err)
	}

	fields := Fields{
		Scalar("AccountID", creds.AccountID),
		Scalar("AccountAuth", creds.AccountAuth),
		Nested("Transaction", txn...),
	}
	body, err := Encode(requestRootTag, op, fields, c.repeatTag)
	if err != nil {
		c.logger.Error("EcorePay request could not be encoded",
			ports.String("operation", string(op)),
			ports.Any("fields", fields.Redacted()),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeConfigError, "encode "+string(op)+" request", err)
	}

	start := time.Now()
	raw, err := c.transport.Post(ctx, gatewayURL, body)
	if err != nil {
		observability.RecordGatewayRequest(string(op), observability.OutcomeTransportError, time.Since(start))
		return nil, err
	}

	resp, err := ParseResponse(raw, c.now())
	if err != nil {
		observability.RecordGatewayRequest(string(op), observability.OutcomeMalformed, time.Since(start))
		c.logger.Error("EcorePay response could not be parsed",
			ports.String("operation", string(op)),
			ports.Int("http_status", raw.StatusCode),
			ports.String("response", security.RedactXML(string(raw.Body))),
			ports.String("request", security.RedactXML(string(body))),
			ports.Err(err),
		)
		return nil, err
	}
	observability.RecordGatewayResponseCode(string(op), strconv.Itoa(resp.ResponseCode))

	if err := c.validate(ctx, op, resp, body); err != nil {
		observability.RecordGatewayRequest(string(op), observability.OutcomeRejected, time.Since(start))
		return nil, err
	}
	observability.RecordGatewayRequest(string(op), observability.OutcomeSuccess, time.Since(start))
	return resp, nil
}

// validate runs Validate, logs the outcome and alerts on rejection
func (c *Client) validate(ctx context.Context, op domain.TransactionOperation, resp *domain.GatewayResponse, request []byte) error {
	expected := ExpectedCodesFor(op)
	err := Validate(resp, expected)

	fields := []ports.Field{
		ports.String("operation", string(op)),
		ports.Int("http_status", resp.HTTPStatus),
		ports.Int("response_code", resp.ResponseCode),
		ports.Any("expected_codes", []int(expected)),
		ports.String("response", security.RedactXML(resp.RawXML)),
		ports.String("request", security.RedactXML(string(request))),
	}

	var rejected *domain.GatewayRejectedError
	if errors.As(err, &rejected) {
		c.logger.Warn("EcorePay rejected request", append(fields, ports.String("description", rejected.Description))...)
		c.alerts.PaymentFailed(ctx, strconv.Itoa(rejected.Code), rejected.Description, request)
		return err
	}
	if err != nil {
		return err
	}

	c.logger.Info("EcorePay response validated", fields...)
	return nil
}
