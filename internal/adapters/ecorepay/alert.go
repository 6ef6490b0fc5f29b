package ecorepay

import (
	"context"
	"fmt"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/security"
)

const (
	alertFormat  = "*Ecorepay payment failed with data:*\nEcorepay response ```%s %s```\n\nData sent ```%s```"
	alertTimeout = 10 * time.Second
)

// Alerter sends best-effort operator alerts for failed gateway calls
type Alerter struct {
	notifier ports.Notifier
	config   ports.ConfigProvider
	logger   ports.Logger
}

// NewAlerter creates an Alerter. A nil notifier disables alerts.
func NewAlerter(notifier ports.Notifier, config ports.ConfigProvider, logger ports.Logger) *Alerter {
	return &Alerter{notifier: notifier, config: config, logger: logger}
}

// FormatPaymentFailed renders the alert text. The sent payload is redacted here.
func FormatPaymentFailed(code, message string, sent []byte) string {
	return fmt.Sprintf(alertFormat, code, security.RedactXML(message), security.RedactXML(string(sent)))
}

// PaymentFailed notifies operators. Notifier failures are logged and swallowed.
func (a *Alerter) PaymentFailed(ctx context.Context, code, message string, sent []byte) {
	if a == nil || a.notifier == nil || a.config == nil || !a.config.NotificationsEnabled() {
		return
	}

	// The caller's context may already be past its deadline
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	if err := a.notifier.Notify(notifyCtx, FormatPaymentFailed(code, message, sent)); err != nil {
		a.logger.Warn("Failed to send payment failure alert",
			ports.String("response_code", code),
			ports.Err(err),
		)
	}
}
