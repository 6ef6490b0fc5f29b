// Package slack posts operator alerts to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
)

// DefaultIcon is the emoji alerts are posted with
const DefaultIcon = ":cop::skin-tone-3:"

type message struct {
	Text      string `json:"text"`
	Channel   string `json:"channel,omitempty"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

// Notifier implements ports.Notifier
type Notifier struct {
	client     ports.HTTPClient
	webhookURL string
	channel    string
	username   string
	icon       string
}

var _ ports.Notifier = (*Notifier)(nil)

// Option configures a Notifier
type Option func(*Notifier)

// WithChannel overrides the webhook's default channel
func WithChannel(channel string) Option {
	return func(n *Notifier) { n.channel = channel }
}

// WithUsername sets the bot name shown in Slack
func WithUsername(username string) Option {
	return func(n *Notifier) { n.username = username }
}

// WithIcon replaces DefaultIcon
func WithIcon(icon string) Option {
	return func(n *Notifier) { n.icon = icon }
}

// NewNotifier posts to webhookURL through client
func NewNotifier(client ports.HTTPClient, webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		client:     client,
		webhookURL: webhookURL,
		icon:       DefaultIcon,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts text as one message
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if n.webhookURL == "" {
		return fmt.Errorf("slack webhook url is not configured")
	}

	body, err := json.Marshal(message{
		Text:      text,
		Channel:   n.channel,
		Username:  n.username,
		IconEmoji: n.icon,
	})
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
