package ports

import "context"

// Notifier delivers operator alerts. Messages are redacted before they get here.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
