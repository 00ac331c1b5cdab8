package notifications

import "context"

// Sender delivers a notification. Implementations are fire-and-forget:
// failures are logged, never raised to the calling workflow.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
