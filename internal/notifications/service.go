package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/pkg/config"
	"github.com/caretrack/referral-platform/pkg/logger"
)

// Service is the platform notification sender. Delivery goes through the
// surrounding application's email provider; this core only records the
// intent. Disabled senders drop messages silently.
type Service struct {
	cfg config.NotificationsConfig
}

// Ensure the service satisfies the sender contract.
var _ Sender = (*Service)(nil)

// NewService creates a new notification sender
func NewService(cfg config.NotificationsConfig) *Service {
	return &Service{cfg: cfg}
}

// Send records an outbound notification. Failures here are the caller's
// to log, not to propagate; reward flows never block on notifications.
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	if !s.cfg.Enabled {
		return nil
	}

	logger.WithContext(ctx).Info("notification queued",
		zap.String("from", s.cfg.FromAddress),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)

	return nil
}
