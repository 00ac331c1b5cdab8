package campaigns

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/pkg/logger"
)

// ExpiryWorker periodically deactivates campaigns past their end date.
// Expiration is a batch concern, kept out of the request path entirely.
type ExpiryWorker struct {
	repo     RepositoryInterface
	interval time.Duration
	now      func() time.Time
}

// NewExpiryWorker creates a new campaign expiry worker
func NewExpiryWorker(repo RepositoryInterface, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{
		repo:     repo,
		interval: interval,
		now:      time.Now,
	}
}

// WithNow overrides the worker clock, for tests
func (w *ExpiryWorker) WithNow(now func() time.Time) {
	w.now = now
}

// Run executes the expiry sweep on the configured interval until the
// context is cancelled
func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("campaign expiry worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("campaign expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs a single expiry pass
func (w *ExpiryWorker) sweep(ctx context.Context) {
	deactivated, err := w.repo.DeactivateExpired(ctx, w.now())
	if err != nil {
		logger.Error("campaign expiry sweep failed", zap.Error(err))
		return
	}

	if deactivated > 0 {
		logger.Info("deactivated expired campaigns", zap.Int64("count", deactivated))
	}
}
