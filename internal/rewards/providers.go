package rewards

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/pkg/logger"
)

// LogGiftCardProvider stands in for a gift card vendor integration.
// Orders are logged so fulfillment can be reconciled manually until a
// vendor is wired in.
type LogGiftCardProvider struct{}

var _ GiftCardProvider = (*LogGiftCardProvider)(nil)

func (LogGiftCardProvider) OrderGiftCard(ctx context.Context, advocateID uuid.UUID, amount float64) error {
	logger.WithContext(ctx).Info("gift card ordered",
		zap.String("advocate_id", advocateID.String()),
		zap.Float64("amount", amount))
	return nil
}

// LogAccountCreditor stands in for the billing system's credit API
type LogAccountCreditor struct{}

var _ AccountCreditor = (*LogAccountCreditor)(nil)

func (LogAccountCreditor) Credit(ctx context.Context, advocateID uuid.UUID, amount float64) error {
	logger.WithContext(ctx).Info("account credit applied",
		zap.String("advocate_id", advocateID.String()),
		zap.Float64("amount", amount))
	return nil
}
