package rewards

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/internal/campaigns"
	"github.com/caretrack/referral-platform/internal/notifications"
	"github.com/caretrack/referral-platform/pkg/logger"
)

// GiftCardIssuer orders a gift card with the configured provider and
// records the reward as issued
type GiftCardIssuer struct {
	repo     RepositoryInterface
	provider GiftCardProvider
	notifier notifications.Sender
}

var _ Issuer = (*GiftCardIssuer)(nil)

func NewGiftCardIssuer(repo RepositoryInterface, provider GiftCardProvider, notifier notifications.Sender) *GiftCardIssuer {
	return &GiftCardIssuer{repo: repo, provider: provider, notifier: notifier}
}

func (i *GiftCardIssuer) Type() campaigns.RewardType {
	return campaigns.RewardTypeGiftCard
}

func (i *GiftCardIssuer) Issue(ctx context.Context, tx Tx, reward *Reward) error {
	if err := i.provider.OrderGiftCard(ctx, reward.AdvocateID, reward.Amount); err != nil {
		return fmt.Errorf("failed to order gift card: %w", err)
	}

	reward.Status = StatusIssued
	if err := i.repo.InsertReward(ctx, tx, reward); err != nil {
		return err
	}

	notifyIssued(ctx, i.notifier, reward, "Your gift card is on its way")
	return nil
}

// CreditIssuer applies the amount to the advocate's platform balance
type CreditIssuer struct {
	repo     RepositoryInterface
	creditor AccountCreditor
	notifier notifications.Sender
}

var _ Issuer = (*CreditIssuer)(nil)

func NewCreditIssuer(repo RepositoryInterface, creditor AccountCreditor, notifier notifications.Sender) *CreditIssuer {
	return &CreditIssuer{repo: repo, creditor: creditor, notifier: notifier}
}

func (i *CreditIssuer) Type() campaigns.RewardType {
	return campaigns.RewardTypeCredit
}

func (i *CreditIssuer) Issue(ctx context.Context, tx Tx, reward *Reward) error {
	if err := i.creditor.Credit(ctx, reward.AdvocateID, reward.Amount); err != nil {
		return fmt.Errorf("failed to apply account credit: %w", err)
	}

	reward.Status = StatusIssued
	if err := i.repo.InsertReward(ctx, tx, reward); err != nil {
		return err
	}

	notifyIssued(ctx, i.notifier, reward, "Account credit applied to your balance")
	return nil
}

// SwagIssuer records the reward as pending; fulfillment happens
// manually through the admin surface
type SwagIssuer struct {
	repo     RepositoryInterface
	notifier notifications.Sender
}

var _ Issuer = (*SwagIssuer)(nil)

func NewSwagIssuer(repo RepositoryInterface, notifier notifications.Sender) *SwagIssuer {
	return &SwagIssuer{repo: repo, notifier: notifier}
}

func (i *SwagIssuer) Type() campaigns.RewardType {
	return campaigns.RewardTypeSwag
}

func (i *SwagIssuer) Issue(ctx context.Context, tx Tx, reward *Reward) error {
	reward.Status = StatusPending
	if err := i.repo.InsertReward(ctx, tx, reward); err != nil {
		return err
	}

	notifyIssued(ctx, i.notifier, reward, "Your swag reward is being prepared")
	return nil
}

// notifyIssued is best effort; a failed notification never blocks the
// reward
func notifyIssued(ctx context.Context, notifier notifications.Sender, reward *Reward, subject string) {
	if notifier == nil {
		return
	}
	body := fmt.Sprintf("You earned a %s reward worth %.2f for a successful referral.", reward.RewardType, reward.Amount)
	if err := notifier.Send(ctx, reward.AdvocateID.String(), subject, body); err != nil {
		logger.WithContext(ctx).Warn("failed to send reward notification",
			zap.String("reward_id", reward.ID.String()),
			zap.Error(err))
	}
}
