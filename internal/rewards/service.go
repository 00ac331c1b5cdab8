package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/internal/campaigns"
	"github.com/caretrack/referral-platform/internal/referrals"
	"github.com/caretrack/referral-platform/pkg/logger"
)

// Engine decides and issues referral rewards. For each converted event
// it runs a single transaction covering the duplicate check, the reward
// insert and the event's transition to REWARDED, so a reward is issued
// at most once per event.
type Engine struct {
	repo        RepositoryInterface
	campaignSrc CampaignSource
	issuers     map[campaigns.RewardType]Issuer
	now         func() time.Time
}

var _ EngineInterface = (*Engine)(nil)

func NewEngine(repo RepositoryInterface, campaignSrc CampaignSource, issuers ...Issuer) *Engine {
	byType := make(map[campaigns.RewardType]Issuer, len(issuers))
	for _, issuer := range issuers {
		byType[issuer.Type()] = issuer
	}
	return &Engine{
		repo:        repo,
		campaignSrc: campaignSrc,
		issuers:     byType,
		now:         time.Now,
	}
}

// WithNow overrides the clock, for tests
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ProcessReward issues a reward for a converted referral event. It
// returns (nil, nil) when no reward is due: the event is not CONVERTED,
// a reward already exists, or the campaign's reward type has no issuer.
func (e *Engine) ProcessReward(ctx context.Context, eventID uuid.UUID) (*uuid.UUID, error) {
	log := logger.WithContext(ctx)

	tx, err := e.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cc, err := e.repo.GetConversionContext(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	if cc.Status != referrals.EventConverted {
		log.Debug("skipping reward for non-converted event",
			zap.String("event_id", eventID.String()),
			zap.String("status", string(cc.Status)))
		return nil, nil
	}

	exists, err := e.repo.RewardExists(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Debug("reward already issued for event", zap.String("event_id", eventID.String()))
		return nil, nil
	}

	campaign, err := e.campaignSrc.GetCampaign(ctx, cc.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign for reward: %w", err)
	}

	prior, err := e.repo.CountPriorConversions(ctx, tx, cc.AdvocateID, cc.CampaignID, eventID)
	if err != nil {
		return nil, err
	}
	multiplier := MultiplierForPriorConversions(prior)

	issuer, ok := e.issuers[campaign.RewardType]
	if !ok {
		log.Error("no issuer registered for reward type",
			zap.String("reward_type", string(campaign.RewardType)),
			zap.String("campaign_id", campaign.ID.String()))
		return nil, nil
	}

	reward := &Reward{
		ID:         uuid.New(),
		AdvocateID: cc.AdvocateID,
		CampaignID: cc.CampaignID,
		EventID:    eventID,
		RewardType: campaign.RewardType,
		Amount:     campaign.RewardValue * multiplier,
		IssuedAt:   e.now().UTC(),
	}

	if err := issuer.Issue(ctx, tx, reward); err != nil {
		return nil, err
	}

	if err := e.repo.MarkEventRewarded(ctx, tx, eventID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reward transaction: %w", err)
	}

	rewardsIssuedTotal.WithLabelValues(string(reward.RewardType)).Inc()
	log.Info("reward issued",
		zap.String("reward_id", reward.ID.String()),
		zap.String("advocate_id", cc.AdvocateID.String()),
		zap.String("reward_type", string(reward.RewardType)),
		zap.Float64("amount", reward.Amount),
		zap.Int("prior_conversions", prior))

	rewardID := reward.ID
	return &rewardID, nil
}

// GetReward returns a single reward by its ID
func (e *Engine) GetReward(ctx context.Context, id uuid.UUID) (*Reward, error) {
	return e.repo.GetByID(ctx, id)
}

// ListAdvocateRewards returns an advocate's rewards, newest first
func (e *Engine) ListAdvocateRewards(ctx context.Context, advocateID uuid.UUID, limit, offset int) ([]Reward, error) {
	return e.repo.ListByAdvocate(ctx, advocateID, limit, offset)
}

// FulfillReward marks a pending reward as issued
func (e *Engine) FulfillReward(ctx context.Context, id uuid.UUID) (*Reward, error) {
	reward, err := e.repo.MarkFulfilled(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("reward fulfilled", zap.String("reward_id", id.String()))
	return reward, nil
}
