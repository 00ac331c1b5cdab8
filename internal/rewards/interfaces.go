package rewards

import (
	"context"

	"github.com/google/uuid"

	"github.com/caretrack/referral-platform/internal/campaigns"
)

// Tx is the unit of work the engine runs a reward decision in. The
// repository returns one from Begin; the engine commits only after the
// reward row and the event transition are both written.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RepositoryInterface defines reward persistence. The read/write
// methods that participate in the reward decision take a Tx so the
// existence check, the insert and the event transition share one
// transaction and one row lock.
type RepositoryInterface interface {
	Begin(ctx context.Context) (Tx, error)
	// GetConversionContext locks the event row for update and returns
	// it joined with its code's advocate and campaign
	GetConversionContext(ctx context.Context, tx Tx, eventID uuid.UUID) (*ConversionContext, error)
	RewardExists(ctx context.Context, tx Tx, eventID uuid.UUID) (bool, error)
	// CountPriorConversions counts the advocate's converted or rewarded
	// events in the campaign, excluding the event being rewarded
	CountPriorConversions(ctx context.Context, tx Tx, advocateID, campaignID, excludeEventID uuid.UUID) (int, error)
	InsertReward(ctx context.Context, tx Tx, reward *Reward) error
	MarkEventRewarded(ctx context.Context, tx Tx, eventID uuid.UUID) error

	GetByID(ctx context.Context, id uuid.UUID) (*Reward, error)
	ListByAdvocate(ctx context.Context, advocateID uuid.UUID, limit, offset int) ([]Reward, error)
	MarkFulfilled(ctx context.Context, id uuid.UUID) (*Reward, error)
}

// Issuer creates the reward record for one reward type. Implementations
// decide the initial status and trigger any external fulfillment.
type Issuer interface {
	Type() campaigns.RewardType
	Issue(ctx context.Context, tx Tx, reward *Reward) error
}

// CampaignSource is the slice of the campaign service the engine needs
type CampaignSource interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaigns.Campaign, error)
}

// GiftCardProvider orders a gift card with an external vendor
type GiftCardProvider interface {
	OrderGiftCard(ctx context.Context, advocateID uuid.UUID, amount float64) error
}

// AccountCreditor applies a credit to an advocate's platform balance
type AccountCreditor interface {
	Credit(ctx context.Context, advocateID uuid.UUID, amount float64) error
}

// EngineInterface defines the reward engine contract
type EngineInterface interface {
	ProcessReward(ctx context.Context, eventID uuid.UUID) (*uuid.UUID, error)
}
