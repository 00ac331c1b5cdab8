package rewards

import (
	"time"

	"github.com/google/uuid"

	"github.com/caretrack/referral-platform/internal/campaigns"
	"github.com/caretrack/referral-platform/internal/referrals"
)

// Status is the fulfillment state of a reward
type Status string

const (
	// StatusPending awaits human fulfillment (swag)
	StatusPending Status = "PENDING"
	// StatusIssued is fulfilled (gift card, credit) or shipped (swag)
	StatusIssued Status = "ISSUED"
)

// Tier multipliers applied to the campaign's base reward value. The tier
// is evaluated on strictly prior conversions, before the event being
// rewarded counts toward its own tier.
const (
	tierTopConversions = 10
	tierMidConversions = 5

	tierTopMultiplier = 1.5
	tierMidMultiplier = 1.2
)

// MultiplierForPriorConversions returns the tier multiplier for an
// advocate with the given number of prior conversions in a campaign
func MultiplierForPriorConversions(prior int) float64 {
	switch {
	case prior >= tierTopConversions:
		return tierTopMultiplier
	case prior >= tierMidConversions:
		return tierMidMultiplier
	default:
		return 1.0
	}
}

// Reward is an issued (or pending-fulfillment) referral reward. At most
// one reward exists per referral event; rewards are never mutated except
// to mark fulfillment.
type Reward struct {
	ID          uuid.UUID            `json:"id" db:"id"`
	AdvocateID  uuid.UUID            `json:"advocate_id" db:"advocate_id"`
	CampaignID  uuid.UUID            `json:"campaign_id" db:"campaign_id"`
	EventID     uuid.UUID            `json:"event_id" db:"event_id"`
	RewardType  campaigns.RewardType `json:"reward_type" db:"reward_type"`
	Amount      float64              `json:"amount" db:"amount"`
	Status      Status               `json:"status" db:"status"`
	IssuedAt    time.Time            `json:"issued_at" db:"issued_at"`
	FulfilledAt *time.Time           `json:"fulfilled_at,omitempty" db:"fulfilled_at"`
}

// ConversionContext is the event view the engine needs to decide on a
// reward: the event's status plus the advocate and campaign its code
// belongs to
type ConversionContext struct {
	EventID    uuid.UUID
	Status     referrals.EventStatus
	AdvocateID uuid.UUID
	CampaignID uuid.UUID
}
