package campaigns

import (
	"time"

	"github.com/google/uuid"
)

// RewardType selects the issuer that fulfills a campaign's rewards
type RewardType string

const (
	RewardTypeGiftCard RewardType = "GIFT_CARD"
	RewardTypeCredit   RewardType = "CREDIT"
	RewardTypeSwag     RewardType = "SWAG"
)

// Valid reports whether the reward type is a known variant
func (t RewardType) Valid() bool {
	switch t {
	case RewardTypeGiftCard, RewardTypeCredit, RewardTypeSwag:
		return true
	}
	return false
}

// RewardTrigger is the referral lifecycle stage that earns a reward
type RewardTrigger string

const (
	TriggerSignedUp  RewardTrigger = "SIGNED_UP"
	TriggerConverted RewardTrigger = "CONVERTED"
)

// Valid reports whether the reward trigger is a known variant
func (t RewardTrigger) Valid() bool {
	return t == TriggerSignedUp || t == TriggerConverted
}

// DefaultFraudThreshold applies when a campaign does not set its own
const DefaultFraudThreshold = 3

// Campaign is a referral campaign. Identity is immutable once codes
// reference it.
type Campaign struct {
	ID                      uuid.UUID     `json:"id" db:"id"`
	Name                    string        `json:"name" db:"name"`
	AdvocateRole            string        `json:"advocate_role" db:"advocate_role"`
	RewardType              RewardType    `json:"reward_type" db:"reward_type"`
	RewardValue             float64       `json:"reward_value" db:"reward_value"`
	RewardTrigger           RewardTrigger `json:"reward_trigger" db:"reward_trigger"`
	MaxReferralsPerAdvocate int           `json:"max_referrals_per_advocate" db:"max_referrals_per_advocate"`
	FraudThreshold          *int          `json:"fraud_threshold,omitempty" db:"fraud_threshold"`
	StartDate               time.Time     `json:"start_date" db:"start_date"`
	EndDate                 time.Time     `json:"end_date" db:"end_date"`
	IsActive                bool          `json:"is_active" db:"is_active"`
	CreatedAt               time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at" db:"updated_at"`
}

// EffectiveFraudThreshold returns the campaign's threshold, falling back
// to the platform default when unset
func (c *Campaign) EffectiveFraudThreshold() int {
	if c.FraudThreshold != nil {
		return *c.FraudThreshold
	}
	return DefaultFraudThreshold
}

// CreateCampaignRequest is the admin API request to create a campaign
type CreateCampaignRequest struct {
	Name                    string    `json:"name" binding:"required"`
	AdvocateRole            string    `json:"advocate_role" binding:"required"`
	RewardType              string    `json:"reward_type" binding:"required"`
	RewardValue             float64   `json:"reward_value" binding:"required,gt=0"`
	RewardTrigger           string    `json:"reward_trigger" binding:"required"`
	MaxReferralsPerAdvocate int       `json:"max_referrals_per_advocate"`
	FraudThreshold          *int      `json:"fraud_threshold"`
	StartDate               time.Time `json:"start_date" binding:"required"`
	EndDate                 time.Time `json:"end_date" binding:"required"`
}

// UpdateCampaignRequest is the admin API request to edit a campaign
type UpdateCampaignRequest struct {
	Name                    *string  `json:"name"`
	RewardValue             *float64 `json:"reward_value"`
	MaxReferralsPerAdvocate *int     `json:"max_referrals_per_advocate"`
	FraudThreshold          *int     `json:"fraud_threshold"`
	IsActive                *bool    `json:"is_active"`
}
