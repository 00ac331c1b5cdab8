package referrals

import (
	"time"

	"github.com/google/uuid"
)

// CodeRewardStatus is the reward eligibility state of a referral code
type CodeRewardStatus string

const (
	CodeRewardPending CodeRewardStatus = "pending"
	// CodeRewardFlagged is terminal until an administrator clears it
	CodeRewardFlagged CodeRewardStatus = "FLAGGED"
)

// EventStatus is the lifecycle state of a referral event. Status only
// advances: SIGNED_UP -> CONVERTED -> REWARDED.
type EventStatus string

const (
	EventSignedUp  EventStatus = "SIGNED_UP"
	EventConverted EventStatus = "CONVERTED"
	EventRewarded  EventStatus = "REWARDED"
)

// Code is a per-advocate-per-campaign referral code. At most one code
// exists per (campaign, advocate) pair.
type Code struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	CampaignID   uuid.UUID        `json:"campaign_id" db:"campaign_id"`
	AdvocateID   uuid.UUID        `json:"advocate_id" db:"advocate_id"`
	Code         string           `json:"code" db:"code"`
	LinkSlug     string           `json:"link_slug" db:"link_slug"`
	UsageCount   int              `json:"usage_count" db:"usage_count"`
	RewardStatus CodeRewardStatus `json:"reward_status" db:"reward_status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// Event is a referral lifecycle event. One event per referred signup;
// conversion updates the same row in place.
type Event struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	CodeID            uuid.UUID   `json:"code_id" db:"code_id"`
	ReferredPatientID *uuid.UUID  `json:"referred_patient_id,omitempty" db:"referred_patient_id"`
	Status            EventStatus `json:"status" db:"status"`
	IPAddress         string      `json:"ip_address" db:"ip_address"`
	UserAgent         string      `json:"user_agent" db:"user_agent"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// FraudCheckResult is the outcome of a referral-level fraud check
type FraudCheckResult struct {
	Score     int      `json:"score"`
	Threshold int      `json:"threshold"`
	Flagged   bool     `json:"flagged"`
	Reasons   []string `json:"reasons"`
}

// GetOrCreateCodeRequest is the API request for code lookup-or-create
type GetOrCreateCodeRequest struct {
	CampaignID uuid.UUID `json:"campaign_id" binding:"required"`
	AdvocateID uuid.UUID `json:"advocate_id" binding:"required"`
}

// RecordEventRequest is the API request to record a referral event
type RecordEventRequest struct {
	CodeID            uuid.UUID  `json:"code_id" binding:"required"`
	ReferredPatientID *uuid.UUID `json:"referred_patient_id"`
	Status            string     `json:"status" binding:"required"`
}

// RecordEventResponse surfaces the fraud evaluation alongside the event so
// the caller can show flags; reward issuance is fire-and-forget.
type RecordEventResponse struct {
	Event      *Event            `json:"event"`
	FraudCheck *FraudCheckResult `json:"fraud_check,omitempty"`
}

// AppointmentCompletedRequest is the conversion webhook payload
type AppointmentCompletedRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
}

// CodeResponse is the public view of a resolved referral link
type CodeResponse struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Code       string    `json:"code"`
	LinkSlug   string    `json:"link_slug"`
}
