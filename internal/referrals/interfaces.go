package referrals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caretrack/referral-platform/internal/campaigns"
)

// RepositoryInterface defines the referral store operations
type RepositoryInterface interface {
	// Codes
	GetCodeByPair(ctx context.Context, campaignID, advocateID uuid.UUID) (*Code, error)
	GetCodeByID(ctx context.Context, id uuid.UUID) (*Code, error)
	GetCodeBySlug(ctx context.Context, slug string) (*Code, error)
	// CreateCode returns ErrDuplicatePair when the (campaign, advocate)
	// pair already has a code, and ErrDuplicateCodeValue when the random
	// code or slug collided with another advocate's.
	CreateCode(ctx context.Context, code *Code) error
	IncrementUsage(ctx context.Context, codeID uuid.UUID) error
	FlagCode(ctx context.Context, codeID uuid.UUID) error

	// Events
	CreateEvent(ctx context.Context, event *Event) error
	GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetLatestSignedUpEvent(ctx context.Context, patientID uuid.UUID) (*Event, error)
	// ConvertEvent advances a SIGNED_UP event to CONVERTED in place.
	ConvertEvent(ctx context.Context, eventID uuid.UUID) error

	// Windowed counts for the fraud detector
	CountSignupsFromIP(ctx context.Context, ip string, window time.Duration) (int, error)
	CountEventsOnCode(ctx context.Context, codeID uuid.UUID, window time.Duration) (int, error)
}

// CampaignSource provides campaign lookups to the registry and detector
type CampaignSource interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaigns.Campaign, error)
}

// RewardProcessor is the reward engine contract invoked on conversion
type RewardProcessor interface {
	// ProcessReward returns the issued reward ID, or nil when the event
	// did not qualify.
	ProcessReward(ctx context.Context, eventID uuid.UUID) (*uuid.UUID, error)
}
