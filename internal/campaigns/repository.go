package campaigns

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCampaignNotFound is returned when no campaign matches the lookup
var ErrCampaignNotFound = errors.New("campaign not found")

// Repository persists referral campaigns
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new campaign repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new campaign
func (r *Repository) Create(ctx context.Context, campaign *Campaign) error {
	query := `
		INSERT INTO referral_campaigns (
			id, name, advocate_role, reward_type, reward_value, reward_trigger,
			max_referrals_per_advocate, fraud_threshold, start_date, end_date,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.AdvocateRole,
		campaign.RewardType,
		campaign.RewardValue,
		campaign.RewardTrigger,
		campaign.MaxReferralsPerAdvocate,
		campaign.FraudThreshold,
		campaign.StartDate,
		campaign.EndDate,
		campaign.IsActive,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)

	return err
}

// Update updates a campaign's mutable fields
func (r *Repository) Update(ctx context.Context, campaign *Campaign) error {
	query := `
		UPDATE referral_campaigns
		SET name = $2,
		    reward_value = $3,
		    max_referrals_per_advocate = $4,
		    fraud_threshold = $5,
		    is_active = $6,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.RewardValue,
		campaign.MaxReferralsPerAdvocate,
		campaign.FraudThreshold,
		campaign.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	query := `
		SELECT id, name, advocate_role, reward_type, reward_value, reward_trigger,
		       max_referrals_per_advocate, fraud_threshold, start_date, end_date,
		       is_active, created_at, updated_at
		FROM referral_campaigns
		WHERE id = $1
	`

	campaign := &Campaign{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.AdvocateRole,
		&campaign.RewardType,
		&campaign.RewardValue,
		&campaign.RewardTrigger,
		&campaign.MaxReferralsPerAdvocate,
		&campaign.FraudThreshold,
		&campaign.StartDate,
		&campaign.EndDate,
		&campaign.IsActive,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	return campaign, nil
}

// List returns campaigns, optionally only active ones
func (r *Repository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Campaign, error) {
	query := `
		SELECT id, name, advocate_role, reward_type, reward_value, reward_trigger,
		       max_referrals_per_advocate, fraud_threshold, start_date, end_date,
		       is_active, created_at, updated_at
		FROM referral_campaigns
		WHERE ($1 = false OR is_active = true)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, activeOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]*Campaign, 0)
	for rows.Next() {
		campaign := &Campaign{}
		err := rows.Scan(
			&campaign.ID,
			&campaign.Name,
			&campaign.AdvocateRole,
			&campaign.RewardType,
			&campaign.RewardValue,
			&campaign.RewardTrigger,
			&campaign.MaxReferralsPerAdvocate,
			&campaign.FraudThreshold,
			&campaign.StartDate,
			&campaign.EndDate,
			&campaign.IsActive,
			&campaign.CreatedAt,
			&campaign.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, rows.Err()
}

// DeactivateExpired deactivates campaigns past their end date
func (r *Repository) DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE referral_campaigns
		SET is_active = false, updated_at = NOW()
		WHERE is_active = true AND end_date < $1
	`

	tag, err := r.db.Exec(ctx, query, asOf)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
