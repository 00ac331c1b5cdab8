package campaigns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service handles campaign business logic
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new campaign service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// CreateCampaign validates and creates a campaign. Unknown reward types or
// triggers are rejected, never defaulted.
func (s *Service) CreateCampaign(ctx context.Context, req *CreateCampaignRequest) (*Campaign, error) {
	rewardType := RewardType(req.RewardType)
	if !rewardType.Valid() {
		return nil, fmt.Errorf("invalid reward type %q", req.RewardType)
	}

	trigger := RewardTrigger(req.RewardTrigger)
	if !trigger.Valid() {
		return nil, fmt.Errorf("invalid reward trigger %q", req.RewardTrigger)
	}

	if !req.EndDate.After(req.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	now := time.Now()
	campaign := &Campaign{
		ID:                      uuid.New(),
		Name:                    req.Name,
		AdvocateRole:            req.AdvocateRole,
		RewardType:              rewardType,
		RewardValue:             req.RewardValue,
		RewardTrigger:           trigger,
		MaxReferralsPerAdvocate: req.MaxReferralsPerAdvocate,
		FraudThreshold:          req.FraudThreshold,
		StartDate:               req.StartDate,
		EndDate:                 req.EndDate,
		IsActive:                true,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	return campaign, nil
}

// UpdateCampaign applies the requested field updates. Reward type and
// trigger are immutable once a campaign exists; codes reference them.
func (s *Service) UpdateCampaign(ctx context.Context, id uuid.UUID, req *UpdateCampaignRequest) (*Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		campaign.Name = *req.Name
	}
	if req.RewardValue != nil {
		if *req.RewardValue <= 0 {
			return nil, fmt.Errorf("reward value must be positive")
		}
		campaign.RewardValue = *req.RewardValue
	}
	if req.MaxReferralsPerAdvocate != nil {
		campaign.MaxReferralsPerAdvocate = *req.MaxReferralsPerAdvocate
	}
	if req.FraudThreshold != nil {
		campaign.FraudThreshold = req.FraudThreshold
	}
	if req.IsActive != nil {
		campaign.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("updating campaign: %w", err)
	}

	return campaign, nil
}

// GetCampaign returns a campaign by ID
func (s *Service) GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return s.repo.GetByID(ctx, id)
}

// ListCampaigns returns campaigns, optionally active only
func (s *Service) ListCampaigns(ctx context.Context, activeOnly bool, limit, offset int) ([]*Campaign, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}
