package referrals

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// codeAlphabet deliberately omits ambiguous characters (0/O, 1/I/L)
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	codeLength        = 8
	maxCreateAttempts = 5
)

// Registry generates and deduplicates per-advocate-per-campaign referral
// codes and shareable links
type Registry struct {
	repo      RepositoryInterface
	campaigns CampaignSource
}

// NewRegistry creates a new referral code registry
func NewRegistry(repo RepositoryInterface, campaigns CampaignSource) *Registry {
	return &Registry{repo: repo, campaigns: campaigns}
}

// GetOrCreateCode returns the advocate's code for the campaign, creating it
// on first use. Idempotent: an existing code is returned unchanged, never
// regenerated. Random value collisions are retried, not surfaced.
func (g *Registry) GetOrCreateCode(ctx context.Context, campaignID, advocateID uuid.UUID) (*Code, error) {
	existing, err := g.repo.GetCodeByPair(ctx, campaignID, advocateID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCodeNotFound) {
		return nil, fmt.Errorf("looking up referral code: %w", err)
	}

	campaign, err := g.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("looking up campaign: %w", err)
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		codeValue, err := randomCode(codeLength)
		if err != nil {
			return nil, err
		}

		code := &Code{
			ID:           uuid.New(),
			CampaignID:   campaignID,
			AdvocateID:   advocateID,
			Code:         codeValue,
			LinkSlug:     buildLinkSlug(campaign.Name, codeValue),
			UsageCount:   0,
			RewardStatus: CodeRewardPending,
			CreatedAt:    time.Now(),
		}

		err = g.repo.CreateCode(ctx, code)
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, ErrDuplicatePair):
			// A concurrent request created the pair's code first; return it
			return g.repo.GetCodeByPair(ctx, campaignID, advocateID)
		case errors.Is(err, ErrDuplicateCodeValue):
			continue
		default:
			return nil, fmt.Errorf("creating referral code: %w", err)
		}
	}

	return nil, fmt.Errorf("unable to generate a unique referral code after %d attempts", maxCreateAttempts)
}

// ResolveSlug resolves a shareable link slug to its code
func (g *Registry) ResolveSlug(ctx context.Context, linkSlug string) (*Code, error) {
	return g.repo.GetCodeBySlug(ctx, linkSlug)
}

// buildLinkSlug derives a globally unique, URL-safe slug from the campaign
// name and the random code
func buildLinkSlug(campaignName, code string) string {
	base := slug.Make(campaignName)
	if base == "" {
		base = "referral"
	}
	return base + "-" + strings.ToLower(code)
}

// randomCode generates a short random identifier over the code alphabet
func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating referral code: %w", err)
	}

	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}

	return sb.String(), nil
}
