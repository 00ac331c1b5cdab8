package referrals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/pkg/logger"
)

// Detector heuristic weights. These are campaign-scoped and intentionally
// much smaller than the account fraud scorer's weights; the threshold they
// are compared against comes from the campaign.
const (
	weightIPSignupBurst = 2
	weightSelfReferral  = 5
	weightCodeBurst     = 3

	ipSignupWindow  = 24 * time.Hour
	codeBurstWindow = time.Hour
)

// Detector is the campaign-scoped referral fraud scorer, distinct from the
// account-level scorer in the fraud package
type Detector struct {
	repo      RepositoryInterface
	campaigns CampaignSource
}

// NewDetector creates a new referral fraud detector
func NewDetector(repo RepositoryInterface, campaigns CampaignSource) *Detector {
	return &Detector{repo: repo, campaigns: campaigns}
}

// CheckReferral scores a referral event against the code's campaign
// threshold and flags the code when the threshold is reached. Flagging is
// terminal until manually cleared and never cancels issued rewards.
func (d *Detector) CheckReferral(ctx context.Context, codeID uuid.UUID, referredPatientID *uuid.UUID, ip, userAgent string) (*FraudCheckResult, error) {
	code, err := d.repo.GetCodeByID(ctx, codeID)
	if err != nil {
		return nil, fmt.Errorf("looking up referral code: %w", err)
	}

	campaign, err := d.campaigns.GetCampaign(ctx, code.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("looking up campaign: %w", err)
	}

	result := &FraudCheckResult{
		Threshold: campaign.EffectiveFraudThreshold(),
		Reasons:   []string{},
	}

	signups, err := d.repo.CountSignupsFromIP(ctx, ip, ipSignupWindow)
	if err != nil {
		return nil, fmt.Errorf("counting signups from ip: %w", err)
	}
	if signups > 3 {
		result.Score += weightIPSignupBurst
		result.Reasons = append(result.Reasons, fmt.Sprintf("%d sign-ups from this ip in 24 hours", signups))
	}

	if referredPatientID != nil && *referredPatientID == code.AdvocateID {
		result.Score += weightSelfReferral
		result.Reasons = append(result.Reasons, "advocate referred themselves")
	}

	events, err := d.repo.CountEventsOnCode(ctx, codeID, codeBurstWindow)
	if err != nil {
		return nil, fmt.Errorf("counting events on code: %w", err)
	}
	if events > 5 {
		result.Score += weightCodeBurst
		result.Reasons = append(result.Reasons, fmt.Sprintf("%d events on this code in 1 hour", events))
	}

	if result.Score >= result.Threshold {
		result.Flagged = true

		if err := d.repo.FlagCode(ctx, codeID); err != nil {
			return nil, fmt.Errorf("flagging referral code: %w", err)
		}

		codesFlaggedTotal.Inc()
		logger.WithContext(ctx).Warn("referral code flagged",
			zap.String("code_id", codeID.String()),
			zap.String("campaign_id", code.CampaignID.String()),
			zap.Int("score", result.Score),
			zap.Int("threshold", result.Threshold),
			zap.Strings("reasons", result.Reasons),
		)
	}

	return result, nil
}
