package fraud

import (
	"context"
	"fmt"

	"github.com/caretrack/referral-platform/internal/signals"
)

// Scorer computes account-level fraud scores from persisted identity
// signals. Scoring is a pure read-and-compute pass with no side effects.
//
// Rules are independent and additive; the sum is commutative, but reasons
// are always appended in a fixed order (email, ip, fingerprint, velocity)
// so audit messages stay reproducible.
type Scorer struct {
	signals signals.StoreInterface
}

// NewScorer creates a new account fraud scorer
func NewScorer(store signals.StoreInterface) *Scorer {
	return &Scorer{signals: store}
}

// Score evaluates all rules for the subject. Any store read failure is
// returned to the caller: a failed read must never be treated as "no
// signal", which would silently under-score.
func (s *Scorer) Score(ctx context.Context, input ScoreInput) (*ScoreResult, error) {
	result := &ScoreResult{Reasons: []Reason{}}

	if err := s.checkDuplicateEmail(ctx, input, result); err != nil {
		return nil, fmt.Errorf("duplicate email check: %w", err)
	}
	if err := s.checkIPReuse(ctx, input, result); err != nil {
		return nil, fmt.Errorf("ip reuse check: %w", err)
	}
	if err := s.checkSharedFingerprint(ctx, input, result); err != nil {
		return nil, fmt.Errorf("fingerprint check: %w", err)
	}
	if err := s.checkRegistrationVelocity(ctx, input, result); err != nil {
		return nil, fmt.Errorf("velocity check: %w", err)
	}

	result.RiskLevel = RiskLevelForScore(result.Score)

	return result, nil
}

// checkDuplicateEmail scores any other account sharing the subject's email
func (s *Scorer) checkDuplicateEmail(ctx context.Context, input ScoreInput, result *ScoreResult) error {
	count, err := s.signals.CountUsersWithEmail(ctx, input.Email, input.UserID)
	if err != nil {
		return err
	}

	if count > 0 {
		result.addReason(Reason{
			Code:   ReasonDuplicateEmail,
			Detail: fmt.Sprintf("email already used by %d other account(s)", count),
			Weight: weightDuplicateEmail,
		})
	}

	return nil
}

// checkIPReuse scores lifetime reuse of the subject's IP across distinct
// accounts. The higher threshold wins; the two tiers are mutually exclusive.
func (s *Scorer) checkIPReuse(ctx context.Context, input ScoreInput, result *ScoreResult) error {
	users, err := s.signals.CountDistinctUsersOnIP(ctx, input.IPAddress)
	if err != nil {
		return err
	}

	switch {
	case users > 5:
		result.addReason(Reason{
			Code:   ReasonSharedIP,
			Detail: fmt.Sprintf("ip address seen on %d distinct accounts", users),
			Weight: weightIPReuseHigh,
		})
	case users > 2:
		result.addReason(Reason{
			Code:   ReasonSharedIP,
			Detail: fmt.Sprintf("ip address seen on %d distinct accounts", users),
			Weight: weightIPReuseLow,
		})
	}

	return nil
}

// checkSharedFingerprint scores a device fingerprint seen on more than one account
func (s *Scorer) checkSharedFingerprint(ctx context.Context, input ScoreInput, result *ScoreResult) error {
	if input.DeviceFingerprint == "" {
		return nil
	}

	count, err := s.signals.GetFingerprintUserCount(ctx, input.DeviceFingerprint)
	if err != nil {
		return err
	}

	if count != nil && *count > 1 {
		result.addReason(Reason{
			Code:   ReasonSharedFingerprint,
			Detail: fmt.Sprintf("device fingerprint shared by %d accounts", *count),
			Weight: weightSharedFingerprint,
		})
	}

	return nil
}

// checkRegistrationVelocity scores registrations from the subject's IP in
// the trailing hour. The higher threshold wins.
func (s *Scorer) checkRegistrationVelocity(ctx context.Context, input ScoreInput, result *ScoreResult) error {
	count, err := s.signals.CountRecentRegistrations(ctx, input.IPAddress, velocityWindow)
	if err != nil {
		return err
	}

	switch {
	case count > 3:
		result.addReason(Reason{
			Code:   ReasonRegistrationVelocity,
			Detail: fmt.Sprintf("%d registrations from this ip in the last hour", count),
			Weight: weightVelocityHigh,
		})
	case count > 1:
		result.addReason(Reason{
			Code:   ReasonRegistrationVelocity,
			Detail: fmt.Sprintf("%d registrations from this ip in the last hour", count),
			Weight: weightVelocityLow,
		})
	}

	return nil
}

func (r *ScoreResult) addReason(reason Reason) {
	r.Reasons = append(r.Reasons, reason)
	r.Score += reason.Weight
}
