package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/internal/signals"
	"github.com/caretrack/referral-platform/pkg/logger"
)

// Controller orchestrates scoring, persistence and the account pause side
// effect. It owns no scoring logic of its own.
type Controller struct {
	scorer  ScorerInterface
	repo    RepositoryInterface
	signals signals.StoreInterface
}

// NewController creates a new fraud controller
func NewController(scorer ScorerInterface, repo RepositoryInterface, store signals.StoreInterface) *Controller {
	return &Controller{
		scorer:  scorer,
		repo:    repo,
		signals: store,
	}
}

// EvaluateAndApply records the identity signal, scores the subject,
// persists the result and applies the pause flag. The signal is written
// first so the evaluation runs against store state that includes it. The
// score write and pause flag share one transaction; a persistence failure
// leaves no half-applied pause state. Returns whether the account is now
// paused.
func (c *Controller) EvaluateAndApply(ctx context.Context, userID uuid.UUID, ip, email, fingerprint string, source signals.SignalSource) (bool, error) {
	signal := &signals.IdentitySignal{
		ID:              uuid.New(),
		UserID:          userID,
		IPAddress:       ip,
		Email:           email,
		FingerprintHash: fingerprint,
		Source:          source,
		RecordedAt:      time.Now(),
	}
	if err := c.signals.RecordSignal(ctx, signal); err != nil {
		return false, fmt.Errorf("recording identity signal: %w", err)
	}

	result, err := c.scorer.Score(ctx, ScoreInput{
		UserID:            userID,
		IPAddress:         ip,
		Email:             email,
		DeviceFingerprint: fingerprint,
	})
	if err != nil {
		// Fail closed: an unreadable signal store means the score is
		// indeterminate, never zero.
		return false, fmt.Errorf("fraud scoring failed: %w", err)
	}

	record := &ScoreRecord{
		ID:         uuid.New(),
		SubjectID:  userID,
		Score:      result.Score,
		RiskLevel:  result.RiskLevel,
		Reasons:    result.Reasons,
		IsPaused:   result.Score >= PauseThreshold,
		ComputedAt: time.Now(),
	}

	if err := c.repo.SaveEvaluation(ctx, record); err != nil {
		return false, fmt.Errorf("persisting fraud evaluation: %w", err)
	}

	evaluationsTotal.WithLabelValues(string(record.RiskLevel)).Inc()
	if record.IsPaused {
		accountsPausedTotal.Inc()
	}

	if result.Score >= ReviewThreshold {
		c.appendDuplicateDetectionLog(ctx, userID, ip, record)
	}

	return record.IsPaused, nil
}

// appendDuplicateDetectionLog writes one audit entry per triggered reason,
// classified by the structured reason code. Audit failures are logged and
// do not fail the evaluation; the score and pause flag are already durable.
func (c *Controller) appendDuplicateDetectionLog(ctx context.Context, userID uuid.UUID, ip string, record *ScoreRecord) {
	action := signals.AuditActionFlagged
	if record.IsPaused {
		action = signals.AuditActionPaused
	}

	for _, reason := range record.Reasons {
		entry := &signals.AuditEntry{
			UserID:    userID,
			Action:    action,
			Entity:    signals.AuditEntityDuplicateDetection,
			Details:   fmt.Sprintf("%s: %s", reason.Code, reason.Detail),
			IPAddress: ip,
		}
		if err := c.signals.AppendAudit(ctx, entry); err != nil {
			logger.WithContext(ctx).Warn("failed to append duplicate-detection audit entry",
				zap.String("subject_id", userID.String()),
				zap.String("reason_code", string(reason.Code)),
				zap.Error(err),
			)
		}
	}
}

// CurrentScore returns the subject's current score record
func (c *Controller) CurrentScore(ctx context.Context, subjectID uuid.UUID) (*ScoreRecord, error) {
	return c.repo.GetCurrentScore(ctx, subjectID)
}

// ScoreHistory returns the subject's score history, newest first
func (c *Controller) ScoreHistory(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*ScoreRecord, error) {
	return c.repo.GetScoreHistory(ctx, subjectID, limit, offset)
}

// PausedSubjects returns currently paused subjects
func (c *Controller) PausedSubjects(ctx context.Context, limit, offset int) ([]*ScoreRecord, error) {
	return c.repo.ListPaused(ctx, limit, offset)
}
