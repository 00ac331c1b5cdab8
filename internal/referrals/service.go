package referrals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/internal/signals"
	"github.com/caretrack/referral-platform/pkg/logger"
)

// ErrInvalidEventStatus is returned for statuses that cannot be recorded
// directly. REWARDED is only ever set by the reward engine.
var ErrInvalidEventStatus = errors.New("invalid referral event status")

// ErrPatientRequired is returned when a conversion is recorded without a patient
var ErrPatientRequired = errors.New("referred patient id is required for conversion")

// DetectorInterface abstracts the referral fraud detector for tests
type DetectorInterface interface {
	CheckReferral(ctx context.Context, codeID uuid.UUID, referredPatientID *uuid.UUID, ip, userAgent string) (*FraudCheckResult, error)
}

// AuditAppender is the slice of the signal store the recorder needs
type AuditAppender interface {
	AppendAudit(ctx context.Context, entry *signals.AuditEntry) error
}

// Service records referral lifecycle events and drives the fraud check and
// reward processing that hang off them
type Service struct {
	repo     RepositoryInterface
	detector DetectorInterface
	rewards  RewardProcessor
	audit    AuditAppender
}

// NewService creates a new referral event recorder
func NewService(repo RepositoryInterface, detector DetectorInterface, rewards RewardProcessor, audit AuditAppender) *Service {
	return &Service{
		repo:     repo,
		detector: detector,
		rewards:  rewards,
		audit:    audit,
	}
}

// RecordEvent records a referral lifecycle event against a code. SIGNED_UP
// creates a new event; CONVERTED advances the patient's tracked signup and
// triggers reward processing. The fraud evaluation is returned to the
// caller so flags can be surfaced; reward issuance is fire-and-forget.
func (s *Service) RecordEvent(ctx context.Context, codeID uuid.UUID, referredPatientID *uuid.UUID, status EventStatus, ip, userAgent string) (*Event, *FraudCheckResult, error) {
	switch status {
	case EventSignedUp:
		return s.recordSignup(ctx, codeID, referredPatientID, ip, userAgent)
	case EventConverted:
		if referredPatientID == nil {
			return nil, nil, ErrPatientRequired
		}
		event, err := s.ConvertForPatient(ctx, *referredPatientID)
		return event, nil, err
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidEventStatus, status)
	}
}

// recordSignup inserts a SIGNED_UP event, bumps the code's usage counter
// and runs the fraud detector synchronously
func (s *Service) recordSignup(ctx context.Context, codeID uuid.UUID, referredPatientID *uuid.UUID, ip, userAgent string) (*Event, *FraudCheckResult, error) {
	now := time.Now()
	event := &Event{
		ID:                uuid.New(),
		CodeID:            codeID,
		ReferredPatientID: referredPatientID,
		Status:            EventSignedUp,
		IPAddress:         ip,
		UserAgent:         userAgent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("recording referral event: %w", err)
	}

	if err := s.repo.IncrementUsage(ctx, codeID); err != nil {
		return nil, nil, fmt.Errorf("incrementing code usage: %w", err)
	}

	eventsTotal.WithLabelValues(string(EventSignedUp)).Inc()

	check, err := s.detector.CheckReferral(ctx, codeID, referredPatientID, ip, userAgent)
	if err != nil {
		// Fail closed, mirroring the account scorer: an unreadable store
		// must not pass as "no fraud signal"
		return nil, nil, fmt.Errorf("referral fraud check: %w", err)
	}

	s.appendSignupAudit(ctx, event)

	return event, check, nil
}

// ConvertForPatient advances the patient's most recent SIGNED_UP event to
// CONVERTED and runs reward processing. A conversion with no tracked
// signup is a no-op, not an error. Reward failures are logged, never
// raised: the referral event itself already succeeded and the webhook
// response must not break on issuance problems.
func (s *Service) ConvertForPatient(ctx context.Context, patientID uuid.UUID) (*Event, error) {
	event, err := s.repo.GetLatestSignedUpEvent(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			logger.WithContext(ctx).Info("conversion without tracked signup ignored",
				zap.String("patient_id", patientID.String()))
			return nil, nil
		}
		return nil, fmt.Errorf("looking up signup event: %w", err)
	}

	if err := s.repo.ConvertEvent(ctx, event.ID); err != nil {
		if errors.Is(err, ErrEventNotConvertible) {
			// A concurrent webhook already converted it
			return nil, nil
		}
		return nil, fmt.Errorf("converting referral event: %w", err)
	}

	event.Status = EventConverted
	event.UpdatedAt = time.Now()
	eventsTotal.WithLabelValues(string(EventConverted)).Inc()

	rewardID, err := s.rewards.ProcessReward(ctx, event.ID)
	if err != nil {
		logger.WithContext(ctx).Error("reward processing failed",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	} else if rewardID != nil {
		logger.WithContext(ctx).Info("reward issued for conversion",
			zap.String("event_id", event.ID.String()),
			zap.String("reward_id", rewardID.String()))
	}

	return event, nil
}

// appendSignupAudit writes a referral signal to the audit trail. Failures
// are logged; the event is already durable.
func (s *Service) appendSignupAudit(ctx context.Context, event *Event) {
	var patientID uuid.UUID
	if event.ReferredPatientID != nil {
		patientID = *event.ReferredPatientID
	}

	entry := &signals.AuditEntry{
		UserID:    patientID,
		Action:    "referral_signup",
		Entity:    "referral_event",
		Details:   fmt.Sprintf("code %s", event.CodeID),
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		logger.WithContext(ctx).Warn("failed to append referral audit entry",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	}
}
