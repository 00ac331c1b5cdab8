package fraud

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies a fraud score
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Score thresholds. An account at or above PauseThreshold is paused at
// write time; at or above ReviewThreshold it is logged for review.
const (
	PauseThreshold  = 50.0
	ReviewThreshold = 25.0
)

// Rule weights
const (
	weightDuplicateEmail    = 30.0
	weightIPReuseHigh       = 20.0
	weightIPReuseLow        = 10.0
	weightSharedFingerprint = 25.0
	weightVelocityHigh      = 40.0
	weightVelocityLow       = 15.0
)

// velocityWindow is the trailing window for registration velocity
const velocityWindow = time.Hour

// ReasonCode identifies the rule that contributed to a score. Codes are
// structured so downstream classification never depends on matching
// substrings in free-text reasons.
type ReasonCode string

const (
	ReasonDuplicateEmail       ReasonCode = "duplicate_email"
	ReasonSharedIP             ReasonCode = "shared_ip"
	ReasonSharedFingerprint    ReasonCode = "shared_fingerprint"
	ReasonRegistrationVelocity ReasonCode = "registration_velocity"
)

// Reason is a single triggered rule with its human-readable detail
type Reason struct {
	Code   ReasonCode `json:"code"`
	Detail string     `json:"detail"`
	Weight float64    `json:"weight"`
}

// ScoreInput are the identity signals of the subject being scored. UserID
// may be a placeholder for accounts that do not exist yet.
type ScoreInput struct {
	UserID            uuid.UUID
	IPAddress         string
	Email             string
	DeviceFingerprint string
}

// ScoreResult is the outcome of a scoring pass
type ScoreResult struct {
	Score     float64   `json:"score"`
	RiskLevel RiskLevel `json:"risk_level"`
	Reasons   []Reason  `json:"reasons"`
}

// ScoreRecord is the persisted fraud score for a subject. One current
// record per subject; history is retained append-only for audit.
type ScoreRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SubjectID  uuid.UUID `json:"subject_id" db:"subject_id"`
	Score      float64   `json:"score" db:"score"`
	RiskLevel  RiskLevel `json:"risk_level" db:"risk_level"`
	Reasons    []Reason  `json:"reasons" db:"reasons"`
	IsPaused   bool      `json:"is_paused" db:"is_paused"`
	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}

// RiskLevelForScore maps a score to its risk level
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= PauseThreshold:
		return RiskLevelHigh
	case score >= ReviewThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// EvaluateRequest is the API request for a fraud evaluation. Source
// defaults to registration when absent.
type EvaluateRequest struct {
	UserID            uuid.UUID `json:"user_id" binding:"required"`
	IPAddress         string    `json:"ip_address" binding:"required"`
	Email             string    `json:"email" binding:"required,email"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	Source            string    `json:"source" binding:"omitempty,oneof=registration login"`
}

// EvaluateResponse is returned to the registration/login flow. Scores and
// reasons are intentionally absent; they are admin-only.
type EvaluateResponse struct {
	IsPaused bool   `json:"is_paused"`
	Message  string `json:"message,omitempty"`
}

// PausedMessage is the only detail an end user ever sees
const PausedMessage = "Your account has been temporarily suspended. Please contact support."
