package signals

import (
	"time"

	"github.com/google/uuid"
)

// SignalSource identifies the flow that produced an identity signal
type SignalSource string

const (
	SourceRegistration SignalSource = "registration"
	SourceLogin        SignalSource = "login"
	SourceReferral     SignalSource = "referral"
)

// IdentitySignal is an immutable fact recorded on every registration, login
// and referral event. Signals accumulate forever and feed fraud scoring.
type IdentitySignal struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	UserID          uuid.UUID    `json:"user_id" db:"user_id"`
	IPAddress       string       `json:"ip_address" db:"ip_address"`
	Email           string       `json:"email" db:"email"`
	FingerprintHash string       `json:"fingerprint_hash" db:"fingerprint_hash"`
	Source          SignalSource `json:"source" db:"source"`
	RecordedAt      time.Time    `json:"recorded_at" db:"recorded_at"`
}

// AuditEntry is an append-only audit trail record
type AuditEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Entity    string    `json:"entity" db:"entity"`
	Details   string    `json:"details" db:"details"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Audit actions written by the fraud controller
const (
	AuditActionFlagged = "flagged"
	AuditActionPaused  = "paused"
)

// AuditEntityDuplicateDetection is the audit entity for duplicate-detection entries
const AuditEntityDuplicateDetection = "duplicate_detection"
