package signals

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoreInterface defines the signal store operations. The store holds
// persisted facts only; all scoring happens in the fraud package.
type StoreInterface interface {
	// RecordSignal appends an identity signal. Signals are never updated
	// or deleted.
	RecordSignal(ctx context.Context, signal *IdentitySignal) error

	// CountUsersWithEmail counts distinct users sharing the email,
	// excluding the subject being scored.
	CountUsersWithEmail(ctx context.Context, email string, excludeUserID uuid.UUID) (int, error)

	// CountDistinctUsersOnIP counts distinct users ever seen on the IP.
	CountDistinctUsersOnIP(ctx context.Context, ip string) (int, error)

	// GetFingerprintUserCount returns the number of distinct users seen
	// with the fingerprint, or nil when the fingerprint has never been
	// observed.
	GetFingerprintUserCount(ctx context.Context, fingerprintHash string) (*int, error)

	// CountRecentRegistrations counts registration signals from the IP
	// within the trailing window.
	CountRecentRegistrations(ctx context.Context, ip string, window time.Duration) (int, error)

	// AppendAudit appends an audit trail entry.
	AppendAudit(ctx context.Context, entry *AuditEntry) error
}
