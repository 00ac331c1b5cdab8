package signals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists identity signals and audit entries
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the store interface.
var _ StoreInterface = (*Repository)(nil)

// NewRepository creates a new signals repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecordSignal appends an identity signal
func (r *Repository) RecordSignal(ctx context.Context, signal *IdentitySignal) error {
	if signal.ID == uuid.Nil {
		signal.ID = uuid.New()
	}
	if signal.RecordedAt.IsZero() {
		signal.RecordedAt = time.Now()
	}

	query := `
		INSERT INTO identity_signals (
			id, user_id, ip_address, email, fingerprint_hash, source, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		signal.ID,
		signal.UserID,
		signal.IPAddress,
		signal.Email,
		signal.FingerprintHash,
		signal.Source,
		signal.RecordedAt,
	)

	return err
}

// CountUsersWithEmail counts distinct users sharing the email, excluding the subject
func (r *Repository) CountUsersWithEmail(ctx context.Context, email string, excludeUserID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM identity_signals
		WHERE email = $1 AND user_id <> $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, email, excludeUserID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// CountDistinctUsersOnIP counts distinct users ever seen on the IP
func (r *Repository) CountDistinctUsersOnIP(ctx context.Context, ip string) (int, error) {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM identity_signals
		WHERE ip_address = $1
	`

	var count int
	if err := r.db.QueryRow(ctx, query, ip).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// GetFingerprintUserCount returns the distinct user count for a fingerprint,
// or nil when the fingerprint has never been observed
func (r *Repository) GetFingerprintUserCount(ctx context.Context, fingerprintHash string) (*int, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT user_id)
		FROM identity_signals
		WHERE fingerprint_hash = $1
	`

	var rows, users int
	if err := r.db.QueryRow(ctx, query, fingerprintHash).Scan(&rows, &users); err != nil {
		return nil, err
	}

	if rows == 0 {
		return nil, nil
	}

	return &users, nil
}

// CountRecentRegistrations counts registration signals from the IP within the window
func (r *Repository) CountRecentRegistrations(ctx context.Context, ip string, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM identity_signals
		WHERE ip_address = $1
		  AND source = $2
		  AND recorded_at > $3
	`

	var count int
	since := time.Now().Add(-window)
	if err := r.db.QueryRow(ctx, query, ip, SourceRegistration, since).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// AppendAudit appends an audit trail entry
func (r *Repository) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO audit_trail (
			id, user_id, action, entity, details, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.Entity,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)

	return err
}
