package referrals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrCodeNotFound is returned when no referral code matches the lookup
	ErrCodeNotFound = errors.New("referral code not found")
	// ErrEventNotFound is returned when no referral event matches the lookup
	ErrEventNotFound = errors.New("referral event not found")
	// ErrDuplicatePair signals the (campaign, advocate) pair already has a code
	ErrDuplicatePair = errors.New("referral code already exists for advocate and campaign")
	// ErrDuplicateCodeValue signals a random code or slug collision
	ErrDuplicateCodeValue = errors.New("referral code value collision")
	// ErrEventNotConvertible signals the event was not in SIGNED_UP state
	ErrEventNotConvertible = errors.New("referral event is not in a convertible state")
)

const uniqueViolation = "23505"

// Repository persists referral codes and events
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new referrals repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetCodeByPair retrieves the code for a (campaign, advocate) pair
func (r *Repository) GetCodeByPair(ctx context.Context, campaignID, advocateID uuid.UUID) (*Code, error) {
	query := codeSelect + ` WHERE campaign_id = $1 AND advocate_id = $2`
	return r.scanCode(r.db.QueryRow(ctx, query, campaignID, advocateID))
}

// GetCodeByID retrieves a code by ID
func (r *Repository) GetCodeByID(ctx context.Context, id uuid.UUID) (*Code, error) {
	query := codeSelect + ` WHERE id = $1`
	return r.scanCode(r.db.QueryRow(ctx, query, id))
}

// GetCodeBySlug retrieves a code by its shareable link slug
func (r *Repository) GetCodeBySlug(ctx context.Context, slug string) (*Code, error) {
	query := codeSelect + ` WHERE link_slug = $1`
	return r.scanCode(r.db.QueryRow(ctx, query, slug))
}

const codeSelect = `
	SELECT id, campaign_id, advocate_id, code, link_slug, usage_count, reward_status, created_at
	FROM referral_codes`

func (r *Repository) scanCode(row pgx.Row) (*Code, error) {
	code := &Code{}
	err := row.Scan(
		&code.ID,
		&code.CampaignID,
		&code.AdvocateID,
		&code.Code,
		&code.LinkSlug,
		&code.UsageCount,
		&code.RewardStatus,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return code, nil
}

// CreateCode inserts a new referral code. Unique violations are classified
// so the registry can distinguish a concurrent pair insert from a random
// value collision.
func (r *Repository) CreateCode(ctx context.Context, code *Code) error {
	query := `
		INSERT INTO referral_codes (
			id, campaign_id, advocate_id, code, link_slug, usage_count, reward_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		code.ID,
		code.CampaignID,
		code.AdvocateID,
		code.Code,
		code.LinkSlug,
		code.UsageCount,
		code.RewardStatus,
		code.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "campaign_advocate") {
				return ErrDuplicatePair
			}
			return ErrDuplicateCodeValue
		}
		return err
	}

	return nil
}

// IncrementUsage increments a code's usage counter atomically
func (r *Repository) IncrementUsage(ctx context.Context, codeID uuid.UUID) error {
	query := `
		UPDATE referral_codes
		SET usage_count = usage_count + 1
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, codeID)
	return err
}

// FlagCode marks a code's reward status as FLAGGED. The flag is terminal
// until cleared manually; already-issued rewards are untouched.
func (r *Repository) FlagCode(ctx context.Context, codeID uuid.UUID) error {
	query := `
		UPDATE referral_codes
		SET reward_status = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, codeID, CodeRewardFlagged)
	return err
}

// CreateEvent inserts a new referral event
func (r *Repository) CreateEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO referral_events (
			id, code_id, referred_patient_id, status, ip_address, user_agent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.CodeID,
		event.ReferredPatientID,
		event.Status,
		event.IPAddress,
		event.UserAgent,
		event.CreatedAt,
		event.UpdatedAt,
	)

	return err
}

// GetEventByID retrieves a referral event by ID
func (r *Repository) GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	query := eventSelect + ` WHERE id = $1`
	return r.scanEvent(r.db.QueryRow(ctx, query, id))
}

// GetLatestSignedUpEvent returns the most recent SIGNED_UP event for a patient
func (r *Repository) GetLatestSignedUpEvent(ctx context.Context, patientID uuid.UUID) (*Event, error) {
	query := eventSelect + `
		WHERE referred_patient_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanEvent(r.db.QueryRow(ctx, query, patientID, EventSignedUp))
}

const eventSelect = `
	SELECT id, code_id, referred_patient_id, status, ip_address, user_agent, created_at, updated_at
	FROM referral_events`

func (r *Repository) scanEvent(row pgx.Row) (*Event, error) {
	event := &Event{}
	err := row.Scan(
		&event.ID,
		&event.CodeID,
		&event.ReferredPatientID,
		&event.Status,
		&event.IPAddress,
		&event.UserAgent,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

// ConvertEvent advances a SIGNED_UP event to CONVERTED in place. The status
// guard in the WHERE clause keeps transitions monotonic under concurrency.
func (r *Repository) ConvertEvent(ctx context.Context, eventID uuid.UUID) error {
	query := `
		UPDATE referral_events
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db.Exec(ctx, query, eventID, EventConverted, EventSignedUp)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotConvertible
	}

	return nil
}

// CountSignupsFromIP counts sign-up events from the IP within the window
func (r *Repository) CountSignupsFromIP(ctx context.Context, ip string, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM referral_events
		WHERE ip_address = $1 AND created_at > $2
	`

	var count int
	since := time.Now().Add(-window)
	if err := r.db.QueryRow(ctx, query, ip, since).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// CountEventsOnCode counts events recorded against the code within the window
func (r *Repository) CountEventsOnCode(ctx context.Context, codeID uuid.UUID, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM referral_events
		WHERE code_id = $1 AND created_at > $2
	`

	var count int
	since := time.Now().Add(-window)
	if err := r.db.QueryRow(ctx, query, codeID, since).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
