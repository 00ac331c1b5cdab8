package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRewardNotFound = errors.New("reward not found")
	ErrEventNotFound  = errors.New("referral event not found")
)

// Repository implements RepositoryInterface using PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// pgxTx adapts pgx.Tx to the narrow Tx the engine depends on while
// still letting repository methods recover the underlying transaction
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func unwrapTx(tx Tx) (pgx.Tx, error) {
	wrapper, ok := tx.(*pgxTx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return wrapper.tx, nil
}

func (r *Repository) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgxTx{tx: tx}, nil
}

// GetConversionContext locks the event row so concurrent reward
// attempts for the same event serialize behind it
func (r *Repository) GetConversionContext(ctx context.Context, tx Tx, eventID uuid.UUID) (*ConversionContext, error) {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT e.id, e.status, c.advocate_id, c.campaign_id
		FROM referral_events e
		JOIN referral_codes c ON c.id = e.code_id
		WHERE e.id = $1
		FOR UPDATE OF e`

	cc := &ConversionContext{}
	err = ptx.QueryRow(ctx, query, eventID).Scan(&cc.EventID, &cc.Status, &cc.AdvocateID, &cc.CampaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load referral event: %w", err)
	}
	return cc, nil
}

func (r *Repository) RewardExists(ctx context.Context, tx Tx, eventID uuid.UUID) (bool, error) {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = ptx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rewards WHERE event_id = $1)`,
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing reward: %w", err)
	}
	return exists, nil
}

func (r *Repository) CountPriorConversions(ctx context.Context, tx Tx, advocateID, campaignID, excludeEventID uuid.UUID) (int, error) {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return 0, err
	}

	query := `
		SELECT COUNT(*)
		FROM referral_events e
		JOIN referral_codes c ON c.id = e.code_id
		WHERE c.advocate_id = $1
		  AND c.campaign_id = $2
		  AND e.id <> $3
		  AND e.status IN ('CONVERTED', 'REWARDED')`

	var count int
	err = ptx.QueryRow(ctx, query, advocateID, campaignID, excludeEventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prior conversions: %w", err)
	}
	return count, nil
}

func (r *Repository) InsertReward(ctx context.Context, tx Tx, reward *Reward) error {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rewards (id, advocate_id, campaign_id, event_id, reward_type, amount, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = ptx.Exec(ctx, query,
		reward.ID, reward.AdvocateID, reward.CampaignID, reward.EventID,
		reward.RewardType, reward.Amount, reward.Status, reward.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reward: %w", err)
	}
	return nil
}

func (r *Repository) MarkEventRewarded(ctx context.Context, tx Tx, eventID uuid.UUID) error {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	tag, err := ptx.Exec(ctx,
		`UPDATE referral_events SET status = 'REWARDED' WHERE id = $1 AND status = 'CONVERTED'`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark event rewarded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

const rewardSelect = `
	SELECT id, advocate_id, campaign_id, event_id, reward_type, amount, status, issued_at, fulfilled_at
	FROM rewards`

func scanReward(row pgx.Row) (*Reward, error) {
	reward := &Reward{}
	err := row.Scan(
		&reward.ID, &reward.AdvocateID, &reward.CampaignID, &reward.EventID,
		&reward.RewardType, &reward.Amount, &reward.Status, &reward.IssuedAt, &reward.FulfilledAt,
	)
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Reward, error) {
	reward, err := scanReward(r.db.QueryRow(ctx, rewardSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return reward, nil
}

func (r *Repository) ListByAdvocate(ctx context.Context, advocateID uuid.UUID, limit, offset int) ([]Reward, error) {
	rows, err := r.db.Query(ctx,
		rewardSelect+` WHERE advocate_id = $1 ORDER BY issued_at DESC LIMIT $2 OFFSET $3`,
		advocateID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	rewards := []Reward{}
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, *reward)
	}
	return rewards, rows.Err()
}

// MarkFulfilled transitions a pending reward to issued. Used by the
// admin surface once a swag item ships.
func (r *Repository) MarkFulfilled(ctx context.Context, id uuid.UUID) (*Reward, error) {
	query := `
		UPDATE rewards
		SET status = $1, fulfilled_at = $2
		WHERE id = $3 AND status = $4
		RETURNING id, advocate_id, campaign_id, event_id, reward_type, amount, status, issued_at, fulfilled_at`

	reward, err := scanReward(r.db.QueryRow(ctx, query, StatusIssued, time.Now().UTC(), id, StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("failed to mark reward fulfilled: %w", err)
	}
	return reward, nil
}
