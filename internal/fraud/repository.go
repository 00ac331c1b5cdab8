package fraud

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/pkg/logger"
)

// ErrScoreNotFound is returned when a subject has never been scored
var ErrScoreNotFound = errors.New("fraud score not found")

// Repository persists fraud score records
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveEvaluation writes the history row and the current view in one
// transaction so the pause flag can never go stale relative to the score.
func (r *Repository) SaveEvaluation(ctx context.Context, record *ScoreRecord) error {
	reasonsJSON, err := json.Marshal(record.Reasons)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	historyQuery := `
		INSERT INTO fraud_score_history (
			id, subject_id, score, risk_level, reasons, is_paused, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, historyQuery,
		record.ID,
		record.SubjectID,
		record.Score,
		record.RiskLevel,
		reasonsJSON,
		record.IsPaused,
		record.ComputedAt,
	)
	if err != nil {
		return err
	}

	currentQuery := `
		INSERT INTO fraud_scores (
			subject_id, score, risk_level, reasons, is_paused, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_id) DO UPDATE SET
			score = EXCLUDED.score,
			risk_level = EXCLUDED.risk_level,
			reasons = EXCLUDED.reasons,
			is_paused = EXCLUDED.is_paused,
			computed_at = EXCLUDED.computed_at
	`

	_, err = tx.Exec(ctx, currentQuery,
		record.SubjectID,
		record.Score,
		record.RiskLevel,
		reasonsJSON,
		record.IsPaused,
		record.ComputedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetCurrentScore returns the subject's current score record
func (r *Repository) GetCurrentScore(ctx context.Context, subjectID uuid.UUID) (*ScoreRecord, error) {
	query := `
		SELECT subject_id, score, risk_level, reasons, is_paused, computed_at
		FROM fraud_scores
		WHERE subject_id = $1
	`

	record := &ScoreRecord{}
	var reasonsJSON []byte

	err := r.db.QueryRow(ctx, query, subjectID).Scan(
		&record.SubjectID,
		&record.Score,
		&record.RiskLevel,
		&reasonsJSON,
		&record.IsPaused,
		&record.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScoreNotFound
		}
		return nil, err
	}

	record.Reasons = decodeReasons(ctx, record.SubjectID, reasonsJSON)

	return record, nil
}

// GetScoreHistory returns score records for a subject, newest first
func (r *Repository) GetScoreHistory(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*ScoreRecord, error) {
	query := `
		SELECT id, subject_id, score, risk_level, reasons, is_paused, computed_at
		FROM fraud_score_history
		WHERE subject_id = $1
		ORDER BY computed_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, subjectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoreRecords(ctx, rows, true)
}

// ListPaused returns subjects whose current score paused them
func (r *Repository) ListPaused(ctx context.Context, limit, offset int) ([]*ScoreRecord, error) {
	query := `
		SELECT subject_id, score, risk_level, reasons, is_paused, computed_at
		FROM fraud_scores
		WHERE is_paused = true
		ORDER BY computed_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoreRecords(ctx, rows, false)
}

func scanScoreRecords(ctx context.Context, rows pgx.Rows, withID bool) ([]*ScoreRecord, error) {
	records := make([]*ScoreRecord, 0)
	for rows.Next() {
		record := &ScoreRecord{}
		var reasonsJSON []byte

		dest := []any{
			&record.SubjectID,
			&record.Score,
			&record.RiskLevel,
			&reasonsJSON,
			&record.IsPaused,
			&record.ComputedAt,
		}
		if withID {
			dest = append([]any{&record.ID}, dest...)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		record.Reasons = decodeReasons(ctx, record.SubjectID, reasonsJSON)

		records = append(records, record)
	}

	return records, rows.Err()
}

// decodeReasons tolerates a corrupt reasons column so one bad row cannot
// block score reads, but the data loss is logged rather than silent.
func decodeReasons(ctx context.Context, subjectID uuid.UUID, raw []byte) []Reason {
	var reasons []Reason
	if err := json.Unmarshal(raw, &reasons); err != nil {
		logger.WithContext(ctx).Warn("stored fraud reasons are not valid JSON",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err))
		return []Reason{}
	}
	return reasons
}
