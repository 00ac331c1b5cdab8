package fraud

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the fraud score persistence operations
type RepositoryInterface interface {
	// SaveEvaluation persists a score record and the subject's pause flag
	// in a single transaction. The current view is overwritten; history is
	// appended.
	SaveEvaluation(ctx context.Context, record *ScoreRecord) error

	// GetCurrentScore returns the subject's current score record.
	GetCurrentScore(ctx context.Context, subjectID uuid.UUID) (*ScoreRecord, error)

	// GetScoreHistory returns the append-only score history, newest first.
	GetScoreHistory(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*ScoreRecord, error)

	// ListPaused returns subjects whose current score paused them.
	ListPaused(ctx context.Context, limit, offset int) ([]*ScoreRecord, error)
}

// ScorerInterface abstracts the scorer for controller tests
type ScorerInterface interface {
	Score(ctx context.Context, input ScoreInput) (*ScoreResult, error)
}
