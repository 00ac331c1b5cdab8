package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface defines the interface for campaign repository operations
type RepositoryInterface interface {
	Create(ctx context.Context, campaign *Campaign) error
	Update(ctx context.Context, campaign *Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Campaign, error)

	// DeactivateExpired deactivates campaigns whose end date has passed,
	// returning how many were deactivated. Run by the expiry worker.
	DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error)
}
