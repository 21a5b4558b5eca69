package bulk

import (
	"context"

	"github.com/google/uuid"

	"github.com/adsync/backend/internal/domain/shared"
)

// Repository defines the persistence port for bulk operations
type Repository interface {
	// FindByID finds a bulk operation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Operation, error)

	// FindAll returns bulk operations matching the filter, newest first
	FindAll(ctx context.Context, filter shared.Filter) ([]Operation, error)

	// Save creates or updates a bulk operation
	Save(ctx context.Context, o *Operation) error
}
