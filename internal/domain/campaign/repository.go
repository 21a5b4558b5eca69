package campaign

import (
	"context"

	"github.com/google/uuid"

	"github.com/adsync/backend/internal/domain/shared"
)

// Repository defines the persistence port for campaigns.
// Save must be atomic and linearizable per campaign identity.
type Repository interface {
	// FindByID finds a campaign by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Campaign, error)

	// FindByName finds a campaign by its exact name
	FindByName(ctx context.Context, name string) (*Campaign, error)

	// FindAll finds campaigns matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Campaign, error)

	// Save creates or updates a campaign
	Save(ctx context.Context, c *Campaign) error

	// Delete removes a campaign row. Callers must verify the campaign
	// never recorded spend; spend-bearing campaigns are only archived.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts campaigns matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// CreativeRepository defines the persistence port for creatives
type CreativeRepository interface {
	// FindByID finds a creative by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Creative, error)

	// FindByCampaign returns all creatives owned by a campaign,
	// ordered by creative ID for deterministic iteration
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Creative, error)

	// Save creates or updates a creative
	Save(ctx context.Context, cr *Creative) error

	// DeleteByCampaign removes all creatives owned by a campaign.
	// Creatives cannot outlive their campaign.
	DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) error
}
