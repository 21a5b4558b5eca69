package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/adsync/backend/internal/domain/shared"
)

// JobRepository defines the persistence port for sync jobs
type JobRepository interface {
	// FindByID finds a job by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// FindActiveByCampaign returns the non-terminal job for a campaign,
	// or ErrJobNotFound when none is in flight
	FindActiveByCampaign(ctx context.Context, campaignID uuid.UUID) (*Job, error)

	// FindByCampaign returns the job history for a campaign, newest first
	FindByCampaign(ctx context.Context, campaignID uuid.UUID, filter shared.Filter) ([]Job, error)

	// Save creates or updates a job
	Save(ctx context.Context, j *Job) error
}

// BindingRepository defines the persistence port for platform bindings
type BindingRepository interface {
	// FindByCampaignAndPlatform finds the binding for (campaign, platform),
	// or ErrBindingNotFound when the campaign was never pushed
	FindByCampaignAndPlatform(ctx context.Context, campaignID uuid.UUID, platform PlatformCode) (*Binding, error)

	// FindByCampaign returns all bindings for a campaign
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Binding, error)

	// Save creates or updates a binding
	Save(ctx context.Context, b *Binding) error

	// DeleteByCampaign removes all bindings for a campaign
	DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) error
}
