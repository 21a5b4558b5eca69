// Package campaignapp implements the campaign lifecycle use cases. All
// writes to a campaign aggregate go through the shared per-campaign commit
// lock so sync jobs and bulk ingests never interleave with direct edits.
package campaignapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/shared"
	domainsync "github.com/adsync/backend/internal/domain/sync"
	"github.com/adsync/backend/internal/infrastructure/lock"
)

// CreateCampaignInput carries the intent fields for a new campaign
type CreateCampaignInput struct {
	Name         string
	AdvertiserID string
	Phase        campaign.Phase
	BudgetTotal  decimal.Decimal
	StartDate    time.Time
	EndDate      time.Time
	Targeting    *campaign.Targeting
}

// UpdateCampaignInput carries the intent fields for a campaign update.
// Delivery facts are never updatable through this path.
type UpdateCampaignInput struct {
	Name        string
	BudgetTotal decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	Targeting   campaign.Targeting
}

// AddCreativeInput carries the fields for a new creative
type AddCreativeInput struct {
	Name       string
	Format     campaign.Format
	Dimensions string
	ClickURL   string
	Snippet    string
}

// Service implements campaign and creative lifecycle operations
type Service struct {
	campaigns campaign.Repository
	creatives campaign.CreativeRepository
	bindings  domainsync.BindingRepository
	commits   *lock.KeyedMutex
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a campaign service
func NewService(
	campaigns campaign.Repository,
	creatives campaign.CreativeRepository,
	bindings domainsync.BindingRepository,
	commits *lock.KeyedMutex,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		campaigns: campaigns,
		creatives: creatives,
		bindings:  bindings,
		commits:   commits,
		events:    events,
		logger:    logger,
	}
}

// Create creates a new campaign in draft status
func (s *Service) Create(ctx context.Context, input CreateCampaignInput) (*campaign.Campaign, error) {
	targeting := campaign.DefaultTargeting()
	if input.Targeting != nil {
		targeting = *input.Targeting
	}

	c, err := campaign.NewCampaign(input.Name, input.AdvertiserID, input.Phase,
		input.BudgetTotal, input.StartDate, input.EndDate, targeting)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("campaign created",
		zap.String("campaign_id", c.ID.String()),
		zap.String("name", c.Name))
	return c, nil
}

// Update changes the intent fields of a campaign
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateCampaignInput) (*campaign.Campaign, error) {
	return s.mutate(ctx, id, func(c *campaign.Campaign) error {
		return c.Update(input.Name, input.BudgetTotal, input.StartDate, input.EndDate, input.Targeting)
	})
}

// Activate transitions a campaign to active
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	return s.mutate(ctx, id, func(c *campaign.Campaign) error {
		return c.Activate()
	})
}

// Pause suspends delivery of an active campaign
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	return s.mutate(ctx, id, func(c *campaign.Campaign) error {
		return c.Pause()
	})
}

// Complete marks a campaign as having finished its flight
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	return s.mutate(ctx, id, func(c *campaign.Campaign) error {
		return c.Complete()
	})
}

// Archive retires a campaign. The campaign record is retained read-only;
// its creatives and platform bindings are removed because they cannot
// outlive the campaign's active life. A campaign with recorded spend has
// no other removal path.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	c, err := s.mutate(ctx, id, func(c *campaign.Campaign) error {
		return c.Archive()
	})
	if err != nil {
		return nil, err
	}

	if err := s.creatives.DeleteByCampaign(ctx, id); err != nil {
		s.logger.Error("failed to remove creatives of archived campaign",
			zap.String("campaign_id", id.String()),
			zap.Error(err))
	}
	if err := s.bindings.DeleteByCampaign(ctx, id); err != nil {
		s.logger.Error("failed to remove bindings of archived campaign",
			zap.String("campaign_id", id.String()),
			zap.Error(err))
	}

	s.logger.Info("campaign archived",
		zap.String("campaign_id", id.String()),
		zap.Bool("had_spend", c.HasSpend()))
	return c, nil
}

// Delete hard-deletes a campaign together with its creatives and platform
// bindings. Refused once any delivery spend has been recorded; those
// campaigns can only be archived.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	release, err := s.commits.LockContext(ctx, id.String())
	if err != nil {
		return err
	}
	defer release()

	c, err := s.campaigns.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c.HasSpend() {
		return campaign.ErrCampaignHasSpend
	}

	if err := s.creatives.DeleteByCampaign(ctx, id); err != nil {
		return err
	}
	if err := s.bindings.DeleteByCampaign(ctx, id); err != nil {
		return err
	}
	if err := s.campaigns.Delete(ctx, id); err != nil {
		return err
	}

	c.AddDomainEvent(campaign.NewCampaignDeletedEvent(c))
	s.publish(ctx, c)

	s.logger.Info("campaign deleted",
		zap.String("campaign_id", id.String()))
	return nil
}

// Get finds a campaign by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	return s.campaigns.FindByID(ctx, id)
}

// List returns campaigns matching the filter together with the total count
func (s *Service) List(ctx context.Context, filter shared.Filter) ([]campaign.Campaign, int64, error) {
	campaigns, err := s.campaigns.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.campaigns.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return campaigns, count, nil
}

// AddCreative creates a creative and attaches it to the campaign,
// preserving attach order
func (s *Service) AddCreative(ctx context.Context, campaignID uuid.UUID, input AddCreativeInput) (*campaign.Creative, error) {
	cr, err := campaign.NewCreative(campaignID, input.Name, input.Format, input.Dimensions, input.ClickURL, input.Snippet)
	if err != nil {
		return nil, err
	}

	release, err := s.commits.LockContext(ctx, campaignID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := c.AttachCreative(cr.ID); err != nil {
		return nil, err
	}
	if err := s.creatives.Save(ctx, cr); err != nil {
		return nil, err
	}
	if err := s.campaigns.Save(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, c)
	s.publishCreative(ctx, cr)
	return cr, nil
}

// GetCreative finds a creative and verifies campaign ownership
func (s *Service) GetCreative(ctx context.Context, campaignID, creativeID uuid.UUID) (*campaign.Creative, error) {
	cr, err := s.creatives.FindByID(ctx, creativeID)
	if err != nil {
		return nil, err
	}
	if cr.CampaignID != campaignID {
		return nil, campaign.ErrCreativeNotOwned
	}
	return cr, nil
}

// ListCreatives returns the creatives owned by a campaign
func (s *Service) ListCreatives(ctx context.Context, campaignID uuid.UUID) ([]campaign.Creative, error) {
	if _, err := s.campaigns.FindByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.creatives.FindByCampaign(ctx, campaignID)
}

// SetCreativeStatus transitions a creative's processing status
func (s *Service) SetCreativeStatus(ctx context.Context, campaignID, creativeID uuid.UUID, status campaign.CreativeStatus) (*campaign.Creative, error) {
	cr, err := s.GetCreative(ctx, campaignID, creativeID)
	if err != nil {
		return nil, err
	}
	if err := cr.SetStatus(status); err != nil {
		return nil, err
	}

	release, err := s.commits.LockContext(ctx, campaignID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.creatives.Save(ctx, cr); err != nil {
		return nil, err
	}
	s.publishCreative(ctx, cr)
	return cr, nil
}

// ProcessCreative transforms a creative's snippet for the execution
// platform and activates it. A transform failure is persisted too: the
// creative lands in failed status with the report explaining why.
func (s *Service) ProcessCreative(ctx context.Context, campaignID, creativeID uuid.UUID, phase campaign.ViewabilityPhase) (*campaign.Creative, error) {
	cr, err := s.GetCreative(ctx, campaignID, creativeID)
	if err != nil {
		return nil, err
	}

	processErr := cr.Process(phase)

	release, err := s.commits.LockContext(ctx, campaignID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.creatives.Save(ctx, cr); err != nil {
		return nil, err
	}
	s.publishCreative(ctx, cr)

	if processErr != nil {
		s.logger.Warn("creative processing failed",
			zap.String("creative_id", cr.ID.String()),
			zap.Error(processErr))
		return nil, processErr
	}
	return cr, nil
}

// mutate loads a campaign, applies fn, and commits under the campaign lock
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*campaign.Campaign) error) (*campaign.Campaign, error) {
	release, err := s.commits.LockContext(ctx, id.String())
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.campaigns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.campaigns.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, c)
	return c, nil
}

// commit saves a new campaign under the campaign lock
func (s *Service) commit(ctx context.Context, c *campaign.Campaign) error {
	release, err := s.commits.LockContext(ctx, c.ID.String())
	if err != nil {
		return err
	}
	defer release()

	if err := s.campaigns.Save(ctx, c); err != nil {
		return err
	}
	s.publish(ctx, c)
	return nil
}

func (s *Service) publish(ctx context.Context, c *campaign.Campaign) {
	events := c.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish campaign events",
			zap.String("campaign_id", c.ID.String()),
			zap.Error(err))
	}
	c.ClearDomainEvents()
}

func (s *Service) publishCreative(ctx context.Context, cr *campaign.Creative) {
	events := cr.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish creative events",
			zap.String("creative_id", cr.ID.String()),
			zap.Error(err))
	}
	cr.ClearDomainEvents()
}
