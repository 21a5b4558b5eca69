package campaign

import (
	"github.com/adsync/backend/internal/domain/shared"
)

// Event types emitted by the campaign aggregate. These names are part of the
// externally fixed webhook vocabulary.
const (
	EventTypeCampaignCreated   = "campaign.created"
	EventTypeCampaignUpdated   = "campaign.updated"
	EventTypeCampaignDeleted   = "campaign.deleted"
	EventTypeCreativeProcessed = "creative.processed"
)

// CampaignCreatedEvent is emitted when a campaign is created
type CampaignCreatedEvent struct {
	shared.BaseDomainEvent
	Name   string `json:"name"`
	Status string `json:"status"`
	Phase  string `json:"phase"`
}

// NewCampaignCreatedEvent creates a campaign created event
func NewCampaignCreatedEvent(c *Campaign) *CampaignCreatedEvent {
	return &CampaignCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignCreated, "Campaign", c.ID),
		Name:            c.Name,
		Status:          c.Status.String(),
		Phase:           c.Phase.String(),
	}
}

// CampaignUpdatedEvent is emitted when campaign intent fields or lifecycle change
type CampaignUpdatedEvent struct {
	shared.BaseDomainEvent
	Name   string `json:"name"`
	Status string `json:"status"`
}

// NewCampaignUpdatedEvent creates a campaign updated event
func NewCampaignUpdatedEvent(c *Campaign) *CampaignUpdatedEvent {
	return &CampaignUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignUpdated, "Campaign", c.ID),
		Name:            c.Name,
		Status:          c.Status.String(),
	}
}

// CampaignDeletedEvent is emitted when a campaign is archived
type CampaignDeletedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewCampaignDeletedEvent creates a campaign deleted event
func NewCampaignDeletedEvent(c *Campaign) *CampaignDeletedEvent {
	return &CampaignDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignDeleted, "Campaign", c.ID),
		Name:            c.Name,
	}
}

// CreativeProcessedEvent is emitted when a creative finishes processing
type CreativeProcessedEvent struct {
	shared.BaseDomainEvent
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
	Format     string `json:"format"`
}

// NewCreativeProcessedEvent creates a creative processed event
func NewCreativeProcessedEvent(cr *Creative) *CreativeProcessedEvent {
	return &CreativeProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreativeProcessed, "Creative", cr.ID),
		CampaignID:      cr.CampaignID.String(),
		Name:            cr.Name,
		Format:          cr.Format.String(),
	}
}
