package campaign

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Campaign Errors
// ---------------------------------------------------------------------------

var (
	ErrCampaignNotFound        = errors.New("campaign: campaign not found")
	ErrCampaignInvalidName     = errors.New("campaign: name cannot be empty")
	ErrCampaignInvalidBudget   = errors.New("campaign: total budget must be positive")
	ErrCampaignInvalidDates    = errors.New("campaign: end date must not be before start date")
	ErrCampaignInvalidStatus   = errors.New("campaign: invalid status")
	ErrCampaignInvalidPhase    = errors.New("campaign: invalid phase")
	ErrCampaignNotActive       = errors.New("campaign: campaign is not active")
	ErrCampaignTerminal        = errors.New("campaign: campaign is in a terminal state")
	ErrCampaignHasSpend        = errors.New("campaign: campaign with recorded spend can only be archived")
	ErrSpendDecreased          = errors.New("campaign: spend cannot decrease")
	ErrCreativeNotOwned        = errors.New("campaign: creative does not belong to this campaign")
	ErrCreativeAlreadyAttached = errors.New("campaign: creative already attached")
)

// ---------------------------------------------------------------------------
// Status represents the campaign lifecycle status
// ---------------------------------------------------------------------------

// Status represents the campaign lifecycle status
type Status string

const (
	// StatusDraft indicates the campaign has been created but not launched
	StatusDraft Status = "draft"
	// StatusActive indicates the campaign is delivering
	StatusActive Status = "active"
	// StatusPaused indicates delivery is temporarily suspended
	StatusPaused Status = "paused"
	// StatusCompleted indicates the campaign finished its flight
	StatusCompleted Status = "completed"
	// StatusArchived indicates the campaign is retired and read-only
	StatusArchived Status = "archived"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status permits no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusArchived
}

// ---------------------------------------------------------------------------
// Phase represents the funnel phase a campaign targets
// ---------------------------------------------------------------------------

// Phase represents the funnel phase a campaign targets
type Phase string

const (
	// PhaseAwareness targets upper-funnel reach
	PhaseAwareness Phase = "awareness"
	// PhaseConsideration targets mid-funnel engagement
	PhaseConsideration Phase = "consideration"
	// PhaseConversion targets lower-funnel action
	PhaseConversion Phase = "conversion"
)

// IsValid returns true if the phase is valid
func (p Phase) IsValid() bool {
	switch p {
	case PhaseAwareness, PhaseConsideration, PhaseConversion:
		return true
	default:
		return false
	}
}

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// Budget holds the campaign budget ceiling and the delivery spend reported
// by the execution platform. Spent is derived from performance pulls and is
// never written by a sync push.
type Budget struct {
	// Total is the budget ceiling (intent, owned by the campaign source)
	Total decimal.Decimal `json:"total"`
	// Spent is the delivered spend (fact, owned by the execution platform)
	Spent decimal.Decimal `json:"spent"`
	// OverDelivered is set when a confirmed performance pull reports
	// spend exceeding the ceiling
	OverDelivered bool `json:"over_delivered"`
}

// Remaining returns the unspent budget (never negative)
func (b Budget) Remaining() decimal.Decimal {
	remaining := b.Total.Sub(b.Spent)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Targeting describes the targeting intent for a campaign
type Targeting struct {
	// Geo contains geographic targeting codes (e.g., "US")
	Geo []string `json:"geo"`
	// DeviceTypes contains device targeting (mobile, desktop, tablet)
	DeviceTypes []string `json:"device_types"`
	// Audiences contains audience segment identifiers
	Audiences []string `json:"audiences"`
	// Keywords contains keyword targeting terms
	Keywords []string `json:"keywords"`
	// SupplySources restricts inventory sources
	SupplySources []string `json:"supply_sources"`
	// ViewabilityThreshold is the minimum viewability percentage (0-100)
	ViewabilityThreshold float64 `json:"viewability_threshold"`
	// BrandSafetyLevel is the brand safety tier (low, medium, high)
	BrandSafetyLevel string `json:"brand_safety_level"`
}

// DefaultTargeting returns the targeting applied when none is specified
func DefaultTargeting() Targeting {
	return Targeting{
		Geo:                  []string{"US"},
		DeviceTypes:          []string{"mobile", "desktop"},
		SupplySources:        []string{"direct_publishers"},
		ViewabilityThreshold: 70.0,
		BrandSafetyLevel:     "high",
	}
}

// ---------------------------------------------------------------------------
// Campaign Aggregate
// ---------------------------------------------------------------------------

// Campaign is the aggregate root for an advertising campaign. It is the
// local source of truth for intent fields (name, targeting, budget ceiling);
// delivery facts (spend, creative performance) are only written by confirmed
// performance pulls.
type Campaign struct {
	shared.BaseAggregateRoot
	Name         string      `json:"name"`
	AdvertiserID string      `json:"advertiser_id"`
	Status       Status      `json:"status"`
	Phase        Phase       `json:"phase"`
	Budget       Budget      `json:"budget"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	Targeting    Targeting   `json:"targeting"`
	CreativeIDs  []uuid.UUID `json:"creative_ids"`
}

// NewCampaign creates a new campaign in draft status
func NewCampaign(name, advertiserID string, phase Phase, total decimal.Decimal, startDate, endDate time.Time, targeting Targeting) (*Campaign, error) {
	if name == "" {
		return nil, ErrCampaignInvalidName
	}
	if !phase.IsValid() {
		return nil, ErrCampaignInvalidPhase
	}
	if !total.IsPositive() {
		return nil, ErrCampaignInvalidBudget
	}
	if endDate.Before(startDate) {
		return nil, ErrCampaignInvalidDates
	}

	c := &Campaign{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		AdvertiserID:      advertiserID,
		Status:            StatusDraft,
		Phase:             phase,
		Budget:            Budget{Total: total, Spent: decimal.Zero},
		StartDate:         startDate,
		EndDate:           endDate,
		Targeting:         targeting,
		CreativeIDs:       make([]uuid.UUID, 0),
	}
	c.AddDomainEvent(NewCampaignCreatedEvent(c))
	return c, nil
}

// Update changes the intent fields of the campaign. It never touches
// delivery facts.
func (c *Campaign) Update(name string, total decimal.Decimal, startDate, endDate time.Time, targeting Targeting) error {
	if c.Status.IsTerminal() {
		return ErrCampaignTerminal
	}
	if name == "" {
		return ErrCampaignInvalidName
	}
	if !total.IsPositive() {
		return ErrCampaignInvalidBudget
	}
	if endDate.Before(startDate) {
		return ErrCampaignInvalidDates
	}

	c.Name = name
	c.Budget.Total = total
	c.Budget.OverDelivered = c.Budget.Spent.GreaterThan(total)
	c.StartDate = startDate
	c.EndDate = endDate
	c.Targeting = targeting
	c.touch()
	c.AddDomainEvent(NewCampaignUpdatedEvent(c))
	return nil
}

// Activate transitions the campaign to active
func (c *Campaign) Activate() error {
	switch c.Status {
	case StatusDraft, StatusPaused:
		c.Status = StatusActive
		c.touch()
		c.AddDomainEvent(NewCampaignUpdatedEvent(c))
		return nil
	default:
		return shared.NewDomainError("INVALID_STATE", "Cannot activate campaign from state: "+c.Status.String())
	}
}

// Pause suspends delivery of an active campaign
func (c *Campaign) Pause() error {
	if c.Status != StatusActive {
		return ErrCampaignNotActive
	}
	c.Status = StatusPaused
	c.touch()
	c.AddDomainEvent(NewCampaignUpdatedEvent(c))
	return nil
}

// Complete marks the campaign as having finished its flight
func (c *Campaign) Complete() error {
	switch c.Status {
	case StatusActive, StatusPaused:
		c.Status = StatusCompleted
		c.touch()
		c.AddDomainEvent(NewCampaignUpdatedEvent(c))
		return nil
	default:
		return shared.NewDomainError("INVALID_STATE", "Cannot complete campaign from state: "+c.Status.String())
	}
}

// Archive retires the campaign. Campaigns with recorded spend are never
// hard-deleted; archiving is the only removal path for them.
func (c *Campaign) Archive() error {
	if c.Status == StatusArchived {
		return ErrCampaignTerminal
	}
	c.Status = StatusArchived
	c.touch()
	c.AddDomainEvent(NewCampaignDeletedEvent(c))
	return nil
}

// HasSpend returns true if any delivery spend has been recorded
func (c *Campaign) HasSpend() bool {
	return c.Budget.Spent.IsPositive()
}

// RecordSpend records delivered spend from a confirmed performance pull.
// Spend is monotonically non-decreasing; a pull reporting less than the
// current value is rejected. Spend above the ceiling is accepted but flags
// the budget as over-delivered.
func (c *Campaign) RecordSpend(spent decimal.Decimal) error {
	if spent.LessThan(c.Budget.Spent) {
		return ErrSpendDecreased
	}
	c.Budget.Spent = spent
	c.Budget.OverDelivered = spent.GreaterThan(c.Budget.Total)
	c.touch()
	return nil
}

// AttachCreative appends a creative reference, preserving attach order
func (c *Campaign) AttachCreative(creativeID uuid.UUID) error {
	if c.Status.IsTerminal() {
		return ErrCampaignTerminal
	}
	for _, id := range c.CreativeIDs {
		if id == creativeID {
			return ErrCreativeAlreadyAttached
		}
	}
	c.CreativeIDs = append(c.CreativeIDs, creativeID)
	c.touch()
	return nil
}

// OwnsCreative returns true if the creative is attached to this campaign
func (c *Campaign) OwnsCreative(creativeID uuid.UUID) bool {
	for _, id := range c.CreativeIDs {
		if id == creativeID {
			return true
		}
	}
	return false
}

func (c *Campaign) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}
