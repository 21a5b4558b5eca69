package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adsync/backend/internal/domain/campaign"
)

// ---------------------------------------------------------------------------
// PlatformCode represents an external advertising platform
// ---------------------------------------------------------------------------

// PlatformCode represents an external advertising platform
type PlatformCode string

const (
	// PlatformKargo is the campaign owner; authoritative for intent fields
	// (name, targeting, budget ceiling)
	PlatformKargo PlatformCode = "KARGO"
	// PlatformAmazonDSP is the demand-side execution platform; authoritative
	// for delivery facts (spend, impressions, clicks)
	PlatformAmazonDSP PlatformCode = "AMAZON_DSP"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformKargo, PlatformAmazonDSP:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// Normalized adapter results
// ---------------------------------------------------------------------------

// PushResult is the normalized outcome of a successful push
type PushResult struct {
	// RemoteID is the identifier assigned by the remote platform
	RemoteID string
	// RemoteVersion is the remote version/etag after the push
	RemoteVersion string
}

// CreativePerformance is the delivery metrics for one creative
type CreativePerformance struct {
	// CreativeID is our internal creative ID
	CreativeID uuid.UUID
	// RemoteCreativeID is the creative ID on the remote platform
	RemoteCreativeID string
	Impressions      int64
	Clicks           int64
	Conversions      int64
}

// PerformanceReport is the normalized result of a performance pull
type PerformanceReport struct {
	// Spend is the delivered campaign spend reported by the platform
	Spend decimal.Decimal
	// RemoteVersion is the remote version/etag at pull time
	RemoteVersion string
	// Creatives contains per-creative delivery metrics
	Creatives []CreativePerformance
}

// ---------------------------------------------------------------------------
// Adapter Port Interface
// ---------------------------------------------------------------------------

// Adapter translates internal operations into platform-specific calls.
// Implementations return normalized results or errors classified through
// Transient/Permanent wrappers; each adapter owns its own classification
// of what counts as transient for that remote. Adapters never retry —
// retry policy lives in one shared controller.
type Adapter interface {
	// PlatformCode returns the platform this adapter handles
	PlatformCode() PlatformCode

	// PushCampaign creates or updates the campaign shell on the platform
	PushCampaign(ctx context.Context, c *campaign.Campaign, binding *Binding) (*PushResult, error)

	// PushCreative creates or updates one creative on the platform
	PushCreative(ctx context.Context, c *campaign.Campaign, cr *campaign.Creative, binding *Binding) (*PushResult, error)

	// PushTargeting replaces the targeting intent on the platform
	PushTargeting(ctx context.Context, c *campaign.Campaign, binding *Binding) (*PushResult, error)

	// PushBudget replaces the budget ceiling on the platform.
	// It never transmits delivered spend.
	PushBudget(ctx context.Context, c *campaign.Campaign, binding *Binding) (*PushResult, error)

	// PullPerformance retrieves delivery facts from the platform
	PullPerformance(ctx context.Context, c *campaign.Campaign, binding *Binding) (*PerformanceReport, error)
}

// AdapterRegistry provides access to configured platform adapters
type AdapterRegistry interface {
	// GetAdapter returns the adapter for the specified platform code
	GetAdapter(code PlatformCode) (Adapter, error)

	// ListAdapters returns all registered adapters
	ListAdapters() []Adapter
}
