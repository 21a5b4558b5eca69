package dto

import (
	"time"

	"github.com/shopspring/decimal"

	campaignapp "github.com/adsync/backend/internal/application/campaign"
	"github.com/adsync/backend/internal/domain/campaign"
)

// TargetingRequest carries targeting intent in API form
type TargetingRequest struct {
	Geo                  []string `json:"geo"`
	DeviceTypes          []string `json:"device_types"`
	Audiences            []string `json:"audiences"`
	Keywords             []string `json:"keywords"`
	SupplySources        []string `json:"supply_sources"`
	ViewabilityThreshold float64  `json:"viewability_threshold" binding:"omitempty,min=0,max=100"`
	BrandSafetyLevel     string   `json:"brand_safety_level" binding:"omitempty,oneof=low medium high"`
}

// ToDomain converts the request into a domain targeting value
func (t *TargetingRequest) ToDomain() campaign.Targeting {
	return campaign.Targeting{
		Geo:                  t.Geo,
		DeviceTypes:          t.DeviceTypes,
		Audiences:            t.Audiences,
		Keywords:             t.Keywords,
		SupplySources:        t.SupplySources,
		ViewabilityThreshold: t.ViewabilityThreshold,
		BrandSafetyLevel:     t.BrandSafetyLevel,
	}
}

// CreateCampaignRequest is the payload for creating a campaign
type CreateCampaignRequest struct {
	Name         string            `json:"name" binding:"required,max=255"`
	AdvertiserID string            `json:"advertiser_id" binding:"max=255"`
	Phase        string            `json:"phase" binding:"required,oneof=awareness consideration conversion"`
	BudgetTotal  decimal.Decimal   `json:"budget_total" binding:"required"`
	StartDate    time.Time         `json:"start_date" binding:"required"`
	EndDate      time.Time         `json:"end_date" binding:"required"`
	Targeting    *TargetingRequest `json:"targeting"`
}

// ToInput converts the request into the application input
func (r *CreateCampaignRequest) ToInput() campaignapp.CreateCampaignInput {
	input := campaignapp.CreateCampaignInput{
		Name:         r.Name,
		AdvertiserID: r.AdvertiserID,
		Phase:        campaign.Phase(r.Phase),
		BudgetTotal:  r.BudgetTotal,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
	}
	if r.Targeting != nil {
		t := r.Targeting.ToDomain()
		input.Targeting = &t
	}
	return input
}

// UpdateCampaignRequest is the payload for updating campaign intent fields
type UpdateCampaignRequest struct {
	Name        string           `json:"name" binding:"required,max=255"`
	BudgetTotal decimal.Decimal  `json:"budget_total" binding:"required"`
	StartDate   time.Time        `json:"start_date" binding:"required"`
	EndDate     time.Time        `json:"end_date" binding:"required"`
	Targeting   TargetingRequest `json:"targeting" binding:"required"`
}

// ToInput converts the request into the application input
func (r *UpdateCampaignRequest) ToInput() campaignapp.UpdateCampaignInput {
	return campaignapp.UpdateCampaignInput{
		Name:        r.Name,
		BudgetTotal: r.BudgetTotal,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Targeting:   r.Targeting.ToDomain(),
	}
}

// CreateCreativeRequest is the payload for attaching a creative
type CreateCreativeRequest struct {
	Name       string `json:"name" binding:"required,max=255"`
	Format     string `json:"format" binding:"required,oneof=display video audio"`
	Dimensions string `json:"dimensions" binding:"max=64"`
	ClickURL   string `json:"click_url" binding:"omitempty,url"`
	Snippet    string `json:"snippet"`
}

// ToInput converts the request into the application input
func (r *CreateCreativeRequest) ToInput() campaignapp.AddCreativeInput {
	return campaignapp.AddCreativeInput{
		Name:       r.Name,
		Format:     campaign.Format(r.Format),
		Dimensions: r.Dimensions,
		ClickURL:   r.ClickURL,
		Snippet:    r.Snippet,
	}
}

// SetCreativeStatusRequest is the payload for a creative status transition
type SetCreativeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=uploaded processing active paused review failed"`
}

// ProcessCreativeRequest selects the viewability phase for snippet
// processing; an empty phase defaults to DV-only measurement
type ProcessCreativeRequest struct {
	ViewabilityPhase string `json:"viewability_phase" binding:"omitempty,oneof=dv_only dual_vendor"`
}
