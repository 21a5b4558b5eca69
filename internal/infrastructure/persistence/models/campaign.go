package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adsync/backend/internal/domain/campaign"
)

// CampaignModel is the persistence model for the Campaign aggregate.
// Targeting and creative references are stored as JSONB documents; budget
// figures are numeric columns so reporting queries can aggregate them.
type CampaignModel struct {
	AggregateModel
	Name            string          `gorm:"type:varchar(255);not null;index"`
	AdvertiserID    string          `gorm:"type:varchar(100);not null;index"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	Phase           string          `gorm:"type:varchar(20);not null"`
	BudgetTotal     decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	BudgetSpent     decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	OverDelivered   bool            `gorm:"not null;default:false"`
	StartDate       time.Time       `gorm:"not null"`
	EndDate         time.Time       `gorm:"not null"`
	TargetingJSON   string          `gorm:"type:jsonb;column:targeting"`
	CreativeIDsJSON string          `gorm:"type:jsonb;column:creative_ids"`
}

// TableName returns the table name for GORM
func (CampaignModel) TableName() string {
	return "campaigns"
}

// ToDomain converts the persistence model to a domain Campaign aggregate.
// A row whose JSONB documents fail to decode is surfaced as an error
// rather than silently losing targeting or creative references.
func (m *CampaignModel) ToDomain() (*campaign.Campaign, error) {
	c := &campaign.Campaign{
		Name:         m.Name,
		AdvertiserID: m.AdvertiserID,
		Status:       campaign.Status(m.Status),
		Phase:        campaign.Phase(m.Phase),
		Budget: campaign.Budget{
			Total:         m.BudgetTotal,
			Spent:         m.BudgetSpent,
			OverDelivered: m.OverDelivered,
		},
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		CreativeIDs: make([]uuid.UUID, 0),
	}
	m.PopulateAggregateRoot(&c.BaseAggregateRoot)

	if m.TargetingJSON != "" {
		var t campaign.Targeting
		if err := json.Unmarshal([]byte(m.TargetingJSON), &t); err != nil {
			return nil, fmt.Errorf("campaign %s: decode targeting: %w", m.ID, err)
		}
		c.Targeting = t
	}
	if m.CreativeIDsJSON != "" {
		var ids []uuid.UUID
		if err := json.Unmarshal([]byte(m.CreativeIDsJSON), &ids); err != nil {
			return nil, fmt.Errorf("campaign %s: decode creative ids: %w", m.ID, err)
		}
		c.CreativeIDs = ids
	}

	return c, nil
}

// FromDomain populates the persistence model from a domain Campaign aggregate.
func (m *CampaignModel) FromDomain(c *campaign.Campaign) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.AdvertiserID = c.AdvertiserID
	m.Status = c.Status.String()
	m.Phase = c.Phase.String()
	m.BudgetTotal = c.Budget.Total
	m.BudgetSpent = c.Budget.Spent
	m.OverDelivered = c.Budget.OverDelivered
	m.StartDate = c.StartDate
	m.EndDate = c.EndDate

	if jsonBytes, err := json.Marshal(c.Targeting); err == nil {
		m.TargetingJSON = string(jsonBytes)
	}
	if len(c.CreativeIDs) > 0 {
		if jsonBytes, err := json.Marshal(c.CreativeIDs); err == nil {
			m.CreativeIDsJSON = string(jsonBytes)
		}
	} else {
		m.CreativeIDsJSON = "[]"
	}
}

// CampaignModelFromDomain creates a new persistence model from a domain Campaign.
func CampaignModelFromDomain(c *campaign.Campaign) *CampaignModel {
	m := &CampaignModel{}
	m.FromDomain(c)
	return m
}

// CreativeModel is the persistence model for the Creative aggregate.
type CreativeModel struct {
	AggregateModel
	CampaignID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_creatives_campaign"`
	Name             string     `gorm:"type:varchar(255);not null"`
	Format           string     `gorm:"type:varchar(20);not null"`
	Status           string     `gorm:"type:varchar(20);not null;index"`
	Dimensions       string     `gorm:"type:varchar(50)"`
	ClickURL         string     `gorm:"type:text"`
	Snippet          string     `gorm:"type:text"`
	ProcessedSnippet string     `gorm:"type:text"`
	ProcessingJSON   string     `gorm:"type:jsonb;column:processing"`
	Impressions      int64      `gorm:"not null;default:0"`
	Clicks           int64      `gorm:"not null;default:0"`
	Conversions      int64      `gorm:"not null;default:0"`
	PulledAt         *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (CreativeModel) TableName() string {
	return "creatives"
}

// ToDomain converts the persistence model to a domain Creative aggregate.
func (m *CreativeModel) ToDomain() (*campaign.Creative, error) {
	cr := &campaign.Creative{
		CampaignID:       m.CampaignID,
		Name:             m.Name,
		Format:           campaign.Format(m.Format),
		Status:           campaign.CreativeStatus(m.Status),
		Dimensions:       m.Dimensions,
		ClickURL:         m.ClickURL,
		Snippet:          m.Snippet,
		ProcessedSnippet: m.ProcessedSnippet,
		Performance: campaign.PerformanceSnapshot{
			Impressions: m.Impressions,
			Clicks:      m.Clicks,
			Conversions: m.Conversions,
			PulledAt:    m.PulledAt,
		},
	}
	m.PopulateAggregateRoot(&cr.BaseAggregateRoot)

	if m.ProcessingJSON != "" {
		var report campaign.ProcessingReport
		if err := json.Unmarshal([]byte(m.ProcessingJSON), &report); err != nil {
			return nil, fmt.Errorf("creative %s: decode processing report: %w", m.ID, err)
		}
		cr.Processing = &report
	}
	return cr, nil
}

// FromDomain populates the persistence model from a domain Creative aggregate.
func (m *CreativeModel) FromDomain(cr *campaign.Creative) {
	m.FromDomainAggregateRoot(cr.BaseAggregateRoot)
	m.CampaignID = cr.CampaignID
	m.Name = cr.Name
	m.Format = cr.Format.String()
	m.Status = cr.Status.String()
	m.Dimensions = cr.Dimensions
	m.ClickURL = cr.ClickURL
	m.Snippet = cr.Snippet
	m.ProcessedSnippet = cr.ProcessedSnippet

	if cr.Processing != nil {
		if jsonBytes, err := json.Marshal(cr.Processing); err == nil {
			m.ProcessingJSON = string(jsonBytes)
		}
	} else {
		m.ProcessingJSON = ""
	}

	m.Impressions = cr.Performance.Impressions
	m.Clicks = cr.Performance.Clicks
	m.Conversions = cr.Performance.Conversions
	m.PulledAt = cr.Performance.PulledAt
}

// CreativeModelFromDomain creates a new persistence model from a domain Creative.
func CreativeModelFromDomain(cr *campaign.Creative) *CreativeModel {
	m := &CreativeModel{}
	m.FromDomain(cr)
	return m
}
