package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainsync "github.com/adsync/backend/internal/domain/sync"
)

// SyncJobModel is the persistence model for the sync Job aggregate. The
// scope flags and the per-item outcome log are stored as JSONB so the log
// round-trips in planning order.
type SyncJobModel struct {
	AggregateModel
	CampaignID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_jobs_campaign"`
	Platform    string     `gorm:"type:varchar(20);not null"`
	Direction   string     `gorm:"type:varchar(10);not null"`
	State       string     `gorm:"type:varchar(20);not null;index"`
	ScopeJSON   string     `gorm:"type:jsonb;column:scope"`
	ItemsJSON   string     `gorm:"type:jsonb;column:items"`
	Reason      string     `gorm:"type:varchar(40)"`
	Message     string     `gorm:"type:text"`
	StartedAt   *time.Time `gorm:""`
	CompletedAt *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain Job aggregate.
func (m *SyncJobModel) ToDomain() (*domainsync.Job, error) {
	j := &domainsync.Job{
		CampaignID:  m.CampaignID,
		Platform:    domainsync.PlatformCode(m.Platform),
		Direction:   domainsync.Direction(m.Direction),
		State:       domainsync.JobState(m.State),
		Items:       make([]domainsync.Item, 0),
		Reason:      domainsync.Reason(m.Reason),
		Message:     m.Message,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
	m.PopulateAggregateRoot(&j.BaseAggregateRoot)

	if m.ScopeJSON != "" {
		var s domainsync.Scope
		if err := json.Unmarshal([]byte(m.ScopeJSON), &s); err != nil {
			return nil, fmt.Errorf("sync job %s: decode scope: %w", m.ID, err)
		}
		j.Scope = s
	}
	if m.ItemsJSON != "" {
		var items []domainsync.Item
		if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err != nil {
			return nil, fmt.Errorf("sync job %s: decode items: %w", m.ID, err)
		}
		j.Items = items
	}

	return j, nil
}

// FromDomain populates the persistence model from a domain Job aggregate.
func (m *SyncJobModel) FromDomain(j *domainsync.Job) {
	m.FromDomainAggregateRoot(j.BaseAggregateRoot)
	m.CampaignID = j.CampaignID
	m.Platform = j.Platform.String()
	m.Direction = j.Direction.String()
	m.State = j.State.String()
	m.Reason = string(j.Reason)
	m.Message = j.Message
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt

	if jsonBytes, err := json.Marshal(j.Scope); err == nil {
		m.ScopeJSON = string(jsonBytes)
	}
	if len(j.Items) > 0 {
		if jsonBytes, err := json.Marshal(j.Items); err == nil {
			m.ItemsJSON = string(jsonBytes)
		}
	} else {
		m.ItemsJSON = "[]"
	}
}

// SyncJobModelFromDomain creates a new persistence model from a domain Job.
func SyncJobModelFromDomain(j *domainsync.Job) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}

// BindingModel is the persistence model for platform bindings. The unique
// index enforces at most one binding per (campaign, platform) pair.
type BindingModel struct {
	BaseModel
	CampaignID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_bindings_campaign_platform"`
	Platform      string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_bindings_campaign_platform"`
	RemoteID      string     `gorm:"type:varchar(100);not null;index"`
	RemoteVersion string     `gorm:"type:varchar(100)"`
	LastSyncedAt  *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (BindingModel) TableName() string {
	return "platform_bindings"
}

// ToDomain converts the persistence model to a domain Binding.
func (m *BindingModel) ToDomain() *domainsync.Binding {
	return &domainsync.Binding{
		BaseEntity:    m.BaseModel.ToDomain(),
		CampaignID:    m.CampaignID,
		Platform:      domainsync.PlatformCode(m.Platform),
		RemoteID:      m.RemoteID,
		RemoteVersion: m.RemoteVersion,
		LastSyncedAt:  m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Binding.
func (m *BindingModel) FromDomain(b *domainsync.Binding) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.CampaignID = b.CampaignID
	m.Platform = b.Platform.String()
	m.RemoteID = b.RemoteID
	m.RemoteVersion = b.RemoteVersion
	m.LastSyncedAt = b.LastSyncedAt
}

// BindingModelFromDomain creates a new persistence model from a domain Binding.
func BindingModelFromDomain(b *domainsync.Binding) *BindingModel {
	m := &BindingModel{}
	m.FromDomain(b)
	return m
}
