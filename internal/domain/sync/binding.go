package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/adsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Binding links a local campaign to its remote counterpart
// ---------------------------------------------------------------------------

// Binding links a local campaign to its counterpart on one external platform.
// A binding is created only after the first successful push confirms the
// remote entity exists; a campaign never holds more than one binding per
// platform.
type Binding struct {
	shared.BaseEntity
	CampaignID    uuid.UUID    `json:"campaign_id"`
	Platform      PlatformCode `json:"platform"`
	RemoteID      string       `json:"remote_id"`
	RemoteVersion string       `json:"remote_version"`
	LastSyncedAt  *time.Time   `json:"last_synced_at,omitempty"`
}

// NewBinding creates a binding after a confirmed remote push
func NewBinding(campaignID uuid.UUID, platform PlatformCode, remoteID, remoteVersion string) (*Binding, error) {
	if campaignID == uuid.Nil {
		return nil, Invalid("campaign_id", "campaign id is required")
	}
	if !platform.IsValid() {
		return nil, ErrUnknownPlatform
	}
	if remoteID == "" {
		return nil, Invalid("remote_id", "remote id is required")
	}

	now := time.Now()
	return &Binding{
		BaseEntity:    shared.NewBaseEntity(),
		CampaignID:    campaignID,
		Platform:      platform,
		RemoteID:      remoteID,
		RemoteVersion: remoteVersion,
		LastSyncedAt:  &now,
	}, nil
}

// Touch records a successful exchange with the remote platform and
// advances the tracked remote version
func (b *Binding) Touch(remoteVersion string) {
	now := time.Now()
	if remoteVersion != "" {
		b.RemoteVersion = remoteVersion
	}
	b.LastSyncedAt = &now
	b.UpdatedAt = now
}
