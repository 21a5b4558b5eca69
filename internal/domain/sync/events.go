package sync

import (
	"github.com/adsync/backend/internal/domain/shared"
)

// EventTypeSyncCompleted is emitted when a sync job reaches a terminal state
const EventTypeSyncCompleted = "integration.sync.completed"

// SyncCompletedEvent is emitted when a sync job reaches a terminal state,
// whatever the outcome
type SyncCompletedEvent struct {
	shared.BaseDomainEvent
	CampaignID string `json:"campaign_id"`
	Platform   string `json:"platform"`
	Direction  string `json:"direction"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
}

// NewSyncCompletedEvent creates a sync completed event
func NewSyncCompletedEvent(j *Job) *SyncCompletedEvent {
	return &SyncCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncCompleted, "SyncJob", j.ID),
		CampaignID:      j.CampaignID.String(),
		Platform:        j.Platform.String(),
		Direction:       j.Direction.String(),
		State:           j.State.String(),
		Reason:          string(j.Reason),
	}
}
