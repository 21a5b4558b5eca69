package dto

import (
	"github.com/google/uuid"

	syncapp "github.com/adsync/backend/internal/application/sync"
	domainsync "github.com/adsync/backend/internal/domain/sync"
)

// ScopeRequest selects the campaign parts a push transfers
type ScopeRequest struct {
	Creatives bool `json:"creatives"`
	Targeting bool `json:"targeting"`
	Budget    bool `json:"budget"`
}

// SubmitSyncRequest is the payload for submitting a sync job
type SubmitSyncRequest struct {
	Platform    string        `json:"platform" binding:"required"`
	Direction   string        `json:"direction" binding:"required,oneof=push pull"`
	Scope       *ScopeRequest `json:"scope"`
	CreativeIDs []string      `json:"creative_ids" binding:"omitempty,dive,uuid"`
}

// ToInput converts the request into the orchestrator input. A missing
// scope defaults to a full push.
func (r *SubmitSyncRequest) ToInput(campaignID uuid.UUID) (syncapp.SubmitInput, error) {
	scope := domainsync.FullScope()
	if r.Scope != nil {
		scope = domainsync.Scope{
			Creatives: r.Scope.Creatives,
			Targeting: r.Scope.Targeting,
			Budget:    r.Scope.Budget,
		}
	}

	creativeIDs := make([]uuid.UUID, 0, len(r.CreativeIDs))
	for _, raw := range r.CreativeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return syncapp.SubmitInput{}, err
		}
		creativeIDs = append(creativeIDs, id)
	}

	return syncapp.SubmitInput{
		CampaignID:  campaignID,
		Platform:    domainsync.PlatformCode(r.Platform),
		Direction:   domainsync.Direction(r.Direction),
		Scope:       scope,
		CreativeIDs: creativeIDs,
	}, nil
}
