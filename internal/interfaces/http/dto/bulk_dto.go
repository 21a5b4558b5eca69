package dto

import (
	"github.com/google/uuid"

	bulkapp "github.com/adsync/backend/internal/application/bulk"
)

// GenerateSheetRequest is the payload for generating a bulk sheet
type GenerateSheetRequest struct {
	CampaignIDs      []string `json:"campaign_ids" binding:"required,min=1,dive,uuid"`
	IncludeCreatives bool     `json:"include_creatives"`
}

// ParseCampaignIDs converts the string IDs into UUIDs
func (r *GenerateSheetRequest) ParseCampaignIDs() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.CampaignIDs))
	for _, raw := range r.CampaignIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Options returns the generation options
func (r *GenerateSheetRequest) Options() bulkapp.GenerateOptions {
	return bulkapp.GenerateOptions{IncludeCreatives: r.IncludeCreatives}
}

// IngestSheetQuery carries the ingest mode flags
type IngestSheetQuery struct {
	ValidateOnly bool `form:"validate_only"`
}

// ArtifactURLResponse wraps a presigned artifact download URL
type ArtifactURLResponse struct {
	URL string `json:"url"`
}
