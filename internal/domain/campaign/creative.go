package campaign

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/adsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Creative Errors
// ---------------------------------------------------------------------------

var (
	ErrCreativeNotFound      = errors.New("campaign: creative not found")
	ErrCreativeInvalidName   = errors.New("campaign: creative name cannot be empty")
	ErrCreativeInvalidFormat = errors.New("campaign: invalid creative format")
	ErrCreativeInvalidStatus = errors.New("campaign: invalid creative status")
	ErrCreativeNoCampaign    = errors.New("campaign: creative requires an owning campaign")
)

// ---------------------------------------------------------------------------
// Format represents the creative media format
// ---------------------------------------------------------------------------

// Format represents the creative media format
type Format string

const (
	// FormatDisplay is a static or rich-media display unit
	FormatDisplay Format = "display"
	// FormatVideo is an in-stream or out-stream video unit
	FormatVideo Format = "video"
	// FormatAudio is a streaming audio unit
	FormatAudio Format = "audio"
)

// IsValid returns true if the format is valid
func (f Format) IsValid() bool {
	switch f {
	case FormatDisplay, FormatVideo, FormatAudio:
		return true
	default:
		return false
	}
}

// String returns the string representation of Format
func (f Format) String() string {
	return string(f)
}

// ---------------------------------------------------------------------------
// CreativeStatus represents the processing status of a creative
// ---------------------------------------------------------------------------

// CreativeStatus represents the processing status of a creative
type CreativeStatus string

const (
	// CreativeStatusUploaded indicates the asset has been received
	CreativeStatusUploaded CreativeStatus = "uploaded"
	// CreativeStatusProcessing indicates the asset is being transcoded/tagged
	CreativeStatusProcessing CreativeStatus = "processing"
	// CreativeStatusActive indicates the creative is eligible to serve
	CreativeStatusActive CreativeStatus = "active"
	// CreativeStatusPaused indicates serving is suspended
	CreativeStatusPaused CreativeStatus = "paused"
	// CreativeStatusReview indicates the creative awaits policy review
	CreativeStatusReview CreativeStatus = "review"
	// CreativeStatusFailed indicates processing failed
	CreativeStatusFailed CreativeStatus = "failed"
)

// IsValid returns true if the status is valid
func (s CreativeStatus) IsValid() bool {
	switch s {
	case CreativeStatusUploaded, CreativeStatusProcessing, CreativeStatusActive,
		CreativeStatusPaused, CreativeStatusReview, CreativeStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of CreativeStatus
func (s CreativeStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// PerformanceSnapshot
// ---------------------------------------------------------------------------

// PerformanceSnapshot holds delivery metrics pulled from the execution
// platform. The snapshot is derived data, never authoritative.
type PerformanceSnapshot struct {
	Impressions int64      `json:"impressions"`
	Clicks      int64      `json:"clicks"`
	Conversions int64      `json:"conversions"`
	PulledAt    *time.Time `json:"pulled_at,omitempty"`
}

// CTR returns the click-through rate as a fraction, or 0 without impressions
func (p PerformanceSnapshot) CTR() float64 {
	if p.Impressions == 0 {
		return 0
	}
	return float64(p.Clicks) / float64(p.Impressions)
}

// ---------------------------------------------------------------------------
// Creative Aggregate
// ---------------------------------------------------------------------------

// ProcessingReport records what snippet processing did to a creative
type ProcessingReport struct {
	Phase        ViewabilityPhase `json:"phase"`
	CreativeType string           `json:"creative_type,omitempty"`
	TagsRemoved  []string         `json:"tags_removed,omitempty"`
	TagsAdded    []string         `json:"tags_added,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	ProcessedAt  time.Time        `json:"processed_at"`
	Error        string           `json:"error,omitempty"`
}

// Creative is an ad asset owned exclusively by one campaign; it cannot
// outlive its campaign.
type Creative struct {
	shared.BaseAggregateRoot
	CampaignID uuid.UUID      `json:"campaign_id"`
	Name       string         `json:"name"`
	Format     Format         `json:"format"`
	Status     CreativeStatus `json:"status"`
	Dimensions string         `json:"dimensions"`
	ClickURL   string         `json:"click_url"`
	// Snippet is the ad markup as received from the campaign source
	Snippet string `json:"snippet,omitempty"`
	// ProcessedSnippet is the markup after transformation for the
	// execution platform; empty until processing succeeds
	ProcessedSnippet string              `json:"processed_snippet,omitempty"`
	Processing       *ProcessingReport   `json:"processing,omitempty"`
	Performance      PerformanceSnapshot `json:"performance"`
}

// NewCreative creates a new creative in uploaded status
func NewCreative(campaignID uuid.UUID, name string, format Format, dimensions, clickURL, snippet string) (*Creative, error) {
	if campaignID == uuid.Nil {
		return nil, ErrCreativeNoCampaign
	}
	if name == "" {
		return nil, ErrCreativeInvalidName
	}
	if !format.IsValid() {
		return nil, ErrCreativeInvalidFormat
	}

	return &Creative{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CampaignID:        campaignID,
		Name:              name,
		Format:            format,
		Status:            CreativeStatusUploaded,
		Dimensions:        dimensions,
		ClickURL:          clickURL,
		Snippet:           snippet,
	}, nil
}

// SetStatus transitions the processing status
func (cr *Creative) SetStatus(status CreativeStatus) error {
	if !status.IsValid() {
		return ErrCreativeInvalidStatus
	}
	cr.Status = status
	cr.touch()
	if status == CreativeStatusActive {
		cr.AddDomainEvent(NewCreativeProcessedEvent(cr))
	}
	return nil
}

// Process transforms the snippet for the execution platform and drives the
// creative from processing to active, or to failed when the snippet cannot
// be transformed. A failed creative keeps the report explaining why.
func (cr *Creative) Process(phase ViewabilityPhase) error {
	if phase == "" {
		phase = ViewabilityDVOnly
	}
	cr.Status = CreativeStatusProcessing
	now := time.Now()

	result, err := TransformSnippet(cr.Snippet, phase, now)
	if err != nil {
		cr.Status = CreativeStatusFailed
		cr.Processing = &ProcessingReport{
			Phase:       phase,
			ProcessedAt: now,
			Error:       err.Error(),
		}
		cr.touch()
		return err
	}

	cr.ProcessedSnippet = result.Code
	cr.Processing = &ProcessingReport{
		Phase:        phase,
		CreativeType: AmazonCreativeType(cr.Format),
		TagsRemoved:  result.TagsRemoved,
		TagsAdded:    result.TagsAdded,
		Warnings:     result.Warnings,
		ProcessedAt:  now,
	}
	return cr.SetStatus(CreativeStatusActive)
}

// RecordPerformance replaces the derived performance snapshot with the
// values reported by a confirmed performance pull
func (cr *Creative) RecordPerformance(impressions, clicks, conversions int64) {
	now := time.Now()
	cr.Performance = PerformanceSnapshot{
		Impressions: impressions,
		Clicks:      clicks,
		Conversions: conversions,
		PulledAt:    &now,
	}
	cr.touch()
}

func (cr *Creative) touch() {
	cr.UpdatedAt = time.Now()
	cr.IncrementVersion()
}
