package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// AmazonAdapter implements the sync.Adapter interface for Amazon DSP.
// Campaigns map to DSP orders; creatives and targeting hang off the order.
type AmazonAdapter struct {
	config     *AmazonConfig
	httpClient *http.Client
}

// NewAmazonAdapter creates an Amazon DSP adapter with the given configuration
func NewAmazonAdapter(config *AmazonConfig) (*AmazonAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &AmazonAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *AmazonAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformAmazonDSP
}

// ---------------------------------------------------------------------------
// Push Operations
// ---------------------------------------------------------------------------

// PushCampaign creates or updates the DSP order for the campaign
func (a *AmazonAdapter) PushCampaign(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PushResult, error) {
	payload := AmazonOrderRequest{
		Name:         c.Name,
		AdvertiserID: c.AdvertiserID,
		Goal:         mapPhaseToAmazonGoal(c.Phase),
		StartDate:    c.StartDate.UTC().Format(time.RFC3339),
		EndDate:      c.EndDate.UTC().Format(time.RFC3339),
		Status:       mapStatusToAmazonActivation(c.Status),
	}

	var respBody []byte
	var err error
	if binding == nil {
		respBody, err = a.doRequest(ctx, http.MethodPost, "/dsp/orders", payload)
	} else {
		respBody, err = a.doRequest(ctx, http.MethodPut, "/dsp/orders/"+binding.RemoteID, payload)
	}
	if err != nil {
		return nil, err
	}

	var resp AmazonOrderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("amazon: failed to parse order response: %w", err))
	}
	if resp.OrderID == "" && binding != nil {
		resp.OrderID = binding.RemoteID
	}

	return &sync.PushResult{RemoteID: resp.OrderID, RemoteVersion: resp.Version}, nil
}

// PushCreative registers or updates one creative under the bound order
func (a *AmazonAdapter) PushCreative(ctx context.Context, c *campaign.Campaign, cr *campaign.Creative, binding *sync.Binding) (*sync.PushResult, error) {
	if binding == nil {
		return nil, sync.ErrBindingNotFound
	}

	payload := AmazonCreativeRequest{
		OrderID:    binding.RemoteID,
		Name:       cr.Name,
		Format:     mapFormatToAmazonType(cr.Format),
		Dimensions: cr.Dimensions,
		ClickURL:   cr.ClickURL,
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, "/dsp/orders/"+binding.RemoteID+"/creatives", payload)
	if err != nil {
		return nil, err
	}

	var resp AmazonCreativeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("amazon: failed to parse creative response: %w", err))
	}

	return &sync.PushResult{RemoteID: resp.CreativeID, RemoteVersion: resp.Version}, nil
}

// PushTargeting replaces the order targeting with the campaign intent
func (a *AmazonAdapter) PushTargeting(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PushResult, error) {
	if binding == nil {
		return nil, sync.ErrBindingNotFound
	}

	payload := AmazonTargetingRequest{
		Geo:                  c.Targeting.Geo,
		DeviceTypes:          c.Targeting.DeviceTypes,
		Audiences:            c.Targeting.Audiences,
		SupplySources:        c.Targeting.SupplySources,
		ViewabilityThreshold: c.Targeting.ViewabilityThreshold,
		BrandSafetyLevel:     c.Targeting.BrandSafetyLevel,
	}

	respBody, err := a.doRequest(ctx, http.MethodPut, "/dsp/orders/"+binding.RemoteID+"/targeting", payload)
	if err != nil {
		return nil, err
	}

	var resp AmazonVersionedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("amazon: failed to parse targeting response: %w", err))
	}

	return &sync.PushResult{RemoteID: binding.RemoteID, RemoteVersion: resp.Version}, nil
}

// PushBudget replaces the order budget cap. Delivered spend is owned by
// the platform and never transmitted.
func (a *AmazonAdapter) PushBudget(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PushResult, error) {
	if binding == nil {
		return nil, sync.ErrBindingNotFound
	}

	payload := AmazonBudgetRequest{
		BudgetCap: c.Budget.Total.StringFixed(2),
		Currency:  "USD",
	}

	respBody, err := a.doRequest(ctx, http.MethodPut, "/dsp/orders/"+binding.RemoteID+"/budget", payload)
	if err != nil {
		return nil, err
	}

	var resp AmazonVersionedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("amazon: failed to parse budget response: %w", err))
	}

	return &sync.PushResult{RemoteID: binding.RemoteID, RemoteVersion: resp.Version}, nil
}

// ---------------------------------------------------------------------------
// Pull Operations
// ---------------------------------------------------------------------------

// PullPerformance retrieves delivery facts for the bound order
func (a *AmazonAdapter) PullPerformance(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PerformanceReport, error) {
	if binding == nil {
		return nil, sync.ErrBindingNotFound
	}

	respBody, err := a.doRequest(ctx, http.MethodGet, "/dsp/orders/"+binding.RemoteID+"/report", nil)
	if err != nil {
		return nil, err
	}

	var resp AmazonReportResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("amazon: failed to parse report response: %w", err))
	}

	spend, err := decimal.NewFromString(resp.TotalCost)
	if err != nil {
		return nil, sync.Permanent("INVALID_REPORT", fmt.Errorf("amazon: unparseable total cost %q", resp.TotalCost))
	}

	report := &sync.PerformanceReport{
		Spend:         spend,
		RemoteVersion: resp.Version,
		Creatives:     make([]sync.CreativePerformance, 0, len(resp.Creatives)),
	}
	for _, stats := range resp.Creatives {
		perf := sync.CreativePerformance{
			RemoteCreativeID: stats.CreativeID,
			Impressions:      stats.Impressions,
			Clicks:           stats.Clicks,
			Conversions:      stats.Conversions,
		}
		if id, err := uuid.Parse(stats.ExternalID); err == nil {
			perf.CreativeID = id
		}
		report.Creatives = append(report.Creatives, perf)
	}

	return report, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request against the Amazon Advertising API
// and classifies failures into the shared error taxonomy
func (a *AmazonAdapter) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("amazon: failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("amazon: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Amazon-Advertising-API-ClientId", a.config.ClientID)
	req.Header.Set("Amazon-Advertising-API-Scope", a.config.ProfileID)
	req.Header.Set("Authorization", "Bearer "+a.config.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, sync.Transient(fmt.Errorf("amazon: request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, sync.Transient(fmt.Errorf("amazon: failed to read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, classifyAmazonStatus(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// classifyAmazonStatus maps API failures to the error taxonomy:
// rate limiting and server faults are transient, semantic rejections
// are permanent, a missing order aborts the job
func classifyAmazonStatus(status int, body []byte) error {
	var apiErr AmazonErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	if apiErr.Code == "" {
		apiErr.Code = fmt.Sprintf("HTTP_%d", status)
	}

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return sync.Transient(fmt.Errorf("amazon: %s: %s", apiErr.Code, apiErr.Details))
	case status == http.StatusNotFound:
		return sync.ErrRemoteCampaignNotFound
	default:
		return sync.Permanent(apiErr.Code, fmt.Errorf("amazon: HTTP %d: %s", status, apiErr.Details))
	}
}

// ---------------------------------------------------------------------------
// Field Mapping
// ---------------------------------------------------------------------------

// mapPhaseToAmazonGoal maps the funnel phase to a DSP order goal
func mapPhaseToAmazonGoal(phase campaign.Phase) string {
	switch phase {
	case campaign.PhaseAwareness:
		return "AWARENESS"
	case campaign.PhaseConsideration:
		return "CONSIDERATIONS_ON_AMAZON"
	case campaign.PhaseConversion:
		return "CONVERSIONS_OFF_AMAZON"
	default:
		return "AWARENESS"
	}
}

// mapStatusToAmazonActivation maps the campaign status to DSP activation
func mapStatusToAmazonActivation(status campaign.Status) string {
	switch status {
	case campaign.StatusActive:
		return "ACTIVATED"
	case campaign.StatusPaused:
		return "SUSPENDED"
	case campaign.StatusCompleted, campaign.StatusArchived:
		return "ENDED"
	default:
		return "INACTIVE"
	}
}

// mapFormatToAmazonType maps the creative format to a DSP creative type
func mapFormatToAmazonType(format campaign.Format) string {
	switch format {
	case campaign.FormatVideo:
		return "VIDEO"
	case campaign.FormatAudio:
		return "AUDIO"
	default:
		return "DISPLAY"
	}
}

// Ensure AmazonAdapter implements the sync.Adapter interface
var _ sync.Adapter = (*AmazonAdapter)(nil)
