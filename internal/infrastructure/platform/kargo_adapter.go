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

	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/sync"
)

// KargoAdapter implements the sync.Adapter interface for the Kargo
// campaign API. Kargo is the campaign owner: pushes mirror confirmed
// local state back to it so both sides agree on the intent record.
type KargoAdapter struct {
	config     *KargoConfig
	httpClient *http.Client
}

// NewKargoAdapter creates a Kargo adapter with the given configuration
func NewKargoAdapter(config *KargoConfig) (*KargoAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &KargoAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *KargoAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformKargo
}

// PushCampaign creates or updates the campaign record on Kargo
func (a *KargoAdapter) PushCampaign(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PushResult, error) {
	payload := a.campaignPayload(c)

	var respBody []byte
	var err error
	if binding == nil {
		respBody, err = a.doRequest(ctx, http.MethodPost, "/v1/campaigns", payload)
	} else {
		respBody, err = a.doRequest(ctx, http.MethodPut, "/v1/campaigns/"+binding.RemoteID, payload)
	}
	if err != nil {
		return nil, err
	}

	var resp KargoEntityResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("kargo: failed to parse campaign response: %w", err))
	}
	if resp.ID == "" && binding != nil {
		resp.ID = binding.RemoteID
	}

	return &sync.PushResult{RemoteID: resp.ID, RemoteVersion: resp.Version}, nil
}

// PushCreative registers creative metadata on Kargo
func (a *KargoAdapter) PushCreative(ctx context.Context, c *campaign.Campaign, cr *campaign.Creative, binding *sync.Binding) (*sync.PushResult, error) {
	if binding == nil {
		return nil, sync.ErrBindingNotFound
	}

	payload := KargoCreativeRequest{
		CampaignID: binding.RemoteID,
		Name:       cr.Name,
		Format:     cr.Format.String(),
		Dimensions: cr.Dimensions,
		ClickURL:   cr.ClickURL,
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, "/v1/campaigns/"+binding.RemoteID+"/creatives", payload)
	if err != nil {
		return nil, err
	}

	var resp KargoEntityResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("kargo: failed to parse creative response: %w", err))
	}

	return &sync.PushResult{RemoteID: resp.ID, RemoteVersion: resp.Version}, nil
}

// PushTargeting replaces the targeting record on Kargo
func (a *KargoAdapter) PushTargeting(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PushResult, error) {
	if binding == nil {
		return nil, sync.ErrBindingNotFound
	}

	payload := targetingPayload(c.Targeting)
	respBody, err := a.doRequest(ctx, http.MethodPut, "/v1/campaigns/"+binding.RemoteID+"/targeting", payload)
	if err != nil {
		return nil, err
	}

	var resp KargoEntityResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("kargo: failed to parse targeting response: %w", err))
	}

	return &sync.PushResult{RemoteID: binding.RemoteID, RemoteVersion: resp.Version}, nil
}

// PushBudget replaces the budget ceiling on Kargo
func (a *KargoAdapter) PushBudget(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PushResult, error) {
	if binding == nil {
		return nil, sync.ErrBindingNotFound
	}

	payload := KargoBudgetPayload{Total: c.Budget.Total.StringFixed(2), Currency: "USD"}
	respBody, err := a.doRequest(ctx, http.MethodPut, "/v1/campaigns/"+binding.RemoteID+"/budget", payload)
	if err != nil {
		return nil, err
	}

	var resp KargoEntityResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, sync.Transient(fmt.Errorf("kargo: failed to parse budget response: %w", err))
	}

	return &sync.PushResult{RemoteID: binding.RemoteID, RemoteVersion: resp.Version}, nil
}

// PullPerformance is not supported: delivery facts live on the execution
// platform, never on the campaign source
func (a *KargoAdapter) PullPerformance(ctx context.Context, c *campaign.Campaign, binding *sync.Binding) (*sync.PerformanceReport, error) {
	return nil, sync.Permanent("UNSUPPORTED_OPERATION", errors.New("kargo: campaign source holds no delivery facts"))
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *KargoAdapter) campaignPayload(c *campaign.Campaign) KargoCampaignRequest {
	return KargoCampaignRequest{
		Name:      c.Name,
		Status:    c.Status.String(),
		Phase:     c.Phase.String(),
		StartDate: c.StartDate.UTC().Format("2006-01-02"),
		EndDate:   c.EndDate.UTC().Format("2006-01-02"),
		Budget:    KargoBudgetPayload{Total: c.Budget.Total.StringFixed(2), Currency: "USD"},
		Targeting: targetingPayload(c.Targeting),
	}
}

func targetingPayload(t campaign.Targeting) KargoTargetingPayload {
	return KargoTargetingPayload{
		Geo:                  t.Geo,
		DeviceTypes:          t.DeviceTypes,
		Audiences:            t.Audiences,
		Keywords:             t.Keywords,
		SupplySources:        t.SupplySources,
		ViewabilityThreshold: t.ViewabilityThreshold,
		BrandSafetyLevel:     t.BrandSafetyLevel,
	}
}

// doRequest performs an HTTP request against the Kargo API and classifies
// failures into the shared error taxonomy
func (a *KargoAdapter) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("kargo: failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("kargo: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, sync.Transient(fmt.Errorf("kargo: request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, sync.Transient(fmt.Errorf("kargo: failed to read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, classifyKargoStatus(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// classifyKargoStatus maps API failures to the error taxonomy
func classifyKargoStatus(status int, body []byte) error {
	var apiErr KargoErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	if apiErr.Error == "" {
		apiErr.Error = fmt.Sprintf("HTTP_%d", status)
	}

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return sync.Transient(fmt.Errorf("kargo: %s: %s", apiErr.Error, apiErr.Message))
	case status == http.StatusNotFound:
		return sync.ErrRemoteCampaignNotFound
	default:
		return sync.Permanent(apiErr.Error, fmt.Errorf("kargo: HTTP %d: %s", status, apiErr.Message))
	}
}

// Ensure KargoAdapter implements the sync.Adapter interface
var _ sync.Adapter = (*KargoAdapter)(nil)
