package platform

// KargoCampaignRequest is the payload for mirroring campaign state back
// to the campaign source
type KargoCampaignRequest struct {
	Name      string                `json:"name"`
	Status    string                `json:"status"`
	Phase     string                `json:"phase"`
	StartDate string                `json:"start_date"`
	EndDate   string                `json:"end_date"`
	Budget    KargoBudgetPayload    `json:"budget"`
	Targeting KargoTargetingPayload `json:"targeting"`
}

// KargoBudgetPayload carries the budget ceiling
type KargoBudgetPayload struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// KargoTargetingPayload carries the targeting intent
type KargoTargetingPayload struct {
	Geo                  []string `json:"geo,omitempty"`
	DeviceTypes          []string `json:"device_types,omitempty"`
	Audiences            []string `json:"audiences,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	SupplySources        []string `json:"supply_sources,omitempty"`
	ViewabilityThreshold float64  `json:"viewability_threshold,omitempty"`
	BrandSafetyLevel     string   `json:"brand_safety_level,omitempty"`
}

// KargoCreativeRequest is the payload for registering creative metadata
type KargoCreativeRequest struct {
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
	Format     string `json:"format"`
	Dimensions string `json:"dimensions,omitempty"`
	ClickURL   string `json:"click_url,omitempty"`
}

// KargoEntityResponse is the common response for entity calls
type KargoEntityResponse struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// KargoErrorResponse is the error body returned on failed calls
type KargoErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
