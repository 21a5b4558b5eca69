package platform

// AmazonOrderRequest is the payload for creating or updating a DSP order
type AmazonOrderRequest struct {
	Name         string `json:"name"`
	AdvertiserID string `json:"advertiserId"`
	Goal         string `json:"goal"`
	StartDate    string `json:"startDateTime"`
	EndDate      string `json:"endDateTime"`
	Status       string `json:"deliveryActivationStatus"`
}

// AmazonOrderResponse is the response for order create/update calls
type AmazonOrderResponse struct {
	OrderID string `json:"orderId"`
	Version string `json:"version"`
	Status  string `json:"deliveryActivationStatus"`
}

// AmazonCreativeRequest is the payload for registering a creative
type AmazonCreativeRequest struct {
	OrderID    string `json:"orderId"`
	Name       string `json:"name"`
	Format     string `json:"creativeType"`
	Dimensions string `json:"dimensions,omitempty"`
	ClickURL   string `json:"clickThroughUrl,omitempty"`
}

// AmazonCreativeResponse is the response for creative calls
type AmazonCreativeResponse struct {
	CreativeID string `json:"creativeId"`
	Version    string `json:"version"`
	Status     string `json:"approvalStatus"`
}

// AmazonTargetingRequest is the payload for replacing order targeting
type AmazonTargetingRequest struct {
	Geo                  []string `json:"geoLocations,omitempty"`
	DeviceTypes          []string `json:"deviceTypes,omitempty"`
	Audiences            []string `json:"audienceIds,omitempty"`
	SupplySources        []string `json:"supplySources,omitempty"`
	ViewabilityThreshold float64  `json:"viewabilityTier,omitempty"`
	BrandSafetyLevel     string   `json:"brandSafetyTier,omitempty"`
}

// AmazonBudgetRequest is the payload for replacing the order budget cap.
// It carries the ceiling only; delivered spend is read-only on the API.
type AmazonBudgetRequest struct {
	BudgetCap string `json:"budgetCap"`
	Currency  string `json:"currencyCode"`
}

// AmazonVersionedResponse is the common response for targeting/budget calls
type AmazonVersionedResponse struct {
	Version string `json:"version"`
}

// AmazonReportResponse is the response for a performance report request
type AmazonReportResponse struct {
	OrderID   string                `json:"orderId"`
	Version   string                `json:"version"`
	TotalCost string                `json:"totalCost"`
	Creatives []AmazonCreativeStats `json:"creatives"`
}

// AmazonCreativeStats holds per-creative delivery metrics
type AmazonCreativeStats struct {
	CreativeID  string `json:"creativeId"`
	ExternalID  string `json:"externalId"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clickThroughs"`
	Conversions int64  `json:"conversions"`
}

// AmazonErrorResponse is the error body returned on failed calls
type AmazonErrorResponse struct {
	Code    string `json:"code"`
	Details string `json:"details"`
}
