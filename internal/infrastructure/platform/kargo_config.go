package platform

import "errors"

// KargoConfig holds configuration for the Kargo campaign API
type KargoConfig struct {
	// APIKey authenticates requests against the Kargo API
	APIKey string
	// APIBaseURL is the Kargo API endpoint
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// KargoProductionAPIURL is the production API endpoint
const KargoProductionAPIURL = "https://api.kargo.com"

// ErrKargoConfigMissingAPIKey is returned when no API key is configured
var ErrKargoConfigMissingAPIKey = errors.New("kargo: api key is required")

// NewKargoConfig creates a Kargo configuration with defaults
func NewKargoConfig(apiKey string) *KargoConfig {
	return &KargoConfig{
		APIKey:         apiKey,
		APIBaseURL:     KargoProductionAPIURL,
		TimeoutSeconds: 15,
	}
}

// Validate validates the Kargo configuration
func (c *KargoConfig) Validate() error {
	if c.APIKey == "" {
		return ErrKargoConfigMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = KargoProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}
