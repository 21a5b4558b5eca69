package platform

import "errors"

// AmazonConfig holds configuration for the Amazon DSP Advertising API
type AmazonConfig struct {
	// ClientID is the Login with Amazon application client ID
	ClientID string
	// AccessToken is the OAuth access token for API calls
	AccessToken string
	// ProfileID scopes API calls to one advertising profile
	ProfileID string
	// APIBaseURL is the regional API endpoint
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// AmazonNorthAmericaAPIURL is the North America API endpoint
	AmazonNorthAmericaAPIURL = "https://advertising-api.amazon.com"
	// AmazonEuropeAPIURL is the Europe API endpoint
	AmazonEuropeAPIURL = "https://advertising-api-eu.amazon.com"
)

// Errors for Amazon DSP configuration
var (
	ErrAmazonConfigMissingClientID    = errors.New("amazon: client id is required")
	ErrAmazonConfigMissingAccessToken = errors.New("amazon: access token is required")
	ErrAmazonConfigMissingProfileID   = errors.New("amazon: profile id is required")
)

// NewAmazonConfig creates an Amazon DSP configuration with defaults
func NewAmazonConfig(clientID, accessToken, profileID string) *AmazonConfig {
	return &AmazonConfig{
		ClientID:       clientID,
		AccessToken:    accessToken,
		ProfileID:      profileID,
		APIBaseURL:     AmazonNorthAmericaAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Amazon DSP configuration
func (c *AmazonConfig) Validate() error {
	if c.ClientID == "" {
		return ErrAmazonConfigMissingClientID
	}
	if c.AccessToken == "" {
		return ErrAmazonConfigMissingAccessToken
	}
	if c.ProfileID == "" {
		return ErrAmazonConfigMissingProfileID
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = AmazonNorthAmericaAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
