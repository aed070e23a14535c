package fulfil

import (
	"errors"
	"strings"
)

// Credentials is one tenant credential set for the 3PL API.
type Credentials struct {
	// Subdomain is the tenant subdomain on fulfil.io
	Subdomain string
	// APIKey is the bearer token for the 3PL API
	APIKey string
}

// IsZero reports whether the credential set is unconfigured.
func (c Credentials) IsZero() bool {
	return c.Subdomain == "" && c.APIKey == ""
}

// Config holds configuration for the Fulfil catalog API integration.
// Live and Test hold separate tenant credentials; the client selects one
// per the engine's mode setting.
type Config struct {
	// BaseURL is the API base URL; "{subdomain}" is substituted
	BaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// Live are the production tenant credentials
	Live Credentials
	// Test are the sandbox tenant credentials
	Test Credentials
}

// DefaultBaseURL is the production API endpoint pattern.
const DefaultBaseURL = "https://{subdomain}.fulfil.io"

// Errors for Fulfil configuration
var (
	ErrConfigMissingCredentials = errors.New("fulfil: at least one credential set is required")
	ErrConfigMissingSubdomain   = errors.New("fulfil: subdomain is required")
	ErrConfigMissingAPIKey      = errors.New("fulfil: api key is required")
)

// NewConfig creates a new Fulfil configuration with defaults
func NewConfig(live Credentials) *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		TimeoutSeconds: 30,
		Live:           live,
	}
}

// Validate validates the Fulfil configuration. At least one credential set
// must be present and complete; a mode whose set is absent is rejected at
// request time instead.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Live.IsZero() && c.Test.IsZero() {
		return ErrConfigMissingCredentials
	}
	for _, creds := range []Credentials{c.Live, c.Test} {
		if creds.IsZero() {
			continue
		}
		// The subdomain only matters when the base URL needs it
		// substituted.
		if creds.Subdomain == "" && strings.Contains(c.BaseURL, "{subdomain}") {
			return ErrConfigMissingSubdomain
		}
		if creds.APIKey == "" {
			return ErrConfigMissingAPIKey
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Endpoint returns the products endpoint resolved for the given credentials.
func (c *Config) Endpoint(creds Credentials) string {
	base := strings.ReplaceAll(c.BaseURL, "{subdomain}", creds.Subdomain)
	return strings.TrimSuffix(base, "/") + "/services/3pl/v1/products.json"
}
