package shiphero

import (
	"errors"
	"time"

	"github.com/mediator/backend/internal/domain/sync"
)

// Credentials is one OAuth credential set for the fulfillment API.
type Credentials struct {
	// RefreshToken is the long-lived bootstrap credential
	RefreshToken string
}

// IsZero reports whether the credential set is unconfigured.
func (c Credentials) IsZero() bool {
	return c.RefreshToken == ""
}

// Config holds configuration for the ShipHero fulfillment API integration.
// Live and Test hold separate account credentials; the client selects one
// per the engine's mode setting.
type Config struct {
	// GraphQLURL is the GraphQL endpoint
	GraphQLURL string
	// AuthURL is the OAuth token refresh endpoint
	AuthURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// TokenMargin is the safety margin before access token expiry
	TokenMargin time.Duration
	// MaxRetries is the default maximum number of push attempts
	MaxRetries int
	// BaseRetryDelay is the default initial backoff delay between attempts
	BaseRetryDelay time.Duration
	// Live are the production account credentials
	Live Credentials
	// Test are the sandbox account credentials
	Test Credentials
}

// Production endpoints.
const (
	DefaultGraphQLURL = "https://public-api.shiphero.com/graphql"
	DefaultAuthURL    = "https://public-api.shiphero.com/auth/refresh"
)

// Errors for ShipHero configuration
var (
	ErrConfigMissingRefreshToken = errors.New("shiphero: at least one refresh token is required")
)

// NewConfig creates a new ShipHero configuration with defaults
func NewConfig(live Credentials) *Config {
	return &Config{
		GraphQLURL:     DefaultGraphQLURL,
		AuthURL:        DefaultAuthURL,
		TimeoutSeconds: 30,
		TokenMargin:    60 * time.Second,
		MaxRetries:     3,
		BaseRetryDelay: time.Second,
		Live:           live,
	}
}

// Validate validates the ShipHero configuration. At least one credential
// set must be present; a mode whose set is absent is rejected at request
// time instead.
func (c *Config) Validate() error {
	if c.Live.IsZero() && c.Test.IsZero() {
		return ErrConfigMissingRefreshToken
	}
	if c.GraphQLURL == "" {
		c.GraphQLURL = DefaultGraphQLURL
	}
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.TokenMargin <= 0 {
		c.TokenMargin = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = time.Second
	}
	return nil
}

// bootstrapFor returns the configured refresh token for the given mode.
func (c *Config) bootstrapFor(mode sync.Mode) string {
	if mode == sync.ModeTest {
		return c.Test.RefreshToken
	}
	return c.Live.RefreshToken
}
