package sync

import "time"

// TokenState describes the usability of the stored access token.
type TokenState string

const (
	// TokenStateValid means the access token's expiry is comfortably away.
	TokenStateValid TokenState = "valid"
	// TokenStateExpiring means expiry is within the safety margin; refresh
	// proactively before the next destination call.
	TokenStateExpiring TokenState = "expiring"
	// TokenStateInvalid means there is no usable access token.
	TokenStateInvalid TokenState = "invalid"
)

// Token holds the OAuth credentials for one fulfillment API credential set.
// Mutated only by the token manager; read before every destination call.
type Token struct {
	Mode         Mode
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// State classifies the token relative to now and the refresh safety margin.
func (t *Token) State(now time.Time, margin time.Duration) TokenState {
	if t == nil || t.AccessToken == "" {
		return TokenStateInvalid
	}
	switch {
	case now.After(t.ExpiresAt):
		return TokenStateInvalid
	case now.Add(margin).After(t.ExpiresAt):
		return TokenStateExpiring
	default:
		return TokenStateValid
	}
}
