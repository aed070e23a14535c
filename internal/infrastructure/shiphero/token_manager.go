package shiphero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/mediator/backend/internal/domain/sync"
)

// TokenManager keeps a usable access token per credential mode for the
// GraphQL endpoint. Refreshes are serialized by a mutex and every new token
// is persisted before it is handed out.
type TokenManager struct {
	store      sync.TokenStore
	httpClient *http.Client
	authURL    string
	config     *Config
	margin     time.Duration
	logger     *zap.Logger

	mu  stdsync.Mutex
	now func() time.Time
}

// NewTokenManager creates a token manager backed by the given store
func NewTokenManager(config *Config, store sync.TokenStore, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		store: store,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		authURL: config.AuthURL,
		config:  config,
		margin:  config.TokenMargin,
		logger:  logger.Named("shiphero.token"),
		now:     time.Now,
	}
}

// AccessToken returns an access token for the given mode whose expiry is
// past the safety margin, refreshing proactively when the stored one is
// expiring or absent.
func (m *TokenManager) AccessToken(ctx context.Context, mode sync.Mode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.store.Get(ctx, mode)
	if err != nil && !errors.Is(err, sync.ErrTokenNotFound) {
		return "", err
	}
	if token.State(m.now(), m.margin) == sync.TokenStateValid {
		return token.AccessToken, nil
	}

	refreshed, err := m.refresh(ctx, mode, token)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// ForceRefresh discards the rejected access token and returns a fresh one
// for the given mode. When another caller already refreshed past stale, the
// newer stored token is returned without a second round trip.
func (m *TokenManager) ForceRefresh(ctx context.Context, mode sync.Mode, stale string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.store.Get(ctx, mode)
	if err != nil && !errors.Is(err, sync.ErrTokenNotFound) {
		return "", err
	}
	if token != nil && token.AccessToken != "" && token.AccessToken != stale {
		if token.State(m.now(), m.margin) == sync.TokenStateValid {
			return token.AccessToken, nil
		}
	}

	refreshed, err := m.refresh(ctx, mode, token)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// refresh exchanges the mode's refresh token for a new access token and
// persists it. Callers must hold the mutex.
func (m *TokenManager) refresh(ctx context.Context, mode sync.Mode, current *sync.Token) (*sync.Token, error) {
	refreshToken := m.config.bootstrapFor(mode)
	if current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no %s refresh token configured", sync.ErrAuthExpired, mode)
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode refresh request: %v", sync.ErrAuthExpired, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create refresh request: %v", sync.ErrAuthExpired, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh request failed: %v", sync.ErrAuthExpired, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read refresh response: %v", sync.ErrAuthExpired, err)
	}
	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: refresh rejected with HTTP %d", sync.ErrAuthExpired, httpResp.StatusCode)
	}

	var resp refreshResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed refresh response: %v", sync.ErrAuthExpired, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response carried no access token", sync.ErrAuthExpired)
	}

	token := &sync.Token{
		Mode:         mode,
		AccessToken:  resp.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    m.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if resp.RefreshToken != "" {
		token.RefreshToken = resp.RefreshToken
	}

	if err := m.store.Save(ctx, token); err != nil {
		return nil, err
	}

	m.logger.Info("refreshed access token",
		zap.String("mode", string(mode)),
		zap.Time("expires_at", token.ExpiresAt),
	)
	return token, nil
}
