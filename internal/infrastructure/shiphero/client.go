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

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/mediator/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client writes products to the ShipHero GraphQL API. It implements
// sync.DestinationGateway. The active mode picks the live or test account
// credentials, and the retry policy is applied by the engine from the
// current settings before each cycle.
type Client struct {
	config     *Config
	httpClient *http.Client
	tokens     *TokenManager
	logger     *zap.Logger

	mu             stdsync.RWMutex
	mode           sync.Mode
	maxRetries     int
	baseRetryDelay time.Duration
}

// NewClient creates a new fulfillment client with the given configuration.
// The client starts in live mode with the configured retry defaults until
// the engine applies its settings.
func NewClient(config *Config, tokens *TokenManager, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		tokens:         tokens,
		logger:         logger.Named("shiphero"),
		mode:           sync.ModeLive,
		maxRetries:     config.MaxRetries,
		baseRetryDelay: config.BaseRetryDelay,
	}, nil
}

// UseMode selects the account credential set for subsequent requests.
func (c *Client) UseMode(mode sync.Mode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// SetRetryPolicy applies the current retry settings to subsequent Upsert
// calls. Non-positive values keep the configured defaults.
func (c *Client) SetRetryPolicy(maxRetries int, baseDelay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
	if baseDelay > 0 {
		c.baseRetryDelay = baseDelay
	}
}

func (c *Client) retryPolicy() (int, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxRetries, c.baseRetryDelay
}

func (c *Client) currentMode() sync.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Upsert pushes one product, retrying transient failures with exponential
// backoff. A create that hits the SKU conflict reroutes to an update of the
// same SKU; validation failures surface immediately without retry.
func (c *Client) Upsert(ctx context.Context, payload sync.DestinationPayload, destinationID string) (*sync.PushResult, error) {
	operation := func() (*sync.PushResult, error) {
		result, err := c.pushOnce(ctx, payload, destinationID)
		if err != nil {
			if sync.IsTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return result, nil
	}

	maxRetries, baseDelay := c.retryPolicy()
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay
	policy.Multiplier = 2

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(maxRetries)),
	)
	if err != nil {
		if sync.IsTransient(err) {
			return nil, fmt.Errorf("%w: %v", sync.ErrPushFailed, err)
		}
		return nil, err
	}
	return result, nil
}

// pushOnce is one push attempt without retry policy.
func (c *Client) pushOnce(ctx context.Context, payload sync.DestinationPayload, destinationID string) (*sync.PushResult, error) {
	input := newProductInput(payload)

	if destinationID != "" {
		result, err := c.update(ctx, input)
		if err != nil {
			return nil, err
		}
		return &sync.PushResult{
			Action:        sync.PushActionUpdated,
			DestinationID: resultID(result, destinationID),
		}, nil
	}

	result, err := c.create(ctx, input)
	if err == nil {
		return &sync.PushResult{
			Action:        sync.PushActionCreated,
			DestinationID: resultID(result, ""),
		}, nil
	}
	if !errors.Is(err, sync.ErrAlreadyExists) {
		return nil, err
	}

	// The destination already knows this SKU. Not a failure, switch to
	// update and report the product as updated.
	c.logger.Debug("create conflict, rerouting to update",
		zap.String("sku", payload.SKU),
	)
	result, err = c.update(ctx, input)
	if err != nil {
		return nil, err
	}
	return &sync.PushResult{
		Action:        sync.PushActionUpdated,
		DestinationID: resultID(result, destinationID),
	}, nil
}

func resultID(result *mutationResult, fallback string) string {
	if result != nil && result.Product != nil && result.Product.ID != "" {
		return result.Product.ID
	}
	return fallback
}

func (c *Client) create(ctx context.Context, input productInput) (*mutationResult, error) {
	raw, err := c.mutate(ctx, productCreateMutation, input)
	if err != nil {
		return nil, err
	}
	var data productCreateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed create response: %v", sync.ErrTransientPush, err)
	}
	return &data.ProductCreate, nil
}

func (c *Client) update(ctx context.Context, input productInput) (*mutationResult, error) {
	raw, err := c.mutate(ctx, productUpdateMutation, input)
	if err != nil {
		return nil, err
	}
	var data productUpdateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed update response: %v", sync.ErrTransientPush, err)
	}
	return &data.ProductUpdate, nil
}

func (c *Client) mutate(ctx context.Context, query string, input productInput) (json.RawMessage, error) {
	return c.execute(ctx, query, map[string]any{"data": input})
}

// FindBySKU fetches the destination's current view of a product.
func (c *Client) FindBySKU(ctx context.Context, sku string) (*sync.DestinationProduct, error) {
	raw, err := c.execute(ctx, productsQuery, map[string]any{"sku": sku})
	if err != nil {
		return nil, err
	}

	var data productsQueryData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed products response: %v", sync.ErrTransientPush, err)
	}
	for _, edge := range data.Products.Data.Edges {
		if edge.Node.SKU != sku {
			continue
		}
		product := &sync.DestinationProduct{
			ID:      edge.Node.ID,
			SKU:     edge.Node.SKU,
			Name:    edge.Node.Name,
			Barcode: edge.Node.Barcode,
		}
		if edge.Node.Dimensions != nil {
			product.WeightOz = edge.Node.Dimensions.Weight
		}
		return product, nil
	}
	return nil, sync.ErrProductNotFound
}

// execute runs one GraphQL call with the active mode's credentials. An
// access token rejection triggers a single forced refresh followed by one
// retry of the call.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	mode := c.currentMode()
	accessToken, err := c.tokens.AccessToken(ctx, mode)
	if err != nil {
		return nil, err
	}

	data, err := c.doRequest(ctx, query, variables, accessToken)
	if !errors.Is(err, sync.ErrAuthExpired) {
		return data, err
	}

	accessToken, err = c.tokens.ForceRefresh(ctx, mode, accessToken)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, query, variables, accessToken)
}

// doRequest performs one POST against the GraphQL endpoint
func (c *Client) doRequest(ctx context.Context, query string, variables map[string]any, accessToken string) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", sync.ErrValidation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GraphQLURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("shiphero: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrTransientPush, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", sync.ErrTransientPush, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", sync.ErrAuthExpired, httpResp.StatusCode)
	case httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", sync.ErrTransientPush, httpResp.StatusCode)
	case httpResp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s", sync.ErrValidation, httpResp.StatusCode, respBody)
	}

	var resp graphqlResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", sync.ErrTransientPush, err)
	}

	if len(resp.Errors) > 0 {
		switch {
		case resp.hasAlreadyExists():
			return nil, fmt.Errorf("%w: %s", sync.ErrAlreadyExists, resp.messages())
		case resp.hasExpiredToken():
			return nil, fmt.Errorf("%w: %s", sync.ErrAuthExpired, resp.messages())
		default:
			return nil, fmt.Errorf("%w: %s", sync.ErrValidation, resp.messages())
		}
	}
	return resp.Data, nil
}

// Ensure Client implements sync.DestinationGateway
var _ sync.DestinationGateway = (*Client)(nil)
