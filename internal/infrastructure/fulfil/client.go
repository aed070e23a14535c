package fulfil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/mediator/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the catalog API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// timeLayouts are the modification timestamp formats the API has been seen
// to emit.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Client reads product records from the Fulfil catalog API. It implements
// sync.SourceGateway. The active mode picks the live or test tenant
// credentials for every request.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger

	mu   stdsync.RWMutex
	mode sync.Mode
}

// NewClient creates a new catalog client with the given configuration.
// The client starts in live mode until the engine applies its setting.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger.Named("fulfil"),
		mode:   sync.ModeLive,
	}, nil
}

// UseMode selects the tenant credential set for subsequent requests.
func (c *Client) UseMode(mode sync.Mode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// credentials resolves the active mode's credential set.
func (c *Client) credentials() (Credentials, error) {
	c.mu.RLock()
	mode := c.mode
	c.mu.RUnlock()

	creds := c.config.Live
	if mode == sync.ModeTest {
		creds = c.config.Test
	}
	if creds.IsZero() || creds.APIKey == "" {
		return Credentials{}, fmt.Errorf("%w: no %s credentials configured", sync.ErrSourceUnavailable, mode)
	}
	return creds, nil
}

// ChangedSince returns one page of records modified strictly after since,
// ordered by modification time ascending. A zero since means everything.
func (c *Client) ChangedSince(ctx context.Context, since time.Time, page, pageSize int) (*sync.SourcePage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(pageSize))
	if !since.IsZero() {
		params.Set("updated_at_min", since.UTC().Format("2006-01-02T15:04:05"))
	}

	resp, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	payloads := resp.list()
	records := make([]sync.SourceRecord, 0, len(payloads))
	for i := range payloads {
		rec := toRecord(&payloads[i])
		// The date filter is inclusive on some API versions; drop
		// anything at or before the watermark ourselves.
		if !since.IsZero() && !rec.ModifiedAt.After(since) {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ModifiedAt.Before(records[j].ModifiedAt)
	})

	c.logger.Debug("fetched catalog page",
		zap.Int("page", page),
		zap.Int("records", len(records)),
	)

	return &sync.SourcePage{
		Records:  records,
		HasMore:  resp.hasMore(len(payloads), pageSize),
		NextPage: page + 1,
	}, nil
}

// FindBySKU fetches a single record for the on-demand path.
func (c *Client) FindBySKU(ctx context.Context, sku string) (*sync.SourceRecord, error) {
	params := url.Values{}
	params.Set("code", sku)
	params.Set("page", "1")
	params.Set("per_page", "10")

	resp, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	for _, payload := range resp.list() {
		if payload.Code == sku {
			rec := toRecord(&payload)
			return &rec, nil
		}
	}
	return nil, sync.ErrProductNotFound
}

// doRequest performs one GET against the products endpoint
func (c *Client) doRequest(ctx context.Context, params url.Values) (*productsResponse, error) {
	creds, err := c.credentials()
	if err != nil {
		return nil, err
	}
	endpoint := c.config.Endpoint(creds) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fulfil: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrSourceUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", sync.ErrSourceUnavailable, err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", sync.ErrSourceUnavailable, httpResp.StatusCode)
	}

	resp, err := decodeProductsResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", sync.ErrSourceUnavailable, err)
	}
	return resp, nil
}

// toRecord maps one API payload to a domain record
func toRecord(p *productPayload) sync.SourceRecord {
	rec := sync.SourceRecord{
		SourceID:   p.ID,
		SKU:        p.Code,
		Name:       p.Name,
		ImageURL:   p.ImageURL,
		ModifiedAt: parseModifiedAt(p),
	}

	for _, code := range p.Codes {
		switch code.Type {
		case "upc":
			rec.UPC = code.Value
		case "asin":
			rec.ASIN = code.Value
		case "buyer_sku":
			rec.BuyerSKU = code.Value
		}
	}

	if p.Weight != nil {
		rec.WeightG = p.Weight.WeightGM
	}
	if p.Dims != nil {
		rec.LengthCM = p.Dims.LengthCM
		rec.WidthCM = p.Dims.WidthCM
		rec.HeightCM = p.Dims.HeightCM
	}
	if p.Customs != nil {
		rec.HSCode = p.Customs.HSCode
		rec.CountryOfOrigin = p.Customs.CountryOfOrigin
		rec.CustomsDescription = p.Customs.CustomsDescription
	}
	return rec
}

// parseModifiedAt tries the known timestamp fields and layouts
func parseModifiedAt(p *productPayload) time.Time {
	for _, raw := range []string{p.UpdatedAt, p.WriteDate} {
		if raw == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// Ensure Client implements sync.SourceGateway
var _ sync.SourceGateway = (*Client)(nil)
