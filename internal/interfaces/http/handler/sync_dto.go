package handler

import (
	"time"

	"github.com/shopspring/decimal"

	syncapp "github.com/mediator/backend/internal/application/sync"
	domain "github.com/mediator/backend/internal/domain/sync"
)

// RunResponse represents one sync cycle in API responses
type RunResponse struct {
	ID         string  `json:"id"`
	StartedAt  string  `json:"started_at"`
	FinishedAt *string `json:"finished_at"`
	Status     string  `json:"status"`
	Polled     int     `json:"polled"`
	Pushed     int     `json:"pushed"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	Error      string  `json:"error,omitempty"`
}

// StatusResponse is the operator-facing sync overview
type StatusResponse struct {
	TotalProducts   int64        `json:"total_products"`
	PushedProducts  int64        `json:"pushed_products"`
	PendingProducts int64        `json:"pending_products"`
	SyncedLast24h   int64        `json:"synced_last_24h"`
	LastRun         *RunResponse `json:"last_run"`
	PollInterval    string       `json:"poll_interval"`
	NextRunAt       *string      `json:"next_run_at"`
}

// LogEntryResponse represents a sync log entry list item
type LogEntryResponse struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	SKU         string `json:"sku"`
	ProductName string `json:"product_name"`
	Action      string `json:"action"`
	CreatedAt   string `json:"created_at"`
}

// LogDetailResponse adds the per-field change set to a log entry
type LogDetailResponse struct {
	LogEntryResponse
	ChangedFields map[string]domain.FieldChange `json:"changed_fields"`
}

// ItemErrorResponse represents a recorded per-item sync failure
type ItemErrorResponse struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id"`
	SKU       string `json:"sku"`
	SourceID  int64  `json:"source_id"`
	Class     string `json:"class"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// SettingsResponse represents the current engine settings
type SettingsResponse struct {
	PollIntervalMinutes   int    `json:"poll_interval_minutes"`
	PageSize              int    `json:"page_size"`
	MaxRetries            int    `json:"max_retries"`
	BaseRetryDelaySeconds int    `json:"base_retry_delay_seconds"`
	Mode                  string `json:"mode"`
}

// UpdateSettingsRequest represents a request to change engine settings.
// Changes take effect at the start of the next cycle.
type UpdateSettingsRequest struct {
	PollIntervalMinutes   int    `json:"poll_interval_minutes" binding:"required,min=1,max=1440"`
	PageSize              int    `json:"page_size" binding:"required,min=1,max=500"`
	MaxRetries            int    `json:"max_retries" binding:"required,min=1,max=10"`
	BaseRetryDelaySeconds int    `json:"base_retry_delay_seconds" binding:"required,min=1,max=300"`
	Mode                  string `json:"mode" binding:"required,oneof=live test"`
}

// ProductResponse represents the locally mirrored product row
type ProductResponse struct {
	SourceID           int64   `json:"source_id"`
	SKU                string  `json:"sku"`
	Name               string  `json:"name"`
	UPC                string  `json:"upc,omitempty"`
	ASIN               string  `json:"asin,omitempty"`
	BuyerSKU           string  `json:"buyer_sku,omitempty"`
	HSCode             string  `json:"hs_code,omitempty"`
	CountryOfOrigin    string  `json:"country_of_origin,omitempty"`
	CustomsDescription string  `json:"customs_description,omitempty"`
	WeightG            string  `json:"weight_g,omitempty"`
	LengthCM           string  `json:"length_cm,omitempty"`
	WidthCM            string  `json:"width_cm,omitempty"`
	HeightCM           string  `json:"height_cm,omitempty"`
	ImageURL           string  `json:"image_url,omitempty"`
	SourceModifiedAt   string  `json:"source_modified_at"`
	DestinationID      string  `json:"destination_id,omitempty"`
	Fingerprint        string  `json:"fingerprint,omitempty"`
	LastPushedAt       *string `json:"last_pushed_at"`
	LastSyncedAt       *string `json:"last_synced_at"`
}

// DestinationProductResponse represents the destination's live view
type DestinationProductResponse struct {
	ID       string `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Barcode  string `json:"barcode,omitempty"`
	WeightOz string `json:"weight_oz,omitempty"`
}

// ProductCheckResponse is the manual cross-system view of one product
type ProductCheckResponse struct {
	SKU              string                      `json:"sku"`
	Local            *ProductResponse            `json:"local"`
	Destination      *DestinationProductResponse `json:"destination"`
	DestinationError string                      `json:"destination_error,omitempty"`
}

// SyncProductResponse is the outcome of an on-demand single-product sync
type SyncProductResponse struct {
	SKU    string `json:"sku"`
	Action string `json:"action"`
	RunID  string `json:"run_id"`
}

func toRunResponse(run *domain.Run) *RunResponse {
	if run == nil {
		return nil
	}
	resp := &RunResponse{
		ID:        run.ID.String(),
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Status:    string(run.Status),
		Polled:    run.Polled,
		Pushed:    run.Pushed,
		Skipped:   run.Skipped,
		Failed:    run.Failed,
		Error:     run.Error,
	}
	if run.FinishedAt != nil {
		s := run.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &s
	}
	return resp
}

func toStatusResponse(summary *syncapp.StatusSummary) *StatusResponse {
	resp := &StatusResponse{
		TotalProducts:   summary.TotalProducts,
		PushedProducts:  summary.PushedProducts,
		PendingProducts: summary.PendingProducts,
		SyncedLast24h:   summary.SyncedLast24h,
		LastRun:         toRunResponse(summary.LastRun),
		PollInterval:    summary.PollInterval.String(),
	}
	if summary.NextRunAt != nil {
		s := summary.NextRunAt.Format(time.RFC3339)
		resp.NextRunAt = &s
	}
	return resp
}

func toLogEntryResponse(entry domain.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:          entry.ID.String(),
		RunID:       entry.RunID.String(),
		SKU:         entry.SKU,
		ProductName: entry.ProductName,
		Action:      string(entry.Action),
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
}

func toLogEntryResponses(entries []domain.LogEntry) []LogEntryResponse {
	out := make([]LogEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = toLogEntryResponse(entry)
	}
	return out
}

func toItemErrorResponses(itemErrs []domain.ItemError) []ItemErrorResponse {
	out := make([]ItemErrorResponse, len(itemErrs))
	for i, itemErr := range itemErrs {
		out[i] = ItemErrorResponse{
			ID:        itemErr.ID.String(),
			RunID:     itemErr.RunID.String(),
			SKU:       itemErr.SKU,
			SourceID:  itemErr.SourceID,
			Class:     string(itemErr.Class),
			Message:   itemErr.Message,
			CreatedAt: itemErr.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

func toSettingsResponse(settings domain.Settings) SettingsResponse {
	return SettingsResponse{
		PollIntervalMinutes:   int(settings.PollInterval / time.Minute),
		PageSize:              settings.PageSize,
		MaxRetries:            settings.MaxRetries,
		BaseRetryDelaySeconds: int(settings.BaseRetryDelay / time.Second),
		Mode:                  string(settings.Mode),
	}
}

func decimalField(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func timeField(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toProductResponse(p *domain.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		SourceID:           p.SourceID,
		SKU:                p.SKU,
		Name:               p.Name,
		UPC:                p.UPC,
		ASIN:               p.ASIN,
		BuyerSKU:           p.BuyerSKU,
		HSCode:             p.HSCode,
		CountryOfOrigin:    p.CountryOfOrigin,
		CustomsDescription: p.CustomsDescription,
		WeightG:            decimalField(p.WeightG),
		LengthCM:           decimalField(p.LengthCM),
		WidthCM:            decimalField(p.WidthCM),
		HeightCM:           decimalField(p.HeightCM),
		ImageURL:           p.ImageURL,
		SourceModifiedAt:   p.SourceModifiedAt.Format(time.RFC3339),
		DestinationID:      p.DestinationID,
		Fingerprint:        p.Fingerprint,
		LastPushedAt:       timeField(p.LastPushedAt),
		LastSyncedAt:       timeField(p.LastSyncedAt),
	}
}

func toProductCheckResponse(check *syncapp.ProductCheck) *ProductCheckResponse {
	resp := &ProductCheckResponse{
		SKU:              check.SKU,
		Local:            toProductResponse(check.Local),
		DestinationError: check.DestinationError,
	}
	if check.Destination != nil {
		resp.Destination = &DestinationProductResponse{
			ID:       check.Destination.ID,
			SKU:      check.Destination.SKU,
			Name:     check.Destination.Name,
			Barcode:  check.Destination.Barcode,
			WeightOz: check.Destination.WeightOz,
		}
	}
	return resp
}
