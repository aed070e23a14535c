package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/mediator/backend/internal/application/sync"
	domain "github.com/mediator/backend/internal/domain/sync"
)

// SyncHandler handles sync engine API endpoints
type SyncHandler struct {
	BaseHandler
	engine *syncapp.Engine
	status *syncapp.StatusService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(engine *syncapp.Engine, status *syncapp.StatusService) *SyncHandler {
	return &SyncHandler{
		engine: engine,
		status: status,
	}
}

// RegisterRoutes registers the sync routes on the versioned API group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.GET("/status", h.Status)
		sync.POST("/run", h.TriggerRun)
		sync.GET("/logs", h.ListLogs)
		sync.GET("/logs/:id", h.GetLog)
		sync.GET("/runs/:id/errors", h.ListRunErrors)
		sync.GET("/settings", h.GetSettings)
		sync.PUT("/settings", h.UpdateSettings)
	}

	products := rg.Group("/products")
	{
		products.GET("/:sku/check", h.CheckProduct)
		products.POST("/:sku/sync", h.SyncProduct)
	}
}

// Status returns the sync overview: product totals, last run and schedule.
// GET /api/v1/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	summary, err := h.status.Summary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toStatusResponse(summary))
}

// TriggerRun starts a sync cycle immediately. The cycle runs to completion
// before the response is written; a cycle already in flight yields 409.
// POST /api/v1/sync/run
func (h *SyncHandler) TriggerRun(c *gin.Context) {
	run, err := h.engine.RunCycle(c.Request.Context())
	if err != nil && run == nil {
		h.HandleError(c, err)
		return
	}
	// A failed cycle still produced a run record worth returning.
	h.Success(c, toRunResponse(run))
}

// ListLogs returns the paginated sync log, optionally filtered by a
// case-insensitive SKU / product name match.
// GET /api/v1/sync/logs?q=&page=&page_size=
func (h *SyncHandler) ListLogs(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		h.BadRequest(c, "invalid page parameter")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		h.BadRequest(c, "invalid page_size parameter")
		return
	}

	filter := domain.LogFilter{
		Query:    c.Query("q"),
		Page:     page,
		PageSize: pageSize,
	}
	entries, total, err := h.status.Logs(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toLogEntryResponses(entries), total, page, pageSize)
}

// GetLog returns one log entry with its per-field change set.
// GET /api/v1/sync/logs/:id
func (h *SyncHandler) GetLog(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid log entry ID")
		return
	}

	entry, err := h.status.LogDetail(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, LogDetailResponse{
		LogEntryResponse: toLogEntryResponse(*entry),
		ChangedFields:    entry.ChangedFields,
	})
}

// ListRunErrors returns the item errors recorded for one run.
// GET /api/v1/sync/runs/:id/errors
func (h *SyncHandler) ListRunErrors(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid run ID")
		return
	}

	itemErrs, err := h.status.RunErrors(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toItemErrorResponses(itemErrs))
}

// GetSettings returns the current engine settings.
// GET /api/v1/sync/settings
func (h *SyncHandler) GetSettings(c *gin.Context) {
	settings, err := h.status.Settings(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettingsResponse(settings))
}

// UpdateSettings replaces the engine settings. The new values take effect
// at the start of the next cycle.
// PUT /api/v1/sync/settings
func (h *SyncHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	settings := domain.Settings{
		PollInterval:   time.Duration(req.PollIntervalMinutes) * time.Minute,
		PageSize:       req.PageSize,
		MaxRetries:     req.MaxRetries,
		BaseRetryDelay: time.Duration(req.BaseRetryDelaySeconds) * time.Second,
		Mode:           domain.Mode(req.Mode),
	}
	if err := h.status.UpdateSettings(c.Request.Context(), settings); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettingsResponse(settings))
}

// CheckProduct returns the local mirror row and the destination's live view
// of one SKU side by side.
// GET /api/v1/products/:sku/check
func (h *SyncHandler) CheckProduct(c *gin.Context) {
	sku := c.Param("sku")
	if sku == "" {
		h.BadRequest(c, "sku is required")
		return
	}

	check, err := h.status.CheckProduct(c.Request.Context(), sku)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductCheckResponse(check))
}

// SyncProduct runs the full pipeline for one SKU on demand.
// POST /api/v1/products/:sku/sync
func (h *SyncHandler) SyncProduct(c *gin.Context) {
	sku := c.Param("sku")
	if sku == "" {
		h.BadRequest(c, "sku is required")
		return
	}

	result, err := h.engine.SyncProduct(c.Request.Context(), sku)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SyncProductResponse{
		SKU:    result.SKU,
		Action: string(result.Action),
		RunID:  result.RunID.String(),
	})
}
