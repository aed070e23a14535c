package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts well-known sync errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var code string
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		code = dto.ErrCodeSyncInProgress
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrEntryNotFound):
		code = dto.ErrCodeNotFound
	case errors.Is(err, domain.ErrValidation):
		code = dto.ErrCodeValidation
	case errors.Is(err, domain.ErrSourceUnavailable):
		code = dto.ErrCodeSourceUnavailable
	case errors.Is(err, domain.ErrPushFailed),
		errors.Is(err, domain.ErrTransientPush),
		errors.Is(err, domain.ErrAuthExpired):
		code = dto.ErrCodePushFailed
	default:
		h.InternalError(c, "An unexpected error occurred")
		return
	}

	h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
}
