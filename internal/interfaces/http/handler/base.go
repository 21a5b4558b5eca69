package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adsync/backend/internal/domain/bulk"
	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/shared"
	domainsync "github.com/adsync/backend/internal/domain/sync"
	"github.com/adsync/backend/internal/domain/webhook"
	"github.com/adsync/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response for work that continues asynchronously
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	statusCode := dto.GetHTTPStatus(code)
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

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// notFoundErrors map to 404
var notFoundErrors = []error{
	campaign.ErrCampaignNotFound,
	campaign.ErrCreativeNotFound,
	domainsync.ErrJobNotFound,
	domainsync.ErrBindingNotFound,
	domainsync.ErrRemoteCampaignNotFound,
	bulk.ErrOperationNotFound,
	webhook.ErrEventNotFound,
}

// invalidStateErrors map to 422: the resource exists but its current
// state forbids the transition
var invalidStateErrors = []error{
	campaign.ErrCampaignTerminal,
	campaign.ErrCampaignNotActive,
	campaign.ErrCampaignHasSpend,
	campaign.ErrCreativeInvalidStatus,
	campaign.ErrCampaignInvalidStatus,
}

// badRequestErrors map to 400
var badRequestErrors = []error{
	campaign.ErrCampaignInvalidName,
	campaign.ErrCampaignInvalidBudget,
	campaign.ErrCampaignInvalidDates,
	campaign.ErrCampaignInvalidPhase,
	campaign.ErrCreativeInvalidName,
	campaign.ErrCreativeInvalidFormat,
	campaign.ErrCreativeNotOwned,
	campaign.ErrCreativeAlreadyAttached,
	campaign.ErrSpendDecreased,
	domainsync.ErrEmptyScope,
	domainsync.ErrUnknownPlatform,
	bulk.ErrEmptySelection,
	bulk.ErrNoRows,
	webhook.ErrInvalidKind,
}

// HandleError maps application and domain errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())
			return
		}
	}

	if errors.Is(err, domainsync.ErrConflict) {
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())
		return
	}

	for _, target := range invalidStateErrors {
		if errors.Is(err, target) {
			h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, err.Error())
			return
		}
	}

	var validationErr *domainsync.ValidationError
	if errors.As(err, &validationErr) {
		h.ValidationError(c, []dto.ValidationDetail{{
			Field:   validationErr.Field,
			Message: validationErr.Message,
		}})
		return
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
			return
		}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
