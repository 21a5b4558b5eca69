package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	webhookapp "github.com/adsync/backend/internal/application/webhook"
	"github.com/adsync/backend/internal/domain/webhook"
)

const defaultEventLimit = 50

// WebhookHandler exposes the recorded webhook events for inspection
type WebhookHandler struct {
	BaseHandler
	emitter *webhookapp.Emitter
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(emitter *webhookapp.Emitter) *WebhookHandler {
	return &WebhookHandler{emitter: emitter}
}

// ListRecent godoc
// @Summary      List recent webhook events
// @Description  Returns the most recent webhook events of a kind, newest first
// @Tags         webhooks
// @Produce      json
// @Param        kind query string true "Event kind"
// @Param        limit query int false "Maximum events" default(50)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/events [get]
func (h *WebhookHandler) ListRecent(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		h.BadRequest(c, "Query parameter 'kind' is required")
		return
	}

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "Query parameter 'limit' must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.emitter.ListRecent(c.Request.Context(), webhook.Kind(kind), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, events)
}

// GetByID returns a single recorded webhook event
func (h *WebhookHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid event ID format")
		return
	}

	event, err := h.emitter.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, event)
}
