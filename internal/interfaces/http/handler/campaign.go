package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	campaignapp "github.com/adsync/backend/internal/application/campaign"
	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/interfaces/http/dto"
)

// CampaignHandler handles campaign and creative API endpoints
type CampaignHandler struct {
	BaseHandler
	campaigns *campaignapp.Service
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(campaigns *campaignapp.Service) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

// Create godoc
// @Summary      Create a new campaign
// @Description  Create a campaign in draft state with budget, flight dates and targeting intent
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateCampaignRequest true "Campaign creation request"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns [post]
func (h *CampaignHandler) Create(c *gin.Context) {
	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	created, err := h.campaigns.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, created)
}

// GetByID godoc
// @Summary      Get campaign by ID
// @Tags         campaigns
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns/{id} [get]
func (h *CampaignHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	found, err := h.campaigns.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, found)
}

// List godoc
// @Summary      List campaigns
// @Tags         campaigns
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Param        search query string false "Search by name"
// @Success      200 {object} dto.Response{meta=dto.Meta}
// @Router       /campaigns [get]
func (h *CampaignHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := req.ToFilter()
	campaigns, total, err := h.campaigns.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, campaigns, total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary      Update campaign intent
// @Description  Update the intent fields of a campaign. Delivery facts are never updatable through this path.
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body dto.UpdateCampaignRequest true "Campaign update request"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns/{id} [put]
func (h *CampaignHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	var req dto.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.campaigns.Update(c.Request.Context(), id, req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, updated)
}

// Activate transitions a campaign to active
func (h *CampaignHandler) Activate(c *gin.Context) {
	h.transition(c, h.campaigns.Activate)
}

// Pause transitions a campaign to paused
func (h *CampaignHandler) Pause(c *gin.Context) {
	h.transition(c, h.campaigns.Pause)
}

// Complete transitions a campaign to completed
func (h *CampaignHandler) Complete(c *gin.Context) {
	h.transition(c, h.campaigns.Complete)
}

// Archive godoc
// @Summary      Archive or delete a campaign
// @Description  Archive a campaign and detach its creatives and platform bindings. With purge=true the campaign row is hard-deleted instead; refused with 422 once any delivery spend has been recorded, because archival is the only removal path for spend-bearing campaigns.
// @Tags         campaigns
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        purge query bool false "Hard-delete the campaign row instead of archiving"
// @Success      200 {object} dto.Response
// @Success      204 "Campaign hard-deleted"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns/{id} [delete]
func (h *CampaignHandler) Archive(c *gin.Context) {
	if c.Query("purge") == "true" {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.BadRequest(c, "Invalid campaign ID format")
			return
		}
		if err := h.campaigns.Delete(c.Request.Context(), id); err != nil {
			h.HandleError(c, err)
			return
		}
		h.NoContent(c)
		return
	}
	h.transition(c, h.campaigns.Archive)
}

// AddCreative godoc
// @Summary      Attach a creative to a campaign
// @Tags         creatives
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body dto.CreateCreativeRequest true "Creative creation request"
// @Success      201 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns/{id}/creatives [post]
func (h *CampaignHandler) AddCreative(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	var req dto.CreateCreativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	creative, err := h.campaigns.AddCreative(c.Request.Context(), campaignID, req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, creative)
}

// ListCreatives returns all creatives attached to a campaign
func (h *CampaignHandler) ListCreatives(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	creatives, err := h.campaigns.ListCreatives(c.Request.Context(), campaignID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, creatives)
}

// GetCreative returns a single creative, checking campaign ownership
func (h *CampaignHandler) GetCreative(c *gin.Context) {
	campaignID, creativeID, ok := h.creativePath(c)
	if !ok {
		return
	}

	creative, err := h.campaigns.GetCreative(c.Request.Context(), campaignID, creativeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, creative)
}

// SetCreativeStatus godoc
// @Summary      Transition a creative's status
// @Description  Move a creative through its processing lifecycle. Reaching active emits a processed notification.
// @Tags         creatives
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        creative_id path string true "Creative ID" format(uuid)
// @Param        request body dto.SetCreativeStatusRequest true "Status transition request"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns/{id}/creatives/{creative_id}/status [put]
func (h *CampaignHandler) SetCreativeStatus(c *gin.Context) {
	campaignID, creativeID, ok := h.creativePath(c)
	if !ok {
		return
	}

	var req dto.SetCreativeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	creative, err := h.campaigns.SetCreativeStatus(c.Request.Context(), campaignID, creativeID,
		campaign.CreativeStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, creative)
}

// ProcessCreative godoc
// @Summary      Process a creative's snippet for the execution platform
// @Description  Transform the uploaded snippet (viewability tag handling, macro mapping, cache buster) and activate the creative. A failed transform leaves the creative in failed status with the report attached.
// @Tags         creatives
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        creative_id path string true "Creative ID" format(uuid)
// @Param        request body dto.ProcessCreativeRequest false "Processing options"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns/{id}/creatives/{creative_id}/process [post]
func (h *CampaignHandler) ProcessCreative(c *gin.Context) {
	campaignID, creativeID, ok := h.creativePath(c)
	if !ok {
		return
	}

	var req dto.ProcessCreativeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		h.BadRequest(c, err.Error())
		return
	}

	creative, err := h.campaigns.ProcessCreative(c.Request.Context(), campaignID, creativeID,
		campaign.ViewabilityPhase(req.ViewabilityPhase))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, creative)
}

func (h *CampaignHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*campaign.Campaign, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	updated, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, updated)
}

func (h *CampaignHandler) creativePath(c *gin.Context) (campaignID, creativeID uuid.UUID, ok bool) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return uuid.Nil, uuid.Nil, false
	}
	creativeID, err = uuid.Parse(c.Param("creative_id"))
	if err != nil {
		h.BadRequest(c, "Invalid creative ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return campaignID, creativeID, true
}
