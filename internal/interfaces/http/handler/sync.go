package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/adsync/backend/internal/application/sync"
	domainsync "github.com/adsync/backend/internal/domain/sync"
	"github.com/adsync/backend/internal/interfaces/http/dto"
)

// SyncHandler handles sync job and platform binding API endpoints
type SyncHandler struct {
	BaseHandler
	orchestrator *syncapp.Orchestrator
	adapters     domainsync.AdapterRegistry
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orchestrator *syncapp.Orchestrator, adapters domainsync.AdapterRegistry) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		adapters:     adapters,
	}
}

// Submit godoc
// @Summary      Submit a sync job
// @Description  Submit a push or pull job for a campaign. Admission rejects a job while another is in flight for the same campaign and platform.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body dto.SubmitSyncRequest true "Sync submission request"
// @Success      202 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /campaigns/{id}/sync [post]
func (h *SyncHandler) Submit(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	var req dto.SubmitSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput(campaignID)
	if err != nil {
		h.BadRequest(c, "Invalid creative ID format")
		return
	}

	job, err := h.orchestrator.Submit(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, job)
}

// Status returns a sync job with its per-item outcomes
func (h *SyncHandler) Status(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID format")
		return
	}

	job, err := h.orchestrator.Status(c.Request.Context(), jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, job)
}

// History returns past sync jobs for a campaign, newest first
func (h *SyncHandler) History(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	jobs, err := h.orchestrator.History(c.Request.Context(), campaignID, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, jobs)
}

// ListBindings returns the campaign's per-platform bindings with remote
// IDs and version markers
func (h *SyncHandler) ListBindings(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	bindings, err := h.orchestrator.ListBindings(c.Request.Context(), campaignID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bindings)
}

// Cancel godoc
// @Summary      Cancel a sync job
// @Description  Cancel a pending or running job. Items already transferred stay transferred; remaining work is skipped.
// @Tags         sync
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/jobs/{id}/cancel [post]
func (h *SyncHandler) Cancel(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID format")
		return
	}

	if err := h.orchestrator.Cancel(c.Request.Context(), jobID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RetryFailed resubmits only the failed portion of a finished job
func (h *SyncHandler) RetryFailed(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID format")
		return
	}

	job, err := h.orchestrator.RetryFailed(c.Request.Context(), jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, job)
}

// ListPlatforms returns the platform codes with a configured adapter
func (h *SyncHandler) ListPlatforms(c *gin.Context) {
	adapters := h.adapters.ListAdapters()
	codes := make([]domainsync.PlatformCode, 0, len(adapters))
	for _, a := range adapters {
		codes = append(codes, a.PlatformCode())
	}
	h.Success(c, codes)
}
