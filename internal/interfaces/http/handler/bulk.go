package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bulkapp "github.com/adsync/backend/internal/application/bulk"
	"github.com/adsync/backend/internal/interfaces/http/dto"
)

// BulkHandler handles bulk sheet generation and ingestion endpoints
type BulkHandler struct {
	BaseHandler
	transcoder *bulkapp.Transcoder
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(transcoder *bulkapp.Transcoder) *BulkHandler {
	return &BulkHandler{transcoder: transcoder}
}

// Generate godoc
// @Summary      Generate a bulk sheet
// @Description  Export the selected campaigns as a bulk sheet. The sheet is byte-stable: the same selection always produces identical output. The artifact is stored and downloadable through the artifact URL endpoint.
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Param        request body dto.GenerateSheetRequest true "Sheet generation request"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bulk/sheets [post]
func (h *BulkHandler) Generate(c *gin.Context) {
	var req dto.GenerateSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	campaignIDs, err := req.ParseCampaignIDs()
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID format")
		return
	}

	_, op, err := h.transcoder.Generate(c.Request.Context(), campaignIDs, req.Options())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, op)
}

// Ingest godoc
// @Summary      Ingest a bulk sheet
// @Description  Apply an edited bulk sheet. Rows are validated and applied independently; a failing row never blocks the others. Pass validate_only=true to stage without persisting.
// @Tags         bulk
// @Accept       text/csv
// @Produce      json
// @Param        validate_only query bool false "Validate without applying"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bulk/sheets/ingest [post]
func (h *BulkHandler) Ingest(c *gin.Context) {
	var query dto.IngestSheetQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	data, err := h.readSheet(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if len(data) == 0 {
		h.BadRequest(c, "Request body is empty")
		return
	}

	op, err := h.transcoder.Ingest(c.Request.Context(), data, query.ValidateOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, op)
}

// readSheet accepts either a multipart upload under the "file" field or
// the raw request body
func (h *BulkHandler) readSheet(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}

// GetOperation returns a bulk operation with its per-row report
func (h *BulkHandler) GetOperation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid operation ID format")
		return
	}

	op, err := h.transcoder.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, op)
}

// ListOperations returns recent bulk operations
func (h *BulkHandler) ListOperations(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ops, err := h.transcoder.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ops)
}

// ArtifactURL returns a short-lived download URL for a generated sheet
func (h *BulkHandler) ArtifactURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid operation ID format")
		return
	}

	url, err := h.transcoder.ArtifactURL(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ArtifactURLResponse{URL: url})
}
