package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// PositionfixHandler handles HTTP requests for positionfixes
type PositionfixHandler struct {
	service *service.PositionfixService
}

// NewPositionfixHandler creates a new positionfix handler
func NewPositionfixHandler(service *service.PositionfixService) *PositionfixHandler {
	return &PositionfixHandler{service: service}
}

// GetPositionfixes handles GET /api/v1/positionfixes
func (h *PositionfixHandler) GetPositionfixes(c *gin.Context) {
	var filter models.PositionfixFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	pfs, total, err := h.service.GetPositionfixes(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get positionfixes", err)
		return
	}

	paginated(c, pfs, total, filter.Page, filter.PageSize)
}

// ImportCSV handles POST /api/v1/positionfixes/import. The request body is a
// multipart upload with the CSV in the "file" field.
func (h *PositionfixHandler) ImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Missing file upload", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to open upload", err)
		return
	}
	defer file.Close()

	inserted, err := h.service.ImportCSV(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to import positionfixes", err)
		return
	}

	response.Success(c, gin.H{"inserted": inserted})
}
