package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// ExportHandler handles HTTP requests for the PostGIS export
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *service.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportToPostGIS handles POST /api/v1/export/postgis
func (h *ExportHandler) ExportToPostGIS(c *gin.Context) {
	counts, err := h.service.ExportToPostGIS(c.Request.Context())
	if errors.Is(err, service.ErrExportDisabled) {
		response.Error(c, http.StatusServiceUnavailable, "PostGIS export is not configured", err)
		return
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to export to PostGIS", err)
		return
	}

	response.Success(c, counts)
}
