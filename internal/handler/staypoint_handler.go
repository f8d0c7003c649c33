package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// StaypointHandler handles HTTP requests for staypoints
type StaypointHandler struct {
	service *service.StaypointService
}

// NewStaypointHandler creates a new staypoint handler
func NewStaypointHandler(service *service.StaypointService) *StaypointHandler {
	return &StaypointHandler{service: service}
}

// GetStaypoints handles GET /api/v1/staypoints
func (h *StaypointHandler) GetStaypoints(c *gin.Context) {
	var filter models.StaypointFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	sps, total, err := h.service.GetStaypoints(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get staypoints", err)
		return
	}

	paginated(c, sps, total, filter.Page, filter.PageSize)
}

// GetStaypointByID handles GET /api/v1/staypoints/:id
func (h *StaypointHandler) GetStaypointByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid staypoint ID", err)
		return
	}

	sp, err := h.service.GetStaypointByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get staypoint", err)
		return
	}
	if sp == nil {
		response.Error(c, http.StatusNotFound, "Staypoint not found", nil)
		return
	}

	response.Success(c, sp)
}

// GetMergedStaypoints handles GET /api/v1/staypoints/merged. The maxGap
// query parameter is a Go duration string, default 10m.
func (h *StaypointHandler) GetMergedStaypoints(c *gin.Context) {
	maxGap := 10 * time.Minute
	if v := c.Query("maxGap"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid maxGap duration", err)
			return
		}
		maxGap = parsed
	}

	sps, err := h.service.GetMergedStaypoints(maxGap)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to merge staypoints", err)
		return
	}

	response.Success(c, gin.H{"data": sps, "total": len(sps)})
}
