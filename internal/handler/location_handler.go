package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// LocationHandler handles HTTP requests for locations
type LocationHandler struct {
	service *service.LocationService
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(service *service.LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

// GetLocations handles GET /api/v1/locations
func (h *LocationHandler) GetLocations(c *gin.Context) {
	var filter models.LocationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	locs, total, err := h.service.GetLocations(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get locations", err)
		return
	}

	paginated(c, locs, total, filter.Page, filter.PageSize)
}

// GetLocationByID handles GET /api/v1/locations/:id
func (h *LocationHandler) GetLocationByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid location ID", err)
		return
	}

	loc, err := h.service.GetLocationByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get location", err)
		return
	}
	if loc == nil {
		response.Error(c, http.StatusNotFound, "Location not found", nil)
		return
	}

	response.Success(c, loc)
}
