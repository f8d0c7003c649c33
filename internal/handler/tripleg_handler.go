package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// TriplegHandler handles HTTP requests for triplegs
type TriplegHandler struct {
	service *service.TriplegService
}

// NewTriplegHandler creates a new tripleg handler
func NewTriplegHandler(service *service.TriplegService) *TriplegHandler {
	return &TriplegHandler{service: service}
}

// GetTriplegs handles GET /api/v1/triplegs
func (h *TriplegHandler) GetTriplegs(c *gin.Context) {
	var filter models.TriplegFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	tpls, total, err := h.service.GetTriplegs(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get triplegs", err)
		return
	}

	paginated(c, tpls, total, filter.Page, filter.PageSize)
}

// GetTriplegByID handles GET /api/v1/triplegs/:id
func (h *TriplegHandler) GetTriplegByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid tripleg ID", err)
		return
	}

	tpl, err := h.service.GetTriplegByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get tripleg", err)
		return
	}
	if tpl == nil {
		response.Error(c, http.StatusNotFound, "Tripleg not found", nil)
		return
	}

	response.Success(c, tpl)
}
