package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// TripHandler handles HTTP requests for trips and tours
type TripHandler struct {
	service *service.TripService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service *service.TripService) *TripHandler {
	return &TripHandler{service: service}
}

// GetTrips handles GET /api/v1/trips
func (h *TripHandler) GetTrips(c *gin.Context) {
	var filter models.TripFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	trips, total, err := h.service.GetTrips(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get trips", err)
		return
	}

	paginated(c, trips, total, filter.Page, filter.PageSize)
}

// GetTripByID handles GET /api/v1/trips/:id
func (h *TripHandler) GetTripByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid trip ID", err)
		return
	}

	trip, err := h.service.GetTripByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get trip", err)
		return
	}
	if trip == nil {
		response.Error(c, http.StatusNotFound, "Trip not found", nil)
		return
	}

	response.Success(c, trip)
}

// GetTours handles GET /api/v1/tours
func (h *TripHandler) GetTours(c *gin.Context) {
	var filter models.TourFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	tours, total, err := h.service.GetTours(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get tours", err)
		return
	}

	paginated(c, tours, total, filter.Page, filter.PageSize)
}

// GetTourByID handles GET /api/v1/tours/:id
func (h *TripHandler) GetTourByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid tour ID", err)
		return
	}

	tour, assignments, err := h.service.GetTourByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get tour", err)
		return
	}
	if tour == nil {
		response.Error(c, http.StatusNotFound, "Tour not found", nil)
		return
	}

	response.Success(c, gin.H{
		"tour":  tour,
		"trips": assignments,
	})
}
