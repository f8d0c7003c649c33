package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/pipeline/inference"
	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// AnalyticsHandler handles HTTP requests for dataset-level metrics
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// GetTrackingQuality handles GET /api/v1/analytics/tracking-quality
func (h *AnalyticsHandler) GetTrackingQuality(c *gin.Context) {
	granularity := c.DefaultQuery("granularity", "all")

	qualities, summary, err := h.service.TrackingQuality(granularity)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to compute tracking quality", err)
		return
	}

	response.Success(c, gin.H{
		"granularity": granularity,
		"data":        qualities,
		"summary":     summary,
	})
}

// GetModalSplit handles GET /api/v1/analytics/modal-split
func (h *AnalyticsHandler) GetModalSplit(c *gin.Context) {
	cfg := inference.SplitConfig{
		Freq:    inference.Frequency(c.Query("freq")),
		Metric:  inference.Metric(c.DefaultQuery("metric", "count")),
		PerUser: c.Query("perUser") == "true",
		Norm:    c.Query("norm") == "true",
	}

	shares, err := h.service.ModalSplit(cfg)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to compute modal split", err)
		return
	}

	response.Success(c, gin.H{"data": shares})
}

// GetUserMobility handles GET /api/v1/analytics/user-mobility
func (h *AnalyticsHandler) GetUserMobility(c *gin.Context) {
	summaries, err := h.service.UserMobilitySummaries()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to compute user mobility", err)
		return
	}

	response.Success(c, gin.H{"data": summaries})
}

// GetModeStatistics handles GET /api/v1/analytics/mode-statistics
func (h *AnalyticsHandler) GetModeStatistics(c *gin.Context) {
	modeStats, err := h.service.ModeStatistics()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to compute mode statistics", err)
		return
	}

	response.Success(c, gin.H{"data": modeStats})
}
