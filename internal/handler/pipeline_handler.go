package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/service"
	"github.com/jharte/mobility-backend-go/pkg/response"
)

// PipelineHandler handles HTTP requests for pipeline runs and tasks
type PipelineHandler struct {
	service *service.PipelineTaskService
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(service *service.PipelineTaskService) *PipelineHandler {
	return &PipelineHandler{service: service}
}

// RunRequest is the body of POST /api/v1/pipeline/runs. Stages defaults to
// the full chain; Params holds per-stage overrides keyed by stage name.
type RunRequest struct {
	Stages []string                          `json:"stages"`
	Params map[string]map[string]interface{} `json:"params"`
}

// CreateRun handles POST /api/v1/pipeline/runs
func (h *PipelineHandler) CreateRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	runID, tasks, err := h.service.RunPipeline(req.Stages, req.Params)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to start pipeline run", err)
		return
	}

	response.Success(c, gin.H{
		"run_id": runID,
		"tasks":  tasks,
	})
}

// TaskRequest is the body of POST /api/v1/pipeline/tasks.
type TaskRequest struct {
	Stage  string                 `json:"stage" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// CreateTask handles POST /api/v1/pipeline/tasks
func (h *PipelineHandler) CreateTask(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	task, err := h.service.CreateTask(req.Stage, req.Params)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to create pipeline task", err)
		return
	}

	response.Success(c, task)
}

// GetTasks handles GET /api/v1/pipeline/tasks
func (h *PipelineHandler) GetTasks(c *gin.Context) {
	runID := c.Query("runId")
	stage := c.Query("stage")
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, err := h.service.ListTasks(runID, stage, status, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get pipeline tasks", err)
		return
	}

	response.Success(c, gin.H{"data": tasks})
}

// GetTaskByID handles GET /api/v1/pipeline/tasks/:id
func (h *PipelineHandler) GetTaskByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid task ID", err)
		return
	}

	task, err := h.service.GetTask(id)
	if err != nil {
		response.Error(c, http.StatusNotFound, "Pipeline task not found", err)
		return
	}

	response.Success(c, task)
}
