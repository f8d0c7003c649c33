package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jharte/mobility-backend-go/internal/analysis"
	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// DefaultStageOrder is the execution order of a full pipeline run. Trip and
// tour reconstruction comes last because it needs the activity flags the
// inference stage writes.
var DefaultStageOrder = []string{
	models.StageSegmentation,
	models.StageClustering,
	models.StageInference,
	models.StageReconstruction,
}

// PipelineTaskService handles pipeline task business logic
type PipelineTaskService struct {
	repo     *repository.PipelineTaskRepository
	db       *sql.DB
	defaults config.PipelineConfig
}

// NewPipelineTaskService creates a new pipeline task service
func NewPipelineTaskService(repo *repository.PipelineTaskRepository, db *sql.DB, defaults config.PipelineConfig) *PipelineTaskService {
	return &PipelineTaskService{
		repo:     repo,
		db:       db,
		defaults: defaults,
	}
}

// CreateTask creates a single-stage task and starts the stage worker
// asynchronously.
func (s *PipelineTaskService) CreateTask(stage string, params map[string]interface{}) (*models.PipelineTask, error) {
	if !analysis.IsKnownStage(stage) {
		return nil, fmt.Errorf("unknown pipeline stage: %s", stage)
	}

	task, err := s.createTaskRecord(uuid.NewString(), stage, params)
	if err != nil {
		return nil, err
	}

	go s.runStage(task.ID, stage)

	return task, nil
}

// RunPipeline creates one task per stage under a shared run id and executes
// them sequentially in the background. A failing stage aborts the run; its
// remaining tasks stay pending with the abort recorded.
func (s *PipelineTaskService) RunPipeline(stages []string, params map[string]map[string]interface{}) (string, []*models.PipelineTask, error) {
	if len(stages) == 0 {
		stages = DefaultStageOrder
	}
	for _, stage := range stages {
		if !analysis.IsKnownStage(stage) {
			return "", nil, fmt.Errorf("unknown pipeline stage: %s", stage)
		}
	}

	runID := uuid.NewString()
	tasks := make([]*models.PipelineTask, 0, len(stages))
	for _, stage := range stages {
		task, err := s.createTaskRecord(runID, stage, params[stage])
		if err != nil {
			return "", nil, err
		}
		tasks = append(tasks, task)
	}

	taskIDs := make([]int64, len(tasks))
	stageNames := make([]string, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
		stageNames[i] = t.Stage
	}

	go s.runChain(runID, taskIDs, stageNames)

	return runID, tasks, nil
}

func (s *PipelineTaskService) createTaskRecord(runID string, stage string, params map[string]interface{}) (*models.PipelineTask, error) {
	paramsJSON := ""
	if len(params) > 0 {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize params: %w", err)
		}
		paramsJSON = string(b)
	}

	task := &models.PipelineTask{
		RunID:      runID,
		Stage:      stage,
		Status:     models.TaskStatusPending,
		ParamsJSON: paramsJSON,
	}
	if err := s.repo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// runStage executes one stage in-process. Failures are recorded on the task
// by the stage itself.
func (s *PipelineTaskService) runStage(taskID int64, stageName string) error {
	log.Printf("[Pipeline] Starting stage %s (task_id=%d)", stageName, taskID)

	stage := analysis.GetStage(stageName, s.db, s.defaults)
	if stage == nil {
		log.Printf("[Pipeline] No implementation for stage %s", stageName)
		s.repo.MarkAsFailed(taskID, fmt.Sprintf("unknown stage: %s", stageName))
		return fmt.Errorf("unknown stage: %s", stageName)
	}

	if err := stage.Run(context.Background(), taskID); err != nil {
		log.Printf("[Pipeline] Stage %s failed (task_id=%d): %v", stageName, taskID, err)
		return err
	}

	log.Printf("[Pipeline] Stage %s completed (task_id=%d)", stageName, taskID)
	return nil
}

// runChain executes the run's stages in order, stopping at the first failure.
func (s *PipelineTaskService) runChain(runID string, taskIDs []int64, stages []string) {
	log.Printf("[Pipeline] Starting run %s with %d stages", runID, len(stages))

	for i := range taskIDs {
		if err := s.runStage(taskIDs[i], stages[i]); err != nil {
			for j := i + 1; j < len(taskIDs); j++ {
				s.repo.MarkAsFailed(taskIDs[j], fmt.Sprintf("aborted: stage %s failed", stages[i]))
			}
			log.Printf("[Pipeline] Run %s aborted at stage %s", runID, stages[i])
			return
		}
	}

	log.Printf("[Pipeline] Run %s completed", runID)
}

// GetTask retrieves a task by ID
func (s *PipelineTaskService) GetTask(id int64) (*models.PipelineTask, error) {
	return s.repo.GetByID(id)
}

// ListTasks retrieves tasks with optional filters
func (s *PipelineTaskService) ListTasks(runID string, stage string, status string, limit int, offset int) ([]*models.PipelineTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(runID, stage, status, limit, offset)
}
