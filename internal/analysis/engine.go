package analysis

import (
	"context"
	"database/sql"

	"github.com/jharte/mobility-backend-go/internal/config"
)

// Stage is the interface that all pipeline stages must implement
type Stage interface {
	// Run executes the stage for a given pipeline task over the full dataset
	Run(ctx context.Context, taskID int64) error

	// GetProgress returns the current progress of the stage
	GetProgress(taskID int64) (*Progress, error)

	// GetName returns the name of the stage
	GetName() string
}

// Progress represents the progress of a pipeline task
type Progress struct {
	Processed int     // Number of records processed
	Total     int     // Total number of records to process
	Failed    int     // Number of failed records
	Percent   float64 // Progress percentage (0-100)
	Message   string  // Optional progress message
}

// BaseStage provides common functionality for all pipeline stages
type BaseStage struct {
	DB   *sql.DB
	Name string
}

// NewBaseStage creates a new base stage
func NewBaseStage(db *sql.DB, name string) *BaseStage {
	return &BaseStage{
		DB:   db,
		Name: name,
	}
}

// GetName returns the stage name
func (s *BaseStage) GetName() string {
	return s.Name
}

// UpdateTaskProgress updates the progress of a pipeline task in the database
func (s *BaseStage) UpdateTaskProgress(taskID int64, processed, total, failed int) error {
	percent := 0.0
	if total > 0 {
		percent = float64(processed) / float64(total) * 100.0
	}

	query := `
		UPDATE pipeline_tasks
		SET processed_records = ?,
		    total_records = ?,
		    failed_records = ?,
		    progress_percent = ?
		WHERE id = ?
	`

	_, err := s.DB.Exec(query, processed, total, failed, percent, taskID)
	return err
}

// MarkTaskAsRunning marks a task as running
func (s *BaseStage) MarkTaskAsRunning(taskID int64) error {
	query := `
		UPDATE pipeline_tasks
		SET status = 'running',
		    started_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?
	`

	_, err := s.DB.Exec(query, taskID)
	return err
}

// MarkTaskAsCompleted marks a task as completed with a summary of its output
func (s *BaseStage) MarkTaskAsCompleted(taskID int64, summaryJSON string) error {
	query := `
		UPDATE pipeline_tasks
		SET status = 'completed',
		    progress_percent = 100,
		    summary_json = ?,
		    completed_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?
	`

	_, err := s.DB.Exec(query, summaryJSON, taskID)
	return err
}

// MarkTaskAsFailed marks a task as failed with an error message
func (s *BaseStage) MarkTaskAsFailed(taskID int64, errorMsg string) error {
	query := `
		UPDATE pipeline_tasks
		SET status = 'failed',
		    error_message = ?,
		    completed_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?
	`

	_, err := s.DB.Exec(query, errorMsg, taskID)
	return err
}

// GetTaskInfo retrieves task information from the database
func (s *BaseStage) GetTaskInfo(taskID int64) (*TaskInfo, error) {
	query := `
		SELECT id, run_id, stage, status, progress_percent,
		       total_records, processed_records, failed_records,
		       params_json, created_at, started_at, completed_at
		FROM pipeline_tasks
		WHERE id = ?
	`

	var info TaskInfo
	var paramsJSON sql.NullString
	var startedAt, completedAt sql.NullString

	err := s.DB.QueryRow(query, taskID).Scan(
		&info.ID, &info.RunID, &info.Stage, &info.Status,
		&info.ProgressPercent, &info.TotalRecords, &info.ProcessedRecords,
		&info.FailedRecords, &paramsJSON, &info.CreatedAt,
		&startedAt, &completedAt,
	)

	if err != nil {
		return nil, err
	}

	info.ParamsJSON = paramsJSON.String

	if startedAt.Valid {
		info.StartedAt = &startedAt.String
	}
	if completedAt.Valid {
		info.CompletedAt = &completedAt.String
	}

	return &info, nil
}

// TaskInfo contains information about a pipeline task
type TaskInfo struct {
	ID               int64
	RunID            string
	Stage            string
	Status           string
	ProgressPercent  float64
	TotalRecords     int
	ProcessedRecords int
	FailedRecords    int
	ParamsJSON       string
	CreatedAt        string
	StartedAt        *string
	CompletedAt      *string
}

// StageFactory is a function that creates a stage instance
type StageFactory func(db *sql.DB, cfg config.PipelineConfig) Stage

// StageRegistry maps stage names to stage factories
var StageRegistry = make(map[string]StageFactory)

// RegisterStage registers a stage factory for a stage name
func RegisterStage(stageName string, factory StageFactory) {
	StageRegistry[stageName] = factory
}

// GetStage retrieves a stage instance for a stage name
func GetStage(stageName string, db *sql.DB, cfg config.PipelineConfig) Stage {
	factory, ok := StageRegistry[stageName]
	if !ok {
		return nil
	}
	return factory(db, cfg)
}

// IsKnownStage checks whether a stage name has a registered implementation
func IsKnownStage(stageName string) bool {
	_, ok := StageRegistry[stageName]
	return ok
}
