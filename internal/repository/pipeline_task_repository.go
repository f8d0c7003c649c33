package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// PipelineTaskRepository handles database operations for pipeline tasks
type PipelineTaskRepository struct {
	db *sql.DB
}

// NewPipelineTaskRepository creates a new pipeline task repository
func NewPipelineTaskRepository(db *sql.DB) *PipelineTaskRepository {
	return &PipelineTaskRepository{db: db}
}

const taskColumns = `id, run_id, stage, status, progress_percent,
	total_records, processed_records, failed_records,
	params_json, summary_json, error_message,
	created_at, started_at, completed_at`

func scanPipelineTask(scanner interface{ Scan(...interface{}) error }) (*models.PipelineTask, error) {
	task := &models.PipelineTask{}
	var createdAt string
	var paramsJSON, summaryJSON, errorMessage sql.NullString
	var startedAt, completedAt sql.NullString
	err := scanner.Scan(
		&task.ID,
		&task.RunID,
		&task.Stage,
		&task.Status,
		&task.ProgressPercent,
		&task.TotalRecords,
		&task.ProcessedRecs,
		&task.FailedRecords,
		&paramsJSON,
		&summaryJSON,
		&errorMessage,
		&createdAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	task.ParamsJSON = paramsJSON.String
	task.SummaryJSON = summaryJSON.String
	task.ErrorMessage = errorMessage.String
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if task.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	return task, nil
}

// Create inserts a new pipeline task and fills in its assigned ID
func (r *PipelineTaskRepository) Create(task *models.PipelineTask) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pipeline_tasks (
			run_id, stage, status, progress_percent,
			total_records, processed_records, failed_records,
			params_json, summary_json, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		task.RunID,
		task.Stage,
		task.Status,
		task.ProgressPercent,
		task.TotalRecords,
		task.ProcessedRecs,
		task.FailedRecords,
		task.ParamsJSON,
		task.SummaryJSON,
		task.ErrorMessage,
		formatTime(task.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	return nil
}

// GetByID retrieves a pipeline task by ID
func (r *PipelineTaskRepository) GetByID(id int64) (*models.PipelineTask, error) {
	row := r.db.QueryRow("SELECT "+taskColumns+" FROM pipeline_tasks WHERE id = ?", id)
	task, err := scanPipelineTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pipeline task not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline task: %w", err)
	}
	return task, nil
}

// List retrieves pipeline tasks with optional filters
func (r *PipelineTaskRepository) List(runID string, stage string, status string, limit int, offset int) ([]*models.PipelineTask, error) {
	query := "SELECT " + taskColumns + " FROM pipeline_tasks WHERE 1=1"

	args := []interface{}{}
	if runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	if stage != "" {
		query += " AND stage = ?"
		args = append(args, stage)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.PipelineTask
	for rows.Next() {
		task, err := scanPipelineTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateProgress updates the progress counters of a pipeline task
func (r *PipelineTaskRepository) UpdateProgress(id int64, processed int64, failed int64, progressPercent float64) error {
	query := `
		UPDATE pipeline_tasks
		SET processed_records = ?, failed_records = ?, progress_percent = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, processed, failed, progressPercent, id)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// MarkAsRunning marks a task as running
func (r *PipelineTaskRepository) MarkAsRunning(id int64) error {
	query := `
		UPDATE pipeline_tasks
		SET status = ?, started_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusRunning, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}
	return nil
}

// MarkAsCompleted marks a task as completed with a summary of what it wrote
func (r *PipelineTaskRepository) MarkAsCompleted(id int64, summaryJSON string) error {
	query := `
		UPDATE pipeline_tasks
		SET status = ?, completed_at = ?, summary_json = ?, progress_percent = 100
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusCompleted, formatTime(time.Now().UTC()), summaryJSON, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}
	return nil
}

// MarkAsFailed marks a task as failed with an error message
func (r *PipelineTaskRepository) MarkAsFailed(id int64, errorMessage string) error {
	query := `
		UPDATE pipeline_tasks
		SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusFailed, formatTime(time.Now().UTC()), errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as failed: %w", err)
	}
	return nil
}
