package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetProgress returns the current progress of a task from the database
func (s *BaseStage) GetProgress(taskID int64) (*Progress, error) {
	query := `
		SELECT processed_records, total_records, failed_records, progress_percent
		FROM pipeline_tasks
		WHERE id = ?
	`

	var progress Progress
	err := s.DB.QueryRow(query, taskID).Scan(
		&progress.Processed,
		&progress.Total,
		&progress.Failed,
		&progress.Percent,
	)
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

// GetTaskParams unmarshals the task's params_json into dst. Tasks created
// without parameters leave dst untouched so stage defaults apply.
func (s *BaseStage) GetTaskParams(taskID int64, dst interface{}) error {
	info, err := s.GetTaskInfo(taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %d: %w", taskID, err)
	}
	if info.ParamsJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(info.ParamsJSON), dst); err != nil {
		return fmt.Errorf("failed to parse task params: %w", err)
	}
	return nil
}

// RunTracked wraps a stage body with the task lifecycle: marks the task
// running, executes fn, and records completion with a summary or failure
// with the error message. Context cancellation is reported as a failure.
func (s *BaseStage) RunTracked(ctx context.Context, taskID int64, fn func(ctx context.Context) (summary interface{}, err error)) error {
	if err := s.MarkTaskAsRunning(taskID); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	summary, err := fn(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if markErr := s.MarkTaskAsFailed(taskID, err.Error()); markErr != nil {
			return fmt.Errorf("failed to mark task as failed: %w", markErr)
		}
		return err
	}

	summaryJSON := ""
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to marshal task summary: %w", err)
		}
		summaryJSON = string(b)
	}

	if err := s.MarkTaskAsCompleted(taskID, summaryJSON); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}
	return nil
}

// Transaction executes a function within a database transaction
func (s *BaseStage) Transaction(fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
