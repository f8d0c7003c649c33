package models

import "time"

// Pipeline task status constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Pipeline stage names, as registered in the analysis registry
const (
	StageSegmentation   = "segmentation"
	StageClustering     = "clustering"
	StageReconstruction = "reconstruction"
	StageInference      = "inference"
)

// PipelineTask tracks one invocation of a pipeline stage over the stored
// dataset. RunID groups the stages launched by a single pipeline run.
type PipelineTask struct {
	ID    int64  `json:"id" db:"id"`
	RunID string `json:"run_id" db:"run_id"` // uuid of the pipeline run
	Stage string `json:"stage" db:"stage"`

	Status          string  `json:"status" db:"status"`
	ProgressPercent float64 `json:"progress_percent" db:"progress_percent"`
	TotalRecords    int64   `json:"total_records" db:"total_records"`
	ProcessedRecs   int64   `json:"processed_records" db:"processed_records"`
	FailedRecords   int64   `json:"failed_records" db:"failed_records"`

	ParamsJSON   string `json:"params_json,omitempty" db:"params_json"`
	SummaryJSON  string `json:"summary_json,omitempty" db:"summary_json"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
