package models

import "time"

// AnalysisTask tracks one run of a batch job
type AnalysisTask struct {
	ID    int64  `json:"id" db:"id"`
	RunID string `json:"run_id" db:"run_id"`

	SkillName string `json:"skill_name" db:"skill_name"` // daily_metrics, route_segments, anomaly_scan

	// Status
	Status          string `json:"status" db:"status"` // pending, running, completed, failed, cancelled
	ProgressPercent int    `json:"progress_percent" db:"progress_percent"`

	ParamsJSON string `json:"params_json,omitempty" db:"params_json"`

	// Execution info
	TotalGroups     int   `json:"total_groups" db:"total_groups"`
	ProcessedGroups int   `json:"processed_groups" db:"processed_groups"`
	SkippedGroups   int   `json:"skipped_groups" db:"skipped_groups"`
	StartTime       int64 `json:"start_time,omitempty" db:"start_time"` // Unix timestamp
	EndTime         int64 `json:"end_time,omitempty" db:"end_time"`     // Unix timestamp

	// Results
	ResultSummary string `json:"result_summary,omitempty" db:"result_summary"` // JSON object
	ErrorMessage  string `json:"error_message,omitempty" db:"error_message"`

	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TaskStatus constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// TaskSummary is serialized into AnalysisTask.ResultSummary
type TaskSummary struct {
	Groups        int `json:"groups"`
	SkippedGroups int `json:"skipped_groups"`
	RowsWritten   int `json:"rows_written"`
	Records       int `json:"records"`
}
