package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/regps-supervision-go/internal/models"
)

var (
	// ErrTaskNotFound is returned when no task has the requested ID
	ErrTaskNotFound = errors.New("analysis task not found")
	// ErrTaskNotActive is returned when a status transition finds the task
	// already finished
	ErrTaskNotActive = errors.New("task is not pending or running")
)

const activeStatuses = `status IN ('` + models.TaskStatusPending + `','` + models.TaskStatusRunning + `')`

// AnalysisTaskRepository handles database operations for analysis tasks
type AnalysisTaskRepository struct {
	db *sql.DB
}

// NewAnalysisTaskRepository creates a new analysis task repository
func NewAnalysisTaskRepository(db *sql.DB) *AnalysisTaskRepository {
	return &AnalysisTaskRepository{db: db}
}

const taskColumns = `id, run_id, skill_name, status, progress_percent, params_json,
	total_groups, processed_groups, skipped_groups, start_time, end_time,
	result_summary, error_message, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.AnalysisTask, error) {
	task := &models.AnalysisTask{}
	var createdAt, updatedAt int64
	err := row.Scan(
		&task.ID,
		&task.RunID,
		&task.SkillName,
		&task.Status,
		&task.ProgressPercent,
		&task.ParamsJSON,
		&task.TotalGroups,
		&task.ProcessedGroups,
		&task.SkippedGroups,
		&task.StartTime,
		&task.EndTime,
		&task.ResultSummary,
		&task.ErrorMessage,
		&task.CreatedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.CreatedAt = time.Unix(createdAt, 0)
	task.UpdatedAt = time.Unix(updatedAt, 0)
	return task, nil
}

// Create creates a new analysis task
func (r *AnalysisTaskRepository) Create(task *models.AnalysisTask) error {
	query := `
		INSERT INTO analysis_tasks (
			run_id, skill_name, status, progress_percent, params_json,
			total_groups, processed_groups, skipped_groups, start_time, end_time,
			result_summary, error_message, created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		task.RunID,
		task.SkillName,
		task.Status,
		task.ProgressPercent,
		task.ParamsJSON,
		task.TotalGroups,
		task.ProcessedGroups,
		task.SkippedGroups,
		task.StartTime,
		task.EndTime,
		task.ResultSummary,
		task.ErrorMessage,
		task.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	return nil
}

// GetByID retrieves an analysis task by ID
func (r *AnalysisTaskRepository) GetByID(id int64) (*models.AnalysisTask, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis task: %w", err)
	}

	return task, nil
}

// List retrieves analysis tasks with optional filters
func (r *AnalysisTaskRepository) List(skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE 1=1`

	args := []interface{}{}
	if skillName != "" {
		query += " AND skill_name = ?"
		args = append(args, skillName)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.AnalysisTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateProgress updates the progress of an analysis task
func (r *AnalysisTaskRepository) UpdateProgress(id int64, totalGroups, processedGroups, skippedGroups, progressPercent int) error {
	query := `
		UPDATE analysis_tasks
		SET total_groups = ?, processed_groups = ?, skipped_groups = ?,
			progress_percent = ?, updated_at = strftime('%s','now')
		WHERE id = ?
	`

	_, err := r.db.Exec(query, totalGroups, processedGroups, skippedGroups, progressPercent, id)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}

	return nil
}

// MarkAsRunning marks a task as running
func (r *AnalysisTaskRepository) MarkAsRunning(id int64) error {
	now := time.Now().Unix()
	query := `
		UPDATE analysis_tasks
		SET status = ?, start_time = ?, updated_at = strftime('%s','now')
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Exec(query, models.TaskStatusRunning, now, id, models.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	return transitioned(result, id)
}

// MarkAsCompleted marks a task as completed with result summary
func (r *AnalysisTaskRepository) MarkAsCompleted(id int64, resultSummary string) error {
	now := time.Now().Unix()
	query := `
		UPDATE analysis_tasks
		SET status = ?, end_time = ?, result_summary = ?,
			progress_percent = 100, updated_at = strftime('%s','now')
		WHERE id = ? AND ` + activeStatuses

	result, err := r.db.Exec(query, models.TaskStatusCompleted, now, resultSummary, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return transitioned(result, id)
}

// MarkAsFailed marks a task as failed with an error message
func (r *AnalysisTaskRepository) MarkAsFailed(id int64, errorMessage string) error {
	return r.finish(id, models.TaskStatusFailed, errorMessage)
}

// MarkAsCancelled marks a task as cancelled
func (r *AnalysisTaskRepository) MarkAsCancelled(id int64) error {
	return r.finish(id, models.TaskStatusCancelled, "cancelled")
}

func (r *AnalysisTaskRepository) finish(id int64, status, errorMessage string) error {
	now := time.Now().Unix()
	query := `
		UPDATE analysis_tasks
		SET status = ?, end_time = ?, error_message = ?,
			updated_at = strftime('%s','now')
		WHERE id = ? AND ` + activeStatuses

	result, err := r.db.Exec(query, status, now, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as %s: %w", status, err)
	}

	return transitioned(result, id)
}

// transitioned reports ErrTaskNotActive when a guarded UPDATE matched no row
func transitioned(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrTaskNotActive, id)
	}
	return nil
}
