package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// ErrTaskNotActive is returned when cancelling a task that already finished
var ErrTaskNotActive = repository.ErrTaskNotActive

// AnalysisTaskService handles analysis task business logic
type AnalysisTaskService struct {
	repo *repository.AnalysisTaskRepository
	deps analysis.Deps
	log  *logrus.Entry

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

// NewAnalysisTaskService creates a new analysis task service
func NewAnalysisTaskService(repo *repository.AnalysisTaskRepository, deps analysis.Deps) *AnalysisTaskService {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AnalysisTaskService{
		repo:    repo,
		deps:    deps,
		log:     log.WithField("component", "analysis_tasks"),
		cancels: make(map[int64]context.CancelFunc),
	}
}

// CreateTask creates a new analysis task and starts it in the background
func (s *AnalysisTaskService) CreateTask(skillName string, params map[string]interface{}, createdBy string) (*models.AnalysisTask, error) {
	task, err := s.newTask(skillName, params, createdBy)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[task.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(task.ID)
		s.execute(ctx, task.ID, skillName)
	}()

	return task, nil
}

// RunTask creates a task and runs it to completion on the caller's goroutine
func (s *AnalysisTaskService) RunTask(ctx context.Context, skillName string, params map[string]interface{}, createdBy string) (*models.AnalysisTask, error) {
	task, err := s.newTask(skillName, params, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.execute(ctx, task.ID, skillName); err != nil {
		return nil, err
	}
	return s.repo.GetByID(task.ID)
}

func (s *AnalysisTaskService) newTask(skillName string, params map[string]interface{}, createdBy string) (*models.AnalysisTask, error) {
	if !analysis.IsRegistered(skillName) {
		return nil, errorutil.NewValidationError("skill_name", fmt.Sprintf("unknown skill %q", skillName))
	}

	var paramsJSON string
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize params: %w", err)
		}
		paramsJSON = string(data)
	}

	task := &models.AnalysisTask{
		RunID:      uuid.New().String(),
		SkillName:  skillName,
		Status:     models.TaskStatusPending,
		ParamsJSON: paramsJSON,
		CreatedBy:  createdBy,
	}
	if err := s.repo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// execute runs the analyzer and records failure or cancellation
func (s *AnalysisTaskService) execute(ctx context.Context, taskID int64, skillName string) error {
	log := s.log.WithFields(logrus.Fields{"task_id": taskID, "skill": skillName})

	analyzer := analysis.GetAnalyzer(skillName, s.deps)
	if analyzer == nil {
		err := fmt.Errorf("unknown skill: %s", skillName)
		s.markFailed(log, taskID, err)
		return err
	}

	err := analyzer.Analyze(ctx, taskID)
	switch {
	case err == nil:
		log.Info("analysis completed")
	case errors.Is(err, ErrTaskNotActive):
		// cancelled through the API; the row already holds its final status
		log.Warn("analysis stopped, task no longer active")
	case ctx.Err() != nil:
		log.Warn("analysis cancelled")
		if mErr := s.repo.MarkAsCancelled(taskID); mErr != nil && !errors.Is(mErr, ErrTaskNotActive) {
			log.WithError(mErr).Error("failed to mark task as cancelled")
		}
	default:
		log.WithError(err).Error("analysis failed")
		s.markFailed(log, taskID, err)
	}
	return err
}

func (s *AnalysisTaskService) markFailed(log *logrus.Entry, taskID int64, err error) {
	if mErr := s.repo.MarkAsFailed(taskID, err.Error()); mErr != nil && !errors.Is(mErr, ErrTaskNotActive) {
		log.WithError(mErr).Error("failed to mark task as failed")
	}
}

func (s *AnalysisTaskService) release(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[taskID]; ok {
		cancel()
		delete(s.cancels, taskID)
	}
}

// GetTask retrieves a task by ID
func (s *AnalysisTaskService) GetTask(id int64) (*models.AnalysisTask, error) {
	return s.repo.GetByID(id)
}

// ListTasks retrieves tasks with optional filters
func (s *AnalysisTaskService) ListTasks(skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	tasks, err := s.repo.List(skillName, status, limit, offset)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.AnalysisTask{}
	}
	return tasks, nil
}

// CancelTask cancels a pending or running task. A task running in this
// process is interrupted through its context; the row is marked cancelled
// either way. ErrTaskNotActive is returned if the task finished first.
func (s *AnalysisTaskService) CancelTask(id int64) error {
	task, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusRunning {
		return fmt.Errorf("%w (status: %s)", ErrTaskNotActive, task.Status)
	}

	// record the cancel before interrupting so the job's own cleanup finds
	// the row already final
	if err := s.repo.MarkAsCancelled(id); err != nil {
		return err
	}

	s.mu.Lock()
	cancel, running := s.cancels[id]
	s.mu.Unlock()
	if running {
		cancel()
	}
	return nil
}

// Skills lists the runnable skill names
func (s *AnalysisTaskService) Skills() []string {
	return analysis.Skills()
}

// Wait blocks until every background task has returned
func (s *AnalysisTaskService) Wait() {
	s.wg.Wait()
}
