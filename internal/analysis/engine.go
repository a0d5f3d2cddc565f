package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis/trajectory"
	"github.com/jengzang/regps-supervision-go/internal/ml"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// Analyzer is the interface that all batch jobs must implement
type Analyzer interface {
	// Analyze runs the job for a given task. The task row is moved to
	// running and, on success, to completed with a result summary.
	Analyze(ctx context.Context, taskID int64) error

	// GetName returns the skill name of the analyzer
	GetName() string
}

// Models holds the bound model artifacts; nil means not configured
type Models struct {
	ETA      *ml.Bound
	Behavior *ml.Bound
	Anomaly  *ml.Bound
}

// Options are the run parameters shared by all jobs
type Options struct {
	HistoryDays int
	Workers     int
	Location    *time.Location
	Trajectory  trajectory.Config
}

// Deps is everything an analyzer factory may need
type Deps struct {
	DB      *sql.DB
	Models  Models
	Options Options
	Log     *logrus.Entry
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	DB      *sql.DB
	Name    string
	Tasks   *repository.AnalysisTaskRepository
	Options Options
	Log     *logrus.Entry

	now func() time.Time
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(deps Deps, name string) *BaseAnalyzer {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	opts := deps.Options
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 90
	}
	if len(opts.Trajectory.Windows) == 0 {
		opts.Trajectory = trajectory.DefaultConfig()
	}
	return &BaseAnalyzer{
		DB:      deps.DB,
		Name:    name,
		Tasks:   repository.NewAnalysisTaskRepository(deps.DB),
		Options: opts,
		Log:     log.WithField("skill", name),
		now:     time.Now,
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// Since is the start of the extraction window
func (a *BaseAnalyzer) Since() time.Time {
	return a.now().In(a.Options.Location).AddDate(0, 0, -a.Options.HistoryDays)
}

// UpdateTaskProgress updates the progress counters of an analysis task
func (a *BaseAnalyzer) UpdateTaskProgress(taskID int64, processed, total, skipped int) error {
	percent := 0
	if total > 0 {
		percent = (processed + skipped) * 100 / total
	}
	return a.Tasks.UpdateProgress(taskID, total, processed, skipped, percent)
}

// MarkTaskAsRunning marks a task as running
func (a *BaseAnalyzer) MarkTaskAsRunning(taskID int64) error {
	return a.Tasks.MarkAsRunning(taskID)
}

// MarkTaskAsCompleted marks a task as completed and stores its summary
func (a *BaseAnalyzer) MarkTaskAsCompleted(taskID int64, summary models.TaskSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal task summary: %w", err)
	}
	return a.Tasks.MarkAsCompleted(taskID, string(data))
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func(deps Deps) Analyzer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a skill name
func RegisterAnalyzer(skillName string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[skillName] = factory
}

// GetAnalyzer creates an analyzer instance for a skill name, or nil if the
// skill is unknown
func GetAnalyzer(skillName string, deps Deps) Analyzer {
	registryMu.RLock()
	factory, ok := registry[skillName]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory(deps)
}

// IsRegistered reports whether a skill has an analyzer
func IsRegistered(skillName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[skillName]
	return ok
}

// Skills lists the registered skill names in order
func Skills() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
