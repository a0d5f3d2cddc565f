package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	"github.com/jengzang/regps-supervision-go/internal/analysis/anomaly"
	"github.com/jengzang/regps-supervision-go/internal/analysis/trajectory"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/ml"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// SkillAnomalyScan scores the location history with the outlier model
const SkillAnomalyScan = "anomaly_scan"

// AnomalyScanAnalyzer flags individual points the outlier model scores below zero
type AnomalyScanAnalyzer struct {
	*analysis.BaseAnalyzer
	model *ml.Bound
}

// NewAnomalyScanAnalyzer creates a new anomaly scan analyzer
func NewAnomalyScanAnalyzer(deps analysis.Deps) analysis.Analyzer {
	return &AnomalyScanAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(deps, SkillAnomalyScan),
		model:        deps.Models.Anomaly,
	}
}

// Analyze scores every point and replaces the anomaly_events table
func (a *AnomalyScanAnalyzer) Analyze(ctx context.Context, taskID int64) error {
	if a.model == nil {
		return &errorutil.ConfigurationError{Model: "anomaly", Reason: "ANOMALY_MODEL_PATH is not set"}
	}

	runID := uuid.New().String()
	log := a.Log.WithFields(logrus.Fields{"task_id": taskID, "run_id": runID})
	log.Info("starting anomaly scan")

	if err := a.MarkTaskAsRunning(taskID); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	samples, err := repository.NewLocationRepository(a.DB, a.Options.Location).Since(ctx, a.Since())
	if err != nil {
		return err
	}
	records := len(samples)
	samples, _ = trajectory.Clean(samples)

	devices, err := trajectory.BuildAll(ctx, samples, a.Options.Trajectory, a.Options.Workers)
	if err != nil {
		return fmt.Errorf("failed to build trajectories: %w", err)
	}

	var events []models.AnomalyEvent
	for i, points := range devices {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j, row := range anomaly.ModelRows(points) {
			score, err := a.model.Predict(row)
			if err != nil {
				return fmt.Errorf("failed to score point: %w", err)
			}
			if score >= 0 {
				continue
			}
			p := points[j]
			events = append(events, models.AnomalyEvent{
				RunID:     runID,
				DeviceID:  p.DeviceID,
				Timestamp: p.Timestamp.Unix(),
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
				Speed:     p.Speed,
				Score:     score,
			})
		}

		if err := a.UpdateTaskProgress(taskID, i+1, len(devices), 0); err != nil {
			log.WithError(err).Warn("failed to update task progress")
		}
	}

	if err := repository.NewAnomalyRepository(a.DB).ReplaceAll(ctx, events); err != nil {
		return err
	}

	summary := models.TaskSummary{
		Groups:      len(devices),
		RowsWritten: len(events),
		Records:     records,
	}
	log.WithFields(logrus.Fields{"devices": summary.Groups, "flagged": summary.RowsWritten}).Info("anomaly scan completed")

	return a.MarkTaskAsCompleted(taskID, summary)
}
