package batch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	"github.com/jengzang/regps-supervision-go/internal/analysis/daily"
	"github.com/jengzang/regps-supervision-go/internal/analysis/trajectory"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/ml"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// SkillDailyMetrics rebuilds the daily_metrics table
const SkillDailyMetrics = "daily_metrics"

// DailyMetricsAnalyzer reduces the location history into one row per
// (device, calendar day) and replaces the daily_metrics table with the result
type DailyMetricsAnalyzer struct {
	*analysis.BaseAnalyzer
	behavior *ml.Bound
}

// NewDailyMetricsAnalyzer creates a new daily metrics analyzer
func NewDailyMetricsAnalyzer(deps analysis.Deps) analysis.Analyzer {
	return &DailyMetricsAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(deps, SkillDailyMetrics),
		behavior:     deps.Models.Behavior,
	}
}

// Analyze performs the daily aggregation
func (a *DailyMetricsAnalyzer) Analyze(ctx context.Context, taskID int64) error {
	log := a.Log.WithField("task_id", taskID)
	log.Info("starting daily metrics")

	if err := a.MarkTaskAsRunning(taskID); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	loc := a.Options.Location
	since := a.Since()

	samples, err := repository.NewLocationRepository(a.DB, loc).Since(ctx, since)
	if err != nil {
		return err
	}
	zones := repository.NewZoneRepository(a.DB, loc)
	visits, err := zones.VisitsSince(ctx, since)
	if err != nil {
		return err
	}
	alerts, err := zones.AlertsSince(ctx, since)
	if err != nil {
		return err
	}

	records := len(samples)
	samples, dropped := trajectory.Clean(samples)
	log.WithFields(logrus.Fields{
		"records":     records,
		"dropped":     dropped,
		"zone_visits": len(visits),
		"alerts":      len(alerts),
	}).Info("extracted inputs")

	res, err := daily.Aggregate(ctx, samples, daily.NewSideTables(visits, alerts, loc), loc, a.Options.Workers)
	if err != nil {
		return fmt.Errorf("failed to aggregate daily metrics: %w", err)
	}
	for _, skip := range res.Skipped {
		log.WithFields(logrus.Fields{
			"device_id": skip.DeviceID,
			"date":      skip.Date,
			"samples":   skip.Have,
		}).Debug("skipped device-day")
	}
	if len(res.Skipped) > 0 {
		log.WithField("skipped", len(res.Skipped)).Warn("device-days skipped for insufficient samples")
	}

	if a.behavior != nil {
		for i := range res.Metrics {
			label, err := a.behavior.Classify(daily.FeatureVector(res.Metrics[i]))
			if err != nil {
				return fmt.Errorf("failed to classify device %d on %s: %w", res.Metrics[i].DeviceID, res.Metrics[i].Date, err)
			}
			res.Metrics[i].PredictedCategory = label
		}
	}

	if _, _, err := daily.TrainingSet(res.Metrics); err != nil {
		if !errorutil.IsInsufficientData(err) {
			return err
		}
		log.WithError(err).Warn("not enough daily rows to train a behavior model")
	}

	if err := a.UpdateTaskProgress(taskID, len(res.Metrics), res.Groups, len(res.Skipped)); err != nil {
		log.WithError(err).Warn("failed to update task progress")
	}

	if err := repository.NewDailyMetricsRepository(a.DB).ReplaceAll(ctx, res.Metrics); err != nil {
		return err
	}

	summary := models.TaskSummary{
		Groups:        res.Groups,
		SkippedGroups: len(res.Skipped),
		RowsWritten:   len(res.Metrics),
		Records:       records,
	}
	log.WithFields(logrus.Fields{
		"groups":  summary.Groups,
		"skipped": summary.SkippedGroups,
		"rows":    summary.RowsWritten,
	}).Info("daily metrics completed")

	return a.MarkTaskAsCompleted(taskID, summary)
}
