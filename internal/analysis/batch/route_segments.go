package batch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	"github.com/jengzang/regps-supervision-go/internal/analysis/segment"
	"github.com/jengzang/regps-supervision-go/internal/analysis/trajectory"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// SkillRouteSegments rebuilds the route_segments table
const SkillRouteSegments = "route_segments"

// RouteSegmentsAnalyzer derives retained origin to destination hops and their
// ETA features from the location history
type RouteSegmentsAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewRouteSegmentsAnalyzer creates a new route segments analyzer
func NewRouteSegmentsAnalyzer(deps analysis.Deps) analysis.Analyzer {
	return &RouteSegmentsAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(deps, SkillRouteSegments),
	}
}

// Analyze builds trajectories, segments them and persists the segments
func (a *RouteSegmentsAnalyzer) Analyze(ctx context.Context, taskID int64) error {
	log := a.Log.WithField("task_id", taskID)
	log.Info("starting route segments")

	if err := a.MarkTaskAsRunning(taskID); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	samples, err := repository.NewLocationRepository(a.DB, a.Options.Location).Since(ctx, a.Since())
	if err != nil {
		return err
	}
	records := len(samples)
	samples, dropped := trajectory.Clean(samples)
	log.WithFields(logrus.Fields{"records": records, "dropped": dropped}).Info("extracted locations")

	avgSpeeds := segment.HistoricalAvgSpeeds(samples)

	devices, err := trajectory.BuildAll(ctx, samples, a.Options.Trajectory, a.Options.Workers)
	if err != nil {
		return fmt.Errorf("failed to build trajectories: %w", err)
	}

	var rows []repository.SegmentRow
	var all []models.RouteSegment
	for i, points := range devices {
		segs := segment.Segments(points)
		for _, s := range segs {
			rows = append(rows, repository.SegmentRow{
				Segment:  s,
				Features: segment.ForSegment(s, avgSpeeds[s.DeviceID]),
			})
		}
		all = append(all, segs...)

		if err := a.UpdateTaskProgress(taskID, i+1, len(devices), 0); err != nil {
			log.WithError(err).Warn("failed to update task progress")
		}
	}

	if _, err := segment.BuildTrainingSet(all, avgSpeeds); err != nil {
		if !errorutil.IsInsufficientData(err) {
			return err
		}
		log.WithError(err).Warn("not enough segments to train an ETA model")
	}

	if err := repository.NewSegmentRepository(a.DB).ReplaceAll(ctx, rows); err != nil {
		return err
	}

	summary := models.TaskSummary{
		Groups:      len(devices),
		RowsWritten: len(rows),
		Records:     records,
	}
	log.WithFields(logrus.Fields{"devices": summary.Groups, "segments": summary.RowsWritten}).Info("route segments completed")

	return a.MarkTaskAsCompleted(taskID, summary)
}
