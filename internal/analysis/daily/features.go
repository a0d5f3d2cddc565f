package daily

import (
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/stats"
)

// MinTrainingDays is the smallest number of daily rows a behavior training export accepts
const MinTrainingDays = 10

// FeatureColumns is the behavior classifier feature order
var FeatureColumns = []string{
	"mean_speed",
	"max_speed",
	"speed_std",
	"violation_count",
	"violation_rate",
	"moving_rate",
	"total_distance_km",
	"brusque_changes",
	"restricted_zone_count",
	"checkpoint_count",
	"alert_count",
	"critical_alert_count",
	"sample_count",
	"score",
}

// FeatureVector returns m in FeatureColumns order
func FeatureVector(m models.DailyMetrics) []float64 {
	row := []float64{
		m.MeanSpeed,
		m.MaxSpeed,
		m.SpeedStd,
		float64(m.ViolationCount),
		m.ViolationRate,
		m.MovingRate,
		m.TotalDistanceKm,
		float64(m.BrusqueChanges),
		float64(m.RestrictedZoneCount),
		float64(m.CheckpointCount),
		float64(m.AlertCount),
		float64(m.CriticalAlertCount),
		float64(m.SampleCount),
		m.Score,
	}
	for i, v := range row {
		row[i] = stats.Finite(v)
	}
	return row
}

// TrainingSet returns the classifier feature matrix and the rule-based
// category labels
func TrainingSet(metrics []models.DailyMetrics) ([][]float64, []string, error) {
	if len(metrics) < MinTrainingDays {
		return nil, nil, &errorutil.InsufficientDataError{
			What: "behavior training days",
			Have: len(metrics),
			Need: MinTrainingDays,
		}
	}

	x := make([][]float64, len(metrics))
	y := make([]string, len(metrics))
	for i, m := range metrics {
		x[i] = FeatureVector(m)
		y[i] = m.Category
	}
	return x, y, nil
}
