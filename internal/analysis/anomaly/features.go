package anomaly

import (
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/stats"
)

// ModelWindow is the trailing window used by the outlier model features
const ModelWindow = 5

// ModelFeatureColumns is the outlier model feature order
var ModelFeatureColumns = []string{
	"speed_kmh",
	"hour",
	"weekday",
	"is_weekend",
	"speed_change",
	"distance_m",
	"is_stopped",
	"speed_mean_window",
	"speed_std_window",
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ModelRows builds one outlier feature row per trajectory point of a single
// device. speed_change is the signed difference from the previous reading
// and is 0 for the first point.
func ModelRows(points []models.TrajectoryPoint) [][]float64 {
	speeds := make([]float64, len(points))
	for i, p := range points {
		speeds[i] = p.Speed
	}
	mean := stats.RollingMean(speeds, ModelWindow)
	std := stats.RollingStdDev(speeds, ModelWindow)

	rows := make([][]float64, len(points))
	for i, p := range points {
		change := 0.0
		if i > 0 {
			change = p.Speed - points[i-1].Speed
		}
		row := []float64{
			p.Speed,
			float64(p.Hour),
			float64(p.Weekday),
			boolFloat(p.IsWeekend),
			change,
			p.DistanceFromPrevKm * 1000,
			boolFloat(p.IsStopped),
			mean[i],
			std[i],
		}
		for j, v := range row {
			row[j] = stats.Finite(v)
		}
		rows[i] = row
	}
	return rows
}
