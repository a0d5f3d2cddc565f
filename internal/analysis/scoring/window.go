package scoring

import (
	"fmt"
	"math"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/stats"
)

// Request-window thresholds
const (
	WindowSpeedingKmh    = 90.0
	WindowFastMeanKmh    = 60.0
	WindowStopKmh        = 5.0
	WindowMaxStopPct     = 60.0
	WindowHealthyStopMix = 0.3 // stopped/moving ratio below which the bonus applies
)

// Recommendations
const (
	RecommendSpeedLimits = "Remind the employee of company speed limits"
	RecommendNone        = "Behavior within normal parameters"
)

// WindowScore scores a short window of speed readings with the request-time
// heuristic ladder. pointCount is the number of locations submitted, which
// may exceed len(speeds) when some readings had no speed.
func WindowScore(speeds []float64, pointCount int) (models.BehaviorScore, error) {
	if len(speeds) == 0 {
		return models.BehaviorScore{}, errorutil.NewValidationError("speeds", "no speed readings supplied")
	}

	mean := stats.Mean(speeds)
	max := stats.Max(speeds)
	stopped := stats.CountIf(speeds, func(v float64) bool { return v < WindowStopKmh })
	moving := len(speeds) - stopped

	alerts := []string{}
	var recommendation string
	var category string
	var score float64

	switch {
	case max > WindowSpeedingKmh:
		alerts = append(alerts, "Speeding detected")
		category, score = models.CategoryNeedsAttention, 45
		recommendation = RecommendSpeedLimits
	case mean > WindowFastMeanKmh:
		category, score = models.CategoryNormal, 70
	default:
		category, score = models.CategoryEfficient, 90
	}

	stopPct := float64(stopped) / float64(len(speeds)) * 100
	if stopPct > WindowMaxStopPct {
		alerts = append(alerts, fmt.Sprintf("Excessive stopped time: %.1f%%", stopPct))
		if category == models.CategoryEfficient {
			category, score = models.CategoryNormal, 65
		}
	}

	if moving > 0 && float64(stopped)/float64(moving) < WindowHealthyStopMix && len(alerts) == 0 {
		score = math.Min(score+5, 100)
	}

	if len(alerts) == 0 {
		recommendation = RecommendNone
	}

	return models.BehaviorScore{
		Score:    score,
		Category: category,
		Alerts:   alerts,
		Metrics: map[string]float64{
			"mean_speed":     round(mean, 2),
			"max_speed":      round(max, 2),
			"points":         float64(pointCount),
			"moving_points":  float64(moving),
			"stopped_points": float64(stopped),
			"moving_pct":     round(float64(moving)/float64(len(speeds))*100, 1),
		},
		Recommendation: recommendation,
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
