// Package scoring holds the two behavior scorers. DailyScore works on a
// persisted daily aggregate; WindowScore works on a short request window
// without historical context. They are kept apart on purpose: their
// formulas differ.
package scoring

import (
	"math"

	"github.com/jengzang/regps-supervision-go/internal/models"
)

// Category thresholds
const (
	EfficientMinScore = 90.0
	NormalMinScore    = 60.0
)

// Alert labels raised by DailyScore
const (
	AlertSpeedViolations = "speed_violations"
	AlertRestrictedZones = "restricted_zone_entries"
	AlertCriticalAlerts  = "critical_alerts"
	AlertLowMovement     = "low_moving_rate"
	AlertBrusqueChanges  = "brusque_speed_changes"
)

// DailyInputs are the metric values the daily scorer reads
type DailyInputs struct {
	ViolationCount      int
	RestrictedZoneCount int
	CriticalAlertCount  int
	MovingRate          float64 // percent
	BrusqueChanges      int
	CheckpointCount     int
}

// InputsFromMetrics extracts the scorer inputs from a daily aggregate
func InputsFromMetrics(m models.DailyMetrics) DailyInputs {
	return DailyInputs{
		ViolationCount:      m.ViolationCount,
		RestrictedZoneCount: m.RestrictedZoneCount,
		CriticalAlertCount:  m.CriticalAlertCount,
		MovingRate:          m.MovingRate,
		BrusqueChanges:      m.BrusqueChanges,
		CheckpointCount:     m.CheckpointCount,
	}
}

// Category maps a score to its supervisory category
func Category(score float64) string {
	switch {
	case score >= EfficientMinScore:
		return models.CategoryEfficient
	case score >= NormalMinScore:
		return models.CategoryNormal
	default:
		return models.CategoryNeedsAttention
	}
}

func capped(n, full int) float64 {
	return math.Min(float64(n)/float64(full), 1)
}

// DailyScore starts from 100 and applies independent capped penalties and
// a checkpoint bonus, then clamps to [0,100]
func DailyScore(in DailyInputs) models.BehaviorScore {
	score := 100.0
	alerts := []string{}

	if in.ViolationCount > 0 {
		score -= 20 * capped(in.ViolationCount, 10)
		alerts = append(alerts, AlertSpeedViolations)
	}
	if in.RestrictedZoneCount > 0 {
		score -= 30 * capped(in.RestrictedZoneCount, 3)
		alerts = append(alerts, AlertRestrictedZones)
	}
	if in.CriticalAlertCount > 0 {
		score -= 15 * capped(in.CriticalAlertCount, 2)
		alerts = append(alerts, AlertCriticalAlerts)
	}
	if in.MovingRate < 30 {
		score -= 10
		alerts = append(alerts, AlertLowMovement)
	}
	if in.BrusqueChanges > 5 {
		score -= 10
		alerts = append(alerts, AlertBrusqueChanges)
	}
	if in.CheckpointCount > 0 {
		score += 5 * capped(in.CheckpointCount, 2)
	}

	score = math.Max(0, math.Min(100, score))

	return models.BehaviorScore{
		Score:    score,
		Category: Category(score),
		Alerts:   alerts,
		Metrics: map[string]float64{
			"violation_count":       float64(in.ViolationCount),
			"restricted_zone_count": float64(in.RestrictedZoneCount),
			"critical_alert_count":  float64(in.CriticalAlertCount),
			"moving_rate":           in.MovingRate,
			"brusque_changes":       float64(in.BrusqueChanges),
			"checkpoint_count":      float64(in.CheckpointCount),
		},
	}
}
