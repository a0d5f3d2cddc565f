// Package anomaly flags speeding, prolonged stops and erratic speed changes
// in a short window of readings, and builds the feature rows consumed by the
// statistical outlier model.
package anomaly

import (
	"fmt"
	"strings"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/stats"
)

// Rule thresholds
const (
	SpeedLimitKmh       = 90.0
	StopKmh             = 5.0
	MaxStopFraction     = 0.5
	ErraticDeltaKmh     = 30.0
	MaxErraticChanges   = 3
	ScoreNormalizingKmh = 150.0
)

// NormalDetails is reported when no rule fires
const NormalDetails = "Normal behavior detected"

// Evaluate runs the rules in fixed order. The first rule that fires sets the
// type; every firing rule contributes a message. The score is max speed over
// 150 and is not clamped.
func Evaluate(speeds []float64) (models.AnomalyVerdict, error) {
	if len(speeds) == 0 {
		return models.AnomalyVerdict{}, errorutil.NewValidationError("speeds", "no speed readings supplied")
	}

	var messages []string
	var kind string
	setKind := func(k string) {
		if kind == "" {
			kind = k
		}
	}

	maxSpeed := stats.Max(speeds)
	if maxSpeed > SpeedLimitKmh {
		messages = append(messages, fmt.Sprintf("Excessive speed: %.1f km/h", maxSpeed))
		setKind(models.AnomalySpeedViolation)
	}

	stops := stats.CountIf(speeds, func(v float64) bool { return v < StopKmh })
	if float64(stops) > float64(len(speeds))*MaxStopFraction {
		messages = append(messages, fmt.Sprintf("Prolonged stop: %d/%d points", stops, len(speeds)))
		setKind(models.AnomalyProlongedStop)
	}

	brusque := stats.CountIf(stats.AbsDiffs(speeds), func(d float64) bool { return d > ErraticDeltaKmh })
	if brusque > MaxErraticChanges {
		messages = append(messages, fmt.Sprintf("Erratic behavior: %d sharp speed changes", brusque))
		setKind(models.AnomalyErratic)
	}

	details := NormalDetails
	if len(messages) > 0 {
		details = strings.Join(messages, " | ")
	}

	return models.AnomalyVerdict{
		IsAnomaly:   len(messages) > 0,
		AnomalyType: kind,
		Score:       maxSpeed / ScoreNormalizingKmh,
		Details:     details,
	}, nil
}
