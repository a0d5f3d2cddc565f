package segment

import (
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/stats"
)

// MinTrainingSegments is the smallest segment count an ETA training set accepts
const MinTrainingSegments = 10

// FeatureColumns is the ETA feature order shared by training and inference
var FeatureColumns = []string{
	"distance_km",
	"bearing",
	"origin_speed_kmh",
	"historical_avg_speed_kmh",
	"expected_speed_kmh",
	"start_hour",
	"weekday",
	"is_weekend",
	"hour_factor",
	"naive_eta_min",
}

// HourFactor scales the expected speed by time of day.
// Peak hours are slower, the small hours faster.
func HourFactor(hour int) float64 {
	switch {
	case (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19):
		return 0.7
	case hour >= 0 && hour <= 5:
		return 1.2
	default:
		return 1.0
	}
}

// NaiveETA is distance over expected speed, in minutes; 0 when the speed is 0
func NaiveETA(distanceKm, expectedSpeedKmh float64) float64 {
	if expectedSpeedKmh == 0 {
		return 0
	}
	return distanceKm / expectedSpeedKmh * 60
}

// ETAFeatures is one ETA feature row
type ETAFeatures struct {
	DistanceKm            float64 `json:"distance_km"`
	Bearing               float64 `json:"bearing"`
	OriginSpeedKmh        float64 `json:"origin_speed_kmh"`
	HistoricalAvgSpeedKmh float64 `json:"historical_avg_speed_kmh"`
	ExpectedSpeedKmh      float64 `json:"expected_speed_kmh"`
	models.TimeContext
	HourFactor  float64 `json:"hour_factor"`
	NaiveETAMin float64 `json:"naive_eta_min"`
}

// NewETAFeatures derives expected speed and naive ETA from the raw context
func NewETAFeatures(distanceKm, bearing, originSpeedKmh, historicalAvgKmh float64, tc models.TimeContext) ETAFeatures {
	factor := HourFactor(tc.Hour)
	expected := historicalAvgKmh * factor
	return ETAFeatures{
		DistanceKm:            distanceKm,
		Bearing:               bearing,
		OriginSpeedKmh:        originSpeedKmh,
		HistoricalAvgSpeedKmh: historicalAvgKmh,
		ExpectedSpeedKmh:      expected,
		TimeContext:           tc,
		HourFactor:            factor,
		NaiveETAMin:           NaiveETA(distanceKm, expected),
	}
}

// ForSegment builds the feature row of a retained segment
func ForSegment(s models.RouteSegment, historicalAvgKmh float64) ETAFeatures {
	return NewETAFeatures(s.DistanceKm, s.BearingDeg, s.OriginSpeedKmh, historicalAvgKmh, s.TimeContext)
}

// Vector returns the row in FeatureColumns order with non-finite values as 0
func (f ETAFeatures) Vector() []float64 {
	weekend := 0.0
	if f.IsWeekend {
		weekend = 1
	}
	row := []float64{
		f.DistanceKm,
		f.Bearing,
		f.OriginSpeedKmh,
		f.HistoricalAvgSpeedKmh,
		f.ExpectedSpeedKmh,
		float64(f.Hour),
		float64(f.Weekday),
		weekend,
		f.HourFactor,
		f.NaiveETAMin,
	}
	for i, v := range row {
		row[i] = stats.Finite(v)
	}
	return row
}

// HistoricalAvgSpeeds is the mean reported speed of each device
func HistoricalAvgSpeeds(samples []models.LocationSample) map[int64]float64 {
	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, s := range samples {
		sums[s.DeviceID] += s.Speed
		counts[s.DeviceID]++
	}

	out := make(map[int64]float64, len(sums))
	for id, sum := range sums {
		out[id] = sum / float64(counts[id])
	}
	return out
}

// TrainingSet is a feature matrix with its targets
type TrainingSet struct {
	Columns []string
	X       [][]float64
	Y       []float64 // actual travel time in minutes
}

// BuildTrainingSet assembles ETA training rows from retained segments
func BuildTrainingSet(segments []models.RouteSegment, avgSpeeds map[int64]float64) (*TrainingSet, error) {
	if len(segments) < MinTrainingSegments {
		return nil, &errorutil.InsufficientDataError{
			What: "eta training segments",
			Have: len(segments),
			Need: MinTrainingSegments,
		}
	}

	ts := &TrainingSet{
		Columns: append([]string(nil), FeatureColumns...),
		X:       make([][]float64, 0, len(segments)),
		Y:       make([]float64, 0, len(segments)),
	}
	for _, s := range segments {
		ts.X = append(ts.X, ForSegment(s, avgSpeeds[s.DeviceID]).Vector())
		ts.Y = append(ts.Y, s.TravelTimeMin)
	}
	return ts, nil
}
