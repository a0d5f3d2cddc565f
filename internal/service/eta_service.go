package service

import (
	"context"
	"math"
	"time"

	"github.com/jengzang/regps-supervision-go/internal/analysis/segment"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/ml"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
)

// HeuristicConfidence is reported when no ETA model is bound
const HeuristicConfidence = 0.75

// SpeedProfile returns a device's historical average speed
type SpeedProfile interface {
	AverageSpeed(ctx context.Context, deviceID int64) (float64, error)
}

// ETAService estimates arrival times
type ETAService struct {
	profiles SpeedProfile
	model    *ml.Bound
	loc      *time.Location
	now      func() time.Time
}

// NewETAService creates a new ETA service. model may be nil.
func NewETAService(profiles SpeedProfile, model *ml.Bound, loc *time.Location) *ETAService {
	if loc == nil {
		loc = time.Local
	}
	return &ETAService{profiles: profiles, model: model, loc: loc, now: time.Now}
}

// ModelLoaded reports whether estimates come from a trained model
func (s *ETAService) ModelLoaded() bool {
	return s.model != nil
}

// Estimate predicts the travel time from the current location to the destination
func (s *ETAService) Estimate(ctx context.Context, req models.ETARequest) (*models.ETAEstimate, error) {
	if req.CurrentLocation == nil || req.Destination == nil {
		return nil, errorutil.NewValidationError("location", "current_location and destination are required")
	}
	now := s.now().In(s.loc)

	tc := models.NewTimeContext(now)
	if req.Hour != nil {
		tc.Hour = *req.Hour
	}
	if req.Weekday != nil {
		tc.Weekday = *req.Weekday
		tc.IsWeekend = tc.Weekday >= 5
	}

	from, to := req.CurrentLocation, req.Destination
	distance := spatial.Distance(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	bearing := spatial.Bearing(from.Latitude, from.Longitude, to.Latitude, to.Longitude)

	avg, err := s.profiles.AverageSpeed(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}

	f := segment.NewETAFeatures(distance, bearing, req.CurrentSpeedKmh, avg, tc)
	est := &models.ETAEstimate{
		DistanceKm:         round2(distance),
		ExpectedAvgSpeedKm: round2(f.ExpectedSpeedKmh),
		Timestamp:          now,
	}

	if s.model == nil {
		est.ETAMinutes = round2(f.NaiveETAMin)
		est.Confidence = HeuristicConfidence
		est.Source = models.ETASourceHeuristic
		return est, nil
	}

	eta, err := s.model.Predict(f.Vector())
	if err != nil {
		return nil, err
	}
	est.ETAMinutes = round2(math.Max(eta, 0))
	est.Confidence = s.modelConfidence()
	est.Source = models.ETASourceModel
	return est, nil
}

// modelConfidence is the model's recorded r2 clamped to [0, 1]
func (s *ETAService) modelConfidence() float64 {
	r2, ok := s.model.Metric("r2")
	if !ok {
		return 0
	}
	return math.Min(math.Max(r2, 0), 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
