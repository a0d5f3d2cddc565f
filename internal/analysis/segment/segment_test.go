package segment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/regps-supervision-go/internal/analysis/trajectory"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
)

var start = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

// hop builds a two-point trajectory travelling distanceKm due north in travel
func hop(travel time.Duration, distanceKm float64) []models.TrajectoryPoint {
	lat2, lon2 := spatial.DestinationPoint(19.43, -99.13, 0, distanceKm)
	return trajectory.Build([]models.LocationSample{
		{DeviceID: 7, Latitude: 19.43, Longitude: -99.13, Speed: 20, Timestamp: start},
		{DeviceID: 7, Latitude: lat2, Longitude: lon2, Speed: 25, Timestamp: start.Add(travel)},
	}, trajectory.DefaultConfig())
}

func TestSegments_Filters(t *testing.T) {
	tests := []struct {
		name     string
		travel   time.Duration
		distance float64
		kept     bool
	}{
		{"too fast", 12 * time.Second, 0.5, false},   // 0.2 min
		{"data gap", 150 * time.Minute, 5, false},    // 150 min
		{"jitter", 10 * time.Minute, 0.005, false},   // under 10 m
		{"normal hop", 10 * time.Minute, 0.05, true}, // 10 min, 50 m
		{"lower bound", 30 * time.Second, 0.2, true}, // exactly 0.5 min
		{"upper bound", 120 * time.Minute, 30, true}, // exactly 120 min
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := Segments(hop(tt.travel, tt.distance))
			if !tt.kept {
				assert.Empty(t, segs)
				return
			}
			require.Len(t, segs, 1)
			s := segs[0]
			assert.Equal(t, int64(7), s.DeviceID)
			assert.InDelta(t, tt.travel.Minutes(), s.TravelTimeMin, 1e-9)
			assert.InEpsilon(t, tt.distance, s.DistanceKm, 0.01)
			assert.InDelta(t, 0.0, s.BearingDeg, 0.01)
			assert.Equal(t, 20.0, s.OriginSpeedKmh)
			assert.Equal(t, 8, s.Hour)
			assert.Equal(t, 0, s.Weekday)
		})
	}
}

func TestSegments_SkipsDeviceBoundary(t *testing.T) {
	points := append(hop(10*time.Minute, 1), hop(10*time.Minute, 1)...)
	points[2].DeviceID = 8
	points[3].DeviceID = 8

	segs := Segments(points)
	require.Len(t, segs, 2)
	assert.Equal(t, int64(7), segs[0].DeviceID)
	assert.Equal(t, int64(8), segs[1].DeviceID)
}

func TestHourFactor(t *testing.T) {
	for h := 0; h < 24; h++ {
		want := 1.0
		switch h {
		case 7, 8, 9, 17, 18, 19:
			want = 0.7
		case 0, 1, 2, 3, 4, 5:
			want = 1.2
		}
		assert.Equal(t, want, HourFactor(h), "hour %d", h)
	}
}

func TestNewETAFeatures(t *testing.T) {
	f := NewETAFeatures(10, 45, 30, 40, models.TimeContext{Hour: 8, Weekday: 5, IsWeekend: true})

	assert.InDelta(t, 28.0, f.ExpectedSpeedKmh, 1e-9)
	assert.InDelta(t, 10.0/28.0*60, f.NaiveETAMin, 1e-9)

	v := f.Vector()
	require.Len(t, v, len(FeatureColumns))
	assert.Equal(t, []float64{10, 45, 30, 40, f.ExpectedSpeedKmh, 8, 5, 1, 0.7, f.NaiveETAMin}, v)
}

func TestNewETAFeatures_ZeroSpeed(t *testing.T) {
	f := NewETAFeatures(10, 0, 0, 0, models.TimeContext{Hour: 12})
	assert.Equal(t, 0.0, f.NaiveETAMin)
	for _, v := range f.Vector() {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestHistoricalAvgSpeeds(t *testing.T) {
	avg := HistoricalAvgSpeeds([]models.LocationSample{
		{DeviceID: 1, Speed: 10},
		{DeviceID: 1, Speed: 30},
		{DeviceID: 2, Speed: 50},
	})
	assert.Equal(t, map[int64]float64{1: 20, 2: 50}, avg)
}

func TestBuildTrainingSet(t *testing.T) {
	var segs []models.RouteSegment
	for i := 0; i < MinTrainingSegments-1; i++ {
		segs = append(segs, Segments(hop(10*time.Minute, 1))...)
	}

	_, err := BuildTrainingSet(segs, map[int64]float64{7: 30})
	require.Error(t, err)
	assert.True(t, errorutil.IsInsufficientData(err))

	segs = append(segs, Segments(hop(5*time.Minute, 2))...)
	ts, err := BuildTrainingSet(segs, map[int64]float64{7: 30})
	require.NoError(t, err)
	assert.Equal(t, FeatureColumns, ts.Columns)
	require.Len(t, ts.X, MinTrainingSegments)
	require.Len(t, ts.Y, MinTrainingSegments)
	assert.InDelta(t, 5.0, ts.Y[9], 1e-9)
	assert.Equal(t, 30.0, ts.X[0][3])
}
