package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	_ "github.com/jengzang/regps-supervision-go/internal/analysis/batch"
	"github.com/jengzang/regps-supervision-go/internal/analysis/segment"
	"github.com/jengzang/regps-supervision-go/internal/database"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
	"github.com/jengzang/regps-supervision-go/internal/service"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedProfile struct {
	speed float64
	err   error
}

func (f fixedProfile) AverageSpeed(context.Context, int64) (float64, error) {
	return f.speed, f.err
}

type staticZones []models.Zone

func (z staticZones) ListZones(context.Context) ([]models.Zone, error) {
	return z, nil
}

type staticMetrics []models.DailyMetrics

func (m staticMetrics) List(context.Context, repository.DailyMetricsFilter) ([]models.DailyMetrics, error) {
	return m, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func perform(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func supervisionRouter(profile fixedProfile, zones staticZones) *gin.Engine {
	h := NewSupervisionHandler(
		service.NewETAService(profile, nil, time.UTC),
		service.NewAnomalyService(),
		service.NewBehaviorService(),
		service.NewGeofenceService(zones),
	)
	r := gin.New()
	r.POST("/predict/eta", h.PredictETA)
	r.POST("/detect/anomaly", h.DetectAnomaly)
	r.POST("/classify/behavior", h.ClassifyBehavior)
	r.POST("/verify/geofence", h.VerifyGeofence)
	return r
}

func locations(n int, speed float64) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		out[i] = map[string]interface{}{
			"latitude":  -16.4,
			"longitude": -71.5,
			"speed_kmh": speed,
			"timestamp": 1700000000 + int64(i)*60,
		}
	}
	return out
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errorutil.NewValidationError("from", "bad date"), http.StatusBadRequest},
		{"insufficient data", &errorutil.InsufficientDataError{What: "segments", Have: 1, Need: 10}, http.StatusUnprocessableEntity},
		{"upstream", &errorutil.UpstreamUnavailableError{Source: "locations", Err: errors.New("down")}, http.StatusServiceUnavailable},
		{"configuration", &errorutil.ConfigurationError{Model: "eta", Reason: "missing"}, http.StatusInternalServerError},
		{"task not found", fmt.Errorf("get: %w", repository.ErrTaskNotFound), http.StatusNotFound},
		{"task not active", service.ErrTaskNotActive, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestPredictETA(t *testing.T) {
	lat, lon := -16.40, -71.53
	dlat, dlon := spatial.DestinationPoint(lat, lon, 90, 10)
	hour, weekday := 12, 2
	body := models.ETARequest{
		DeviceID:        7,
		CurrentLocation: &models.Coordinate{Latitude: lat, Longitude: lon},
		Destination:     &models.Coordinate{Latitude: dlat, Longitude: dlon},
		CurrentSpeedKmh: 30,
		Hour:            &hour,
		Weekday:         &weekday,
	}

	t.Run("heuristic", func(t *testing.T) {
		w, env := perform(t, supervisionRouter(fixedProfile{speed: 40}, nil), http.MethodPost, "/predict/eta", body)
		require.Equal(t, http.StatusOK, w.Code)

		var est models.ETAEstimate
		require.NoError(t, json.Unmarshal(env.Data, &est))
		assert.Equal(t, models.ETASourceHeuristic, est.Source)
		assert.InDelta(t, 15, est.ETAMinutes, 0.2)
	})

	t.Run("profile unavailable", func(t *testing.T) {
		profile := fixedProfile{err: &errorutil.UpstreamUnavailableError{Source: "locations", Err: errors.New("down")}}
		w, _ := perform(t, supervisionRouter(profile, nil), http.MethodPost, "/predict/eta", body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w, _ := perform(t, supervisionRouter(fixedProfile{speed: 40}, nil), http.MethodPost, "/predict/eta", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing destination", func(t *testing.T) {
		bad := body
		bad.Destination = nil
		w, _ := perform(t, supervisionRouter(fixedProfile{speed: 40}, nil), http.MethodPost, "/predict/eta", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("hour out of range", func(t *testing.T) {
		bad := body
		h := 24
		bad.Hour = &h
		w, _ := perform(t, supervisionRouter(fixedProfile{speed: 40}, nil), http.MethodPost, "/predict/eta", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDetectAnomaly(t *testing.T) {
	r := supervisionRouter(fixedProfile{}, nil)

	tests := []struct {
		name      string
		locations interface{}
		status    int
		anomaly   bool
	}{
		{"too few readings", locations(1, 50), http.StatusBadRequest, false},
		{"normal", locations(5, 50), http.StatusOK, false},
		{"speeding", locations(5, 150), http.StatusOK, true},
		{"no speeds", []map[string]interface{}{{"latitude": 1.0, "longitude": 1.0}, {"latitude": 1.0, "longitude": 1.0}}, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := perform(t, r, http.MethodPost, "/detect/anomaly", map[string]interface{}{
				"device_id": 1,
				"locations": tt.locations,
			})
			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				return
			}
			var verdict models.AnomalyVerdict
			require.NoError(t, json.Unmarshal(env.Data, &verdict))
			assert.Equal(t, tt.anomaly, verdict.IsAnomaly)
		})
	}
}

func TestClassifyBehavior(t *testing.T) {
	r := supervisionRouter(fixedProfile{}, nil)

	w, _ := perform(t, r, http.MethodPost, "/classify/behavior", map[string]interface{}{
		"device_id": 1,
		"locations": locations(9, 40),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := perform(t, r, http.MethodPost, "/classify/behavior", map[string]interface{}{
		"device_id": 1,
		"locations": locations(12, 40),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var score models.BehaviorScore
	require.NoError(t, json.Unmarshal(env.Data, &score))
	assert.NotEmpty(t, score.Category)
	assert.GreaterOrEqual(t, score.Score, 0.0)
	assert.LessOrEqual(t, score.Score, 100.0)
}

func TestVerifyGeofence(t *testing.T) {
	zones := staticZones{
		{ID: 1, Name: "depot", Type: models.ZoneTypeRestricted, Latitude: -16.4, Longitude: -71.5, RadiusKm: 1},
		{ID: 2, Name: "far", Type: "client", Latitude: -12.0, Longitude: -77.0, RadiusKm: 1},
	}
	r := supervisionRouter(fixedProfile{}, zones)

	w, env := perform(t, r, http.MethodPost, "/verify/geofence", map[string]interface{}{
		"device_id": 3,
		"location":  map[string]float64{"latitude": -16.401, "longitude": -71.5},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res models.GeofenceResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Inside)
	assert.True(t, res.Restricted)
	require.Len(t, res.Zones, 1)
	assert.Equal(t, "depot", res.Zones[0].Zone.Name)

	w, _ = perform(t, r, http.MethodPost, "/verify/geofence", map[string]interface{}{
		"device_id": 3,
		"location":  map[string]float64{"latitude": 95, "longitude": 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = perform(t, r, http.MethodPost, "/verify/geofence", map[string]interface{}{"device_id": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDailyMetricsHandler_List(t *testing.T) {
	h := NewDailyMetricsHandler(service.NewDailyMetricsService(staticMetrics{{DeviceID: 1, Date: "2026-10-01"}}))
	r := gin.New()
	r.GET("/metrics/daily", h.List)

	w, env := perform(t, r, http.MethodGet, "/metrics/daily?device_id=1&from=2026-10-01&to=2026-10-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"count":1`)

	w, _ = perform(t, r, http.MethodGet, "/metrics/daily?from=10/01/2026", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = perform(t, r, http.MethodGet, "/metrics/daily?device_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	loaded := map[string]bool{"eta": false, "behavior": true, "anomaly": false}

	for _, tt := range []struct {
		name   string
		db     Pinger
		status int
	}{
		{"up", pinger{}, http.StatusOK},
		{"db down", pinger{err: errors.New("closed")}, http.StatusServiceUnavailable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tt.db, loaded).Health)
			w, _ := perform(t, r, http.MethodGet, "/health", nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"behavior":true`)
		})
	}
}

func TestAnalysisTaskHandler(t *testing.T) {
	db, err := database.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewAnalysisTaskService(
		repository.NewAnalysisTaskRepository(db),
		analysis.Deps{DB: db, Options: analysis.Options{Location: time.UTC, Workers: 1}},
	)
	h := NewAnalysisTaskHandler(svc)

	r := gin.New()
	r.POST("/tasks", h.CreateTask)
	r.GET("/tasks", h.ListTasks)
	r.GET("/tasks/:id", h.GetTask)
	r.DELETE("/tasks/:id", h.CancelTask)

	w, _ := perform(t, r, http.MethodPost, "/tasks", map[string]interface{}{"skill_name": "unknown"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = perform(t, r, http.MethodPost, "/tasks", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := perform(t, r, http.MethodPost, "/tasks", map[string]interface{}{"skill_name": "daily_metrics"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var task models.AnalysisTask
	require.NoError(t, json.Unmarshal(env.Data, &task))
	svc.Wait()

	w, env = perform(t, r, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, models.TaskStatusCompleted, task.Status)

	w, _ = perform(t, r, http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = perform(t, r, http.MethodGet, "/tasks/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(t, r, http.MethodGet, "/tasks/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = perform(t, r, http.MethodGet, "/tasks?skill_name=daily_metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"route_segments"`)
}

func TestSegmentHandler(t *testing.T) {
	db, err := database.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seg := models.RouteSegment{
		DeviceID: 4, StartTime: start, EndTime: start.Add(5 * time.Minute),
		TravelTimeMin: 5, DistanceKm: 2.5, TimeContext: models.NewTimeContext(start),
	}
	segments := repository.NewSegmentRepository(db)
	require.NoError(t, segments.ReplaceAll(ctx, []repository.SegmentRow{{Segment: seg, Features: segment.ForSegment(seg, 30)}}))

	anomalies := repository.NewAnomalyRepository(db)
	require.NoError(t, anomalies.ReplaceAll(ctx, []models.AnomalyEvent{{RunID: "r", DeviceID: 4, Timestamp: 10, Speed: 140, Score: -1}}))

	h := NewSegmentHandler(service.NewSegmentService(segments, anomalies))
	r := gin.New()
	r.GET("/segments", h.GetSegments)
	r.GET("/segments/:id", h.GetSegmentByID)
	r.GET("/anomalies", h.GetAnomalyEvents)

	w, env := perform(t, r, http.MethodGet, "/segments?device_id=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data       []repository.SegmentRow `json:"data"`
		Total      int64                   `json:"total"`
		TotalPages int                     `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.InDelta(t, 2.5, page.Data[0].Features.DistanceKm, 1e-9)

	w, _ = perform(t, r, http.MethodGet, fmt.Sprintf("/segments/%d", page.Data[0].Segment.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(t, r, http.MethodGet, "/segments/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(t, r, http.MethodGet, "/anomalies", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = perform(t, r, http.MethodGet, "/anomalies?device_id=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"count":1`)

	w, env = perform(t, r, http.MethodGet, "/anomalies?device_id=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"events":[]`)
}
