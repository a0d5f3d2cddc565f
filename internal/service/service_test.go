package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	_ "github.com/jengzang/regps-supervision-go/internal/analysis/batch"
	"github.com/jengzang/regps-supervision-go/internal/analysis/scoring"
	"github.com/jengzang/regps-supervision-go/internal/analysis/segment"
	"github.com/jengzang/regps-supervision-go/internal/database"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/ml"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
)

type fixedProfile struct {
	speed float64
	err   error
}

func (f fixedProfile) AverageSpeed(context.Context, int64) (float64, error) {
	return f.speed, f.err
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func etaRequest(distanceKm float64, hour int) models.ETARequest {
	lat, lon := -16.40, -71.53
	dlat, dlon := spatial.DestinationPoint(lat, lon, 90, distanceKm)
	return models.ETARequest{
		DeviceID:        1,
		CurrentLocation: &models.Coordinate{Latitude: lat, Longitude: lon},
		Destination:     &models.Coordinate{Latitude: dlat, Longitude: dlon},
		CurrentSpeedKmh: 30,
		Hour:            intPtr(hour),
		Weekday:         intPtr(2),
	}
}

func TestETAService_Heuristic(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		expected float64
		eta      float64
	}{
		{"midday", 12, 40, 15},
		{"rush hour", 8, 28, 10.0 / 28 * 60},
		{"night", 3, 48, 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewETAService(fixedProfile{speed: 40}, nil, time.UTC)
			est, err := svc.Estimate(context.Background(), etaRequest(10, tt.hour))
			require.NoError(t, err)

			assert.Equal(t, models.ETASourceHeuristic, est.Source)
			assert.Equal(t, HeuristicConfidence, est.Confidence)
			assert.InDelta(t, 10, est.DistanceKm, 0.1)
			assert.InDelta(t, tt.expected, est.ExpectedAvgSpeedKm, 0.01)
			assert.InDelta(t, tt.eta, est.ETAMinutes, 0.2)
			assert.False(t, svc.ModelLoaded())
		})
	}
}

func TestETAService_Model(t *testing.T) {
	coef := make([]float64, len(segment.FeatureColumns))
	coef[len(coef)-1] = 1 // naive_eta_min

	newBound := func(intercept, r2 float64) *ml.Bound {
		m, err := ml.NewLinearModel(ml.Artifact{
			Name:           "eta",
			Kind:           ml.KindRegressor,
			FeatureColumns: segment.FeatureColumns,
			Coefficients:   coef,
			Intercept:      intercept,
			Metrics:        map[string]float64{"r2": r2},
		})
		require.NoError(t, err)
		b, err := ml.Bind("eta", m, segment.FeatureColumns)
		require.NoError(t, err)
		return b
	}

	svc := NewETAService(fixedProfile{speed: 40}, newBound(2, 1.3), time.UTC)
	est, err := svc.Estimate(context.Background(), etaRequest(10, 12))
	require.NoError(t, err)
	assert.Equal(t, models.ETASourceModel, est.Source)
	assert.InDelta(t, 17, est.ETAMinutes, 0.2)
	assert.Equal(t, 1.0, est.Confidence)
	assert.True(t, svc.ModelLoaded())

	svc = NewETAService(fixedProfile{speed: 40}, newBound(-1000, -0.2), time.UTC)
	est, err = svc.Estimate(context.Background(), etaRequest(10, 12))
	require.NoError(t, err)
	assert.Equal(t, 0.0, est.ETAMinutes)
	assert.Equal(t, 0.0, est.Confidence)
}

func TestETAService_ProfileError(t *testing.T) {
	upstream := &errorutil.UpstreamUnavailableError{Source: "locations", Err: errors.New("locked")}
	svc := NewETAService(fixedProfile{err: upstream}, nil, time.UTC)

	_, err := svc.Estimate(context.Background(), etaRequest(1, 12))
	require.Error(t, err)
	assert.True(t, errorutil.IsUpstreamUnavailable(err))
}

func TestETAService_DefaultTimeContext(t *testing.T) {
	svc := NewETAService(fixedProfile{speed: 40}, nil, time.UTC)
	// Saturday 08:30
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC) }

	req := etaRequest(10, 0)
	req.Hour, req.Weekday = nil, nil
	est, err := svc.Estimate(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 28, est.ExpectedAvgSpeedKm, 0.01)
}

func TestAnomalyService_Detect(t *testing.T) {
	svc := NewAnomalyService()

	verdict, err := svc.Detect(models.AnomalyRequest{DeviceID: 1, Locations: []models.LocationInput{
		{Speed: floatPtr(95)},
		{},
		{Speed: floatPtr(40)},
	}})
	require.NoError(t, err)
	assert.True(t, verdict.IsAnomaly)
	assert.Equal(t, models.AnomalySpeedViolation, verdict.AnomalyType)

	_, err = svc.Detect(models.AnomalyRequest{DeviceID: 1, Locations: []models.LocationInput{{}, {}}})
	require.Error(t, err)
	assert.True(t, errorutil.IsValidation(err))
}

func TestBehaviorService_Classify(t *testing.T) {
	locs := make([]models.LocationInput, 10)
	for i := range locs {
		locs[i].Speed = floatPtr(40)
	}

	score, err := NewBehaviorService().Classify(models.BehaviorRequest{DeviceID: 1, Locations: locs})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryEfficient, score.Category)
	assert.Equal(t, scoring.RecommendNone, score.Recommendation)
	assert.Empty(t, score.Alerts)
}

type zoneList []models.Zone

func (z zoneList) ListZones(context.Context) ([]models.Zone, error) { return z, nil }

func TestGeofenceService_Verify(t *testing.T) {
	zones := zoneList{
		{ID: 1, Name: "depot", Type: models.ZoneTypeRestricted, Latitude: -16.40, Longitude: -71.53, RadiusKm: 1},
		{ID: 2, Name: "gate", Type: models.ZoneTypeCheckpoint, Latitude: -16.40, Longitude: -71.53, RadiusKm: 0.1},
		{ID: 3, Name: "far", Type: models.ZoneTypeGeneral, Latitude: -12.0, Longitude: -77.0, RadiusKm: 5},
	}
	svc := NewGeofenceService(zones)

	lat, lon := spatial.DestinationPoint(-16.40, -71.53, 45, 0.5)
	res, err := svc.Verify(context.Background(), models.GeofenceRequest{
		DeviceID: 9,
		Location: &models.Coordinate{Latitude: lat, Longitude: lon},
	})
	require.NoError(t, err)
	assert.True(t, res.Inside)
	assert.True(t, res.Restricted)
	require.Len(t, res.Zones, 1)
	assert.Equal(t, "depot", res.Zones[0].Zone.Name)
	assert.InDelta(t, 0.5, res.Zones[0].DistanceKm, 0.01)

	res, err = svc.Verify(context.Background(), models.GeofenceRequest{DeviceID: 9, Location: &models.Coordinate{Latitude: 10, Longitude: 10}})
	require.NoError(t, err)
	assert.False(t, res.Inside)
	assert.NotNil(t, res.Zones)

	_, err = svc.Verify(context.Background(), models.GeofenceRequest{DeviceID: 9})
	assert.True(t, errorutil.IsValidation(err))
}

func TestDailyMetricsService_List(t *testing.T) {
	db, err := database.Open(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewDailyMetricsRepository(db)
	require.NoError(t, repo.ReplaceAll(context.Background(), []models.DailyMetrics{
		{DeviceID: 1, Date: "2024-03-01", Category: models.CategoryNormal},
	}))
	svc := NewDailyMetricsService(repo)

	got, err := svc.List(context.Background(), repository.DailyMetricsFilter{DeviceID: 1, From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = svc.List(context.Background(), repository.DailyMetricsFilter{DeviceID: 2})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	for _, f := range []repository.DailyMetricsFilter{
		{From: "03/01/2024"},
		{From: "2024-03-05", To: "2024-03-01"},
	} {
		_, err := svc.List(context.Background(), f)
		assert.True(t, errorutil.IsValidation(err), f)
	}
}

func newTaskService(t *testing.T) (*AnalysisTaskService, *repository.AnalysisTaskRepository) {
	t.Helper()
	db, err := database.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewAnalysisTaskRepository(db)
	deps := analysis.Deps{DB: db, Options: analysis.Options{Location: time.UTC, Workers: 1}}
	return NewAnalysisTaskService(repo, deps), repo
}

func TestAnalysisTaskService_RunTask(t *testing.T) {
	svc, _ := newTaskService(t)

	task, err := svc.RunTask(context.Background(), "daily_metrics", map[string]interface{}{"source": "test"}, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, `{"source":"test"}`, task.ParamsJSON)
	assert.NotEmpty(t, task.RunID)
	assert.JSONEq(t, `{"groups":0,"skipped_groups":0,"rows_written":0,"records":0}`, task.ResultSummary)
}

func TestAnalysisTaskService_UnknownSkill(t *testing.T) {
	svc, _ := newTaskService(t)

	_, err := svc.CreateTask("stay_detection", nil, "")
	require.Error(t, err)
	assert.True(t, errorutil.IsValidation(err))
}

func TestAnalysisTaskService_FailureIsRecorded(t *testing.T) {
	svc, repo := newTaskService(t)

	_, err := svc.RunTask(context.Background(), "anomaly_scan", nil, "")
	require.Error(t, err)
	assert.True(t, errorutil.IsConfiguration(err))

	tasks, err := repo.List("anomaly_scan", models.TaskStatusFailed, 10, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Contains(t, tasks[0].ErrorMessage, "anomaly")
}

func TestAnalysisTaskService_CreateAndCancel(t *testing.T) {
	svc, repo := newTaskService(t)

	task, err := svc.CreateTask("route_segments", nil, "")
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)

	// finished tasks cannot be cancelled
	err = svc.CancelTask(task.ID)
	assert.ErrorIs(t, err, ErrTaskNotActive)

	pending := &models.AnalysisTask{RunID: "x", SkillName: "daily_metrics", Status: models.TaskStatusPending}
	require.NoError(t, repo.Create(pending))
	require.NoError(t, svc.CancelTask(pending.ID))

	got, err = svc.GetTask(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, got.Status)

	_, err = svc.GetTask(9999)
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)

	list, err := svc.ListTasks("", "", 0, -1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAnalysisTaskService_CancelIsFinal(t *testing.T) {
	svc, repo := newTaskService(t)

	task := &models.AnalysisTask{RunID: "cancel-first", SkillName: "daily_metrics", Status: models.TaskStatusPending}
	require.NoError(t, repo.Create(task))
	require.NoError(t, repo.MarkAsRunning(task.ID))
	require.NoError(t, svc.CancelTask(task.ID))

	// the job reaches its final write after the cancel
	err := repo.MarkAsCompleted(task.ID, `{"groups":1}`)
	assert.ErrorIs(t, err, ErrTaskNotActive)
	assert.ErrorIs(t, repo.MarkAsFailed(task.ID, "late"), ErrTaskNotActive)
	assert.ErrorIs(t, repo.MarkAsRunning(task.ID), ErrTaskNotActive)

	got, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, got.Status)
	assert.Equal(t, "cancelled", got.ErrorMessage)
	assert.Empty(t, got.ResultSummary)
}

func TestAnalysisTaskService_CompletedBeforeCancel(t *testing.T) {
	_, repo := newTaskService(t)

	task := &models.AnalysisTask{RunID: "complete-first", SkillName: "daily_metrics", Status: models.TaskStatusPending}
	require.NoError(t, repo.Create(task))
	require.NoError(t, repo.MarkAsRunning(task.ID))
	require.NoError(t, repo.MarkAsCompleted(task.ID, `{"groups":1}`))

	// a cancel that read the row as running before the commit
	assert.ErrorIs(t, repo.MarkAsCancelled(task.ID), ErrTaskNotActive)

	got, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Empty(t, got.ErrorMessage)
}
