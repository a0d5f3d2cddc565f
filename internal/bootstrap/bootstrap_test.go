package bootstrap

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/regps-supervision-go/internal/analysis/segment"
	"github.com/jengzang/regps-supervision-go/internal/config"
	"github.com/jengzang/regps-supervision-go/internal/database"
	"github.com/jengzang/regps-supervision-go/internal/ml"
)

func writeArtifact(t *testing.T, a ml.Artifact) string {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), a.Name+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadModels(t *testing.T) {
	eta := writeArtifact(t, ml.Artifact{
		Name:           "eta",
		Kind:           ml.KindRegressor,
		FeatureColumns: segment.FeatureColumns,
		Coefficients:   make([]float64, len(segment.FeatureColumns)),
		Metrics:        map[string]float64{"r2": 0.8},
	})
	// columns out of order for the behavior builder
	behavior := writeArtifact(t, ml.Artifact{
		Name:           "behavior",
		Kind:           ml.KindClassifier,
		FeatureColumns: []string{"score", "mean_speed"},
		Coefficients:   []float64{0, 0},
		Classes:        []string{"normal"},
	})

	logger, hook := test.NewNullLogger()
	cfg := &config.Config{
		ETAModelPath:      eta,
		BehaviorModelPath: behavior,
		AnomalyModelPath:  filepath.Join(t.TempDir(), "missing.json"),
	}

	m := LoadModels(cfg, logrus.NewEntry(logger))

	assert.NotNil(t, m.ETA)
	assert.Nil(t, m.Behavior)
	assert.Nil(t, m.Anomaly)
	assert.Equal(t, map[string]bool{"eta": true, "behavior": false, "anomaly": false}, ModelsLoaded(m))

	disabled := map[string]int{}
	for _, e := range hook.AllEntries() {
		if name, ok := e.Data["model"].(string); ok && e.Level == logrus.WarnLevel {
			disabled[name]++
		}
	}
	assert.Equal(t, map[string]int{"behavior": 1, "anomaly": 1}, disabled)
}

func TestOptions(t *testing.T) {
	cfg := &config.Config{HistoryDays: 30, Workers: 3, Timezone: time.UTC}
	opts := Options(cfg)

	assert.Equal(t, 30, opts.HistoryDays)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, time.UTC, opts.Location)
	assert.NotEmpty(t, opts.Trajectory.Windows)
}

func TestSpeedProfiles_FallsBackToMemory(t *testing.T) {
	db, err := database.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, hook := test.NewNullLogger()
	cfg := &config.Config{
		RedisAddr:          "127.0.0.1:1",
		Timezone:           time.UTC,
		HistoryDays:        90,
		SpeedProfileTTL:    time.Minute,
		DefaultAvgSpeedKmh: 40,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profiles, closeStore := SpeedProfiles(ctx, cfg, db, logrus.NewEntry(logger))
	defer closeStore()

	require.NotNil(t, profiles)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	// no history for the device
	speed, err := profiles.AverageSpeed(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 40.0, speed)
}
