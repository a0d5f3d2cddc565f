// Package bootstrap builds the shared runtime pieces used by both the HTTP
// server and the batch runner from a loaded config.
package bootstrap

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	"github.com/jengzang/regps-supervision-go/internal/analysis/anomaly"
	"github.com/jengzang/regps-supervision-go/internal/analysis/daily"
	"github.com/jengzang/regps-supervision-go/internal/analysis/segment"
	"github.com/jengzang/regps-supervision-go/internal/analysis/trajectory"
	"github.com/jengzang/regps-supervision-go/internal/cache"
	"github.com/jengzang/regps-supervision-go/internal/config"
	"github.com/jengzang/regps-supervision-go/internal/ml"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// LoadModels binds each configured artifact to its builder's columns. A model
// that fails to load or bind is logged and left nil.
func LoadModels(cfg *config.Config, log *logrus.Entry) analysis.Models {
	var m analysis.Models

	specs := []struct {
		name    string
		path    string
		columns []string
		dst     **ml.Bound
	}{
		{"eta", cfg.ETAModelPath, segment.FeatureColumns, &m.ETA},
		{"behavior", cfg.BehaviorModelPath, daily.FeatureColumns, &m.Behavior},
		{"anomaly", cfg.AnomalyModelPath, anomaly.ModelFeatureColumns, &m.Anomaly},
	}

	for _, s := range specs {
		b, err := ml.LoadBound(s.name, s.path, s.columns)
		if err != nil {
			log.WithError(err).WithField("model", s.name).Warn("model disabled")
			continue
		}
		if b != nil {
			log.WithFields(logrus.Fields{"model": s.name, "path": s.path}).Info("model loaded")
		}
		*s.dst = b
	}

	return m
}

// ModelsLoaded reports which models are bound, keyed by name
func ModelsLoaded(m analysis.Models) map[string]bool {
	return map[string]bool{
		"eta":      m.ETA != nil,
		"behavior": m.Behavior != nil,
		"anomaly":  m.Anomaly != nil,
	}
}

// Options derives the batch run options from cfg
func Options(cfg *config.Config) analysis.Options {
	return analysis.Options{
		HistoryDays: cfg.HistoryDays,
		Workers:     cfg.Workers,
		Location:    cfg.Timezone,
		Trajectory:  trajectory.DefaultConfig(),
	}
}

// SpeedProfiles builds the speed-profile read-through cache. Redis is used
// when configured and reachable; otherwise profiles are cached in memory.
func SpeedProfiles(ctx context.Context, cfg *config.Config, db *sql.DB, log *logrus.Entry) (*cache.SpeedProfiles, func() error) {
	var store cache.Store = cache.NewMemoryStore()
	closer := func() error { return nil }

	if cfg.RedisAddr != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unavailable, caching speed profiles in memory")
		} else {
			log.WithField("addr", cfg.RedisAddr).Info("speed profiles cached in redis")
			store, closer = rs, rs.Close
		}
	}

	profiles := cache.NewSpeedProfiles(store, repository.NewLocationRepository(db, cfg.Timezone), cache.SpeedProfilesConfig{
		TTL:         cfg.SpeedProfileTTL,
		HistoryDays: cfg.HistoryDays,
		FallbackKmh: cfg.DefaultAvgSpeedKmh,
	}, log)

	return profiles, closer
}
