package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
)

// SpeedSource computes a device's average reported speed over a period
type SpeedSource interface {
	AverageSpeed(ctx context.Context, deviceID int64, since time.Time) (float64, int, error)
}

// SpeedProfiles answers "what is this device's historical average speed",
// reading through a Store in front of the location history.
type SpeedProfiles struct {
	store    Store
	source   SpeedSource
	ttl      time.Duration
	history  time.Duration
	fallback float64
	log      *logrus.Entry
	now      func() time.Time
}

// SpeedProfilesConfig configures SpeedProfiles
type SpeedProfilesConfig struct {
	TTL         time.Duration
	HistoryDays int
	FallbackKmh float64
}

func NewSpeedProfiles(store Store, source SpeedSource, cfg SpeedProfilesConfig, log *logrus.Entry) *SpeedProfiles {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SpeedProfiles{
		store:    store,
		source:   source,
		ttl:      cfg.TTL,
		history:  time.Duration(cfg.HistoryDays) * 24 * time.Hour,
		fallback: cfg.FallbackKmh,
		log:      log.WithField("component", "speed_profiles"),
		now:      time.Now,
	}
}

// AverageSpeed returns the device's historical average speed. Devices with no
// history, or only stationary history, get the configured fallback, which is
// not cached. Cache failures are logged and bypassed.
func (p *SpeedProfiles) AverageSpeed(ctx context.Context, deviceID int64) (float64, error) {
	if speed, ok, err := p.store.Get(ctx, deviceID); err != nil {
		p.log.WithError(err).WithField("device_id", deviceID).Warn("speed profile cache read failed")
	} else if ok {
		return speed, nil
	}

	avg, n, err := p.source.AverageSpeed(ctx, deviceID, p.now().Add(-p.history))
	if err != nil {
		return 0, &errorutil.UpstreamUnavailableError{Source: "locations", Err: err}
	}
	if n == 0 || avg <= 0 {
		return p.fallback, nil
	}

	if err := p.store.Set(ctx, deviceID, avg, p.ttl); err != nil {
		p.log.WithError(err).WithField("device_id", deviceID).Warn("speed profile cache write failed")
	}
	return avg, nil
}

// Fallback is the speed used for devices without history
func (p *SpeedProfiles) Fallback() float64 {
	return p.fallback
}
