// Package daily reduces a device's samples to one metric record per
// calendar day and scores it.
package daily

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/regps-supervision-go/internal/analysis/scoring"
	"github.com/jengzang/regps-supervision-go/internal/analysis/trajectory"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
	"github.com/jengzang/regps-supervision-go/internal/stats"
)

// Aggregation thresholds
const (
	MinSamplesPerDay = 2
	ViolationKmh     = 90.0
	StopKmh          = 5.0
	BrusqueDeltaKmh  = 30.0
)

// DateLayout is the calendar date format of DailyMetrics.Date
const DateLayout = "2006-01-02"

type dayKey struct {
	device int64
	date   string
}

// SideCounts are the zone and alert counts merged into a day
type SideCounts struct {
	RestrictedZones int
	Checkpoints     int
	Alerts          int
	CriticalAlerts  int
}

// SideTables indexes zone visits and alerts by (device, date). Either input
// may be nil, in which case every count is 0.
type SideTables struct {
	counts map[dayKey]*SideCounts
}

// NewSideTables buckets zone visits and alerts into calendar days of loc
func NewSideTables(visits []models.ZoneVisit, alerts []models.Alert, loc *time.Location) SideTables {
	if loc == nil {
		loc = time.Local
	}
	st := SideTables{counts: make(map[dayKey]*SideCounts)}
	get := func(device int64, ts time.Time) *SideCounts {
		k := dayKey{device: device, date: ts.In(loc).Format(DateLayout)}
		c, ok := st.counts[k]
		if !ok {
			c = &SideCounts{}
			st.counts[k] = c
		}
		return c
	}

	for _, v := range visits {
		switch v.ZoneType {
		case models.ZoneTypeRestricted:
			get(v.DeviceID, v.Timestamp).RestrictedZones++
		case models.ZoneTypeCheckpoint:
			get(v.DeviceID, v.Timestamp).Checkpoints++
		}
	}
	for _, a := range alerts {
		c := get(a.DeviceID, a.Timestamp)
		c.Alerts++
		if a.Priority == models.PriorityCritical {
			c.CriticalAlerts++
		}
	}
	return st
}

// For returns the counts of one device-day
func (st SideTables) For(device int64, date string) SideCounts {
	if c, ok := st.counts[dayKey{device: device, date: date}]; ok {
		return *c
	}
	return SideCounts{}
}

// Day reduces one device-day of samples, already in time order. Fewer than
// MinSamplesPerDay samples yields an InsufficientDataError.
func Day(deviceID int64, date string, samples []models.LocationSample, side SideCounts) (models.DailyMetrics, error) {
	n := len(samples)
	if n < MinSamplesPerDay {
		return models.DailyMetrics{}, &errorutil.InsufficientDataError{
			What:     "daily metrics",
			DeviceID: deviceID,
			Date:     date,
			Have:     n,
			Need:     MinSamplesPerDay,
		}
	}

	speeds := make([]float64, n)
	path := make([]spatial.Point, n)
	for i, s := range samples {
		speeds[i] = s.Speed
		path[i] = spatial.Point{Lat: s.Latitude, Lon: s.Longitude}
	}

	violations := stats.CountIf(speeds, func(v float64) bool { return v > ViolationKmh })
	stopped := stats.CountIf(speeds, func(v float64) bool { return v < StopKmh })
	brusque := stats.CountIf(stats.AbsDiffs(speeds), func(d float64) bool { return d > BrusqueDeltaKmh })

	m := models.DailyMetrics{
		DeviceID:            deviceID,
		Date:                date,
		MeanSpeed:           stats.Mean(speeds),
		MaxSpeed:            stats.Max(speeds),
		SpeedStd:            stats.StdDev(speeds),
		ViolationCount:      violations,
		ViolationRate:       float64(violations) / float64(n) * 100,
		MovingRate:          float64(n-stopped) / float64(n) * 100,
		TotalDistanceKm:     spatial.PathLength(path),
		BrusqueChanges:      brusque,
		RestrictedZoneCount: side.RestrictedZones,
		CheckpointCount:     side.Checkpoints,
		AlertCount:          side.Alerts,
		CriticalAlertCount:  side.CriticalAlerts,
		SampleCount:         n,
	}

	score := scoring.DailyScore(scoring.InputsFromMetrics(m))
	m.Score = score.Score
	m.Category = score.Category
	return m, nil
}

// Result is the outcome of an aggregation run
type Result struct {
	Metrics []models.DailyMetrics
	Skipped []*errorutil.InsufficientDataError
	Groups  int
}

type deviceDay struct {
	date    string
	samples []models.LocationSample
}

// splitDays cuts one device stream, already in time order, into calendar days of loc
func splitDays(samples []models.LocationSample, loc *time.Location) []deviceDay {
	var days []deviceDay
	for _, s := range samples {
		date := s.Timestamp.In(loc).Format(DateLayout)
		if len(days) == 0 || days[len(days)-1].date != date {
			days = append(days, deviceDay{date: date})
		}
		last := &days[len(days)-1]
		last.samples = append(last.samples, s)
	}
	return days
}

// Aggregate groups samples by (device, calendar date in loc) and reduces each
// group. Days with fewer than MinSamplesPerDay samples are reported in
// Result.Skipped instead of failing the run. Devices are processed in
// parallel; output is ordered by device then date.
func Aggregate(ctx context.Context, samples []models.LocationSample, side SideTables, loc *time.Location, workers int) (*Result, error) {
	if loc == nil {
		loc = time.Local
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	streams := trajectory.GroupByDevice(samples)
	perDevice := make([]Result, len(streams))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, stream := range streams {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Result
			for _, d := range splitDays(stream.Samples, loc) {
				r.Groups++
				m, err := Day(stream.DeviceID, d.date, d.samples, side.For(stream.DeviceID, d.date))
				if err != nil {
					var skip *errorutil.InsufficientDataError
					if errors.As(err, &skip) {
						r.Skipped = append(r.Skipped, skip)
						continue
					}
					return err
				}
				r.Metrics = append(r.Metrics, m)
			}
			perDevice[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{}
	for _, r := range perDevice {
		out.Groups += r.Groups
		out.Metrics = append(out.Metrics, r.Metrics...)
		out.Skipped = append(out.Skipped, r.Skipped...)
	}
	sort.SliceStable(out.Metrics, func(i, j int) bool {
		if out.Metrics[i].DeviceID != out.Metrics[j].DeviceID {
			return out.Metrics[i].DeviceID < out.Metrics[j].DeviceID
		}
		return out.Metrics[i].Date < out.Metrics[j].Date
	})
	return out, nil
}
