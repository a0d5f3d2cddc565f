package trajectory

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
	"github.com/jengzang/regps-supervision-go/internal/stats"
)

// foldState is what a step carries forward from the previous point of the same device
type foldState struct {
	started    bool
	prev       models.LocationSample
	prevBear   float64
	hasBearing bool

	cumDistance   float64
	cumMovingTime float64

	hardBrakes, hardAccels, speeding, sharpTurns int
}

// step derives the features of one sample given the state left by its predecessor
func step(st foldState, s models.LocationSample, cfg Config) (models.TrajectoryPoint, foldState) {
	p := models.TrajectoryPoint{
		LocationSample: s,
		IsStopped:      s.Speed < cfg.StopThresholdKmh,
		TimeContext:    models.NewTimeContext(s.Timestamp),
	}

	bearing, hasBearing := 0.0, false
	if s.Heading != nil {
		bearing, hasBearing = spatial.NormalizeBearing(*s.Heading), true
	}

	if st.started {
		prev := st.prev
		p.TimeFromPrevS = s.Timestamp.Sub(prev.Timestamp).Seconds()
		p.DistanceFromPrevKm = spatial.Distance(prev.Latitude, prev.Longitude, s.Latitude, s.Longitude)
		if p.TimeFromPrevS > 0 {
			p.ComputedSpeedKmh = spatial.Speed(p.DistanceFromPrevKm, p.TimeFromPrevS/3600)
			p.AccelerationMS2 = spatial.Acceleration(prev.Speed, s.Speed, p.TimeFromPrevS)
		}
		switch {
		case hasBearing:
		case p.DistanceFromPrevKm == 0:
			// a repeated fix has no direction of its own
			bearing, hasBearing = st.prevBear, st.hasBearing
		default:
			bearing, hasBearing = spatial.Bearing(prev.Latitude, prev.Longitude, s.Latitude, s.Longitude), true
		}
		if st.hasBearing && hasBearing {
			p.BearingChangeDeg = spatial.BearingChange(st.prevBear, bearing)
		}
	}
	p.BearingDeg = bearing

	st.cumDistance += p.DistanceFromPrevKm
	if !p.IsStopped {
		st.cumMovingTime += p.TimeFromPrevS
	}
	p.CumulativeDistanceKm = st.cumDistance
	p.CumulativeMovingTimeS = st.cumMovingTime

	p.HardBrake = p.AccelerationMS2 < cfg.HardBrakeMS2
	p.HardAccel = p.AccelerationMS2 > cfg.HardAccelMS2
	p.Speeding = s.Speed > cfg.SpeedingKmh
	p.SharpTurn = st.started && p.BearingChangeDeg > cfg.SharpTurnDeg && p.TimeFromPrevS < cfg.SharpTurnWithinS

	if p.HardBrake {
		st.hardBrakes++
	}
	if p.HardAccel {
		st.hardAccels++
	}
	if p.Speeding {
		st.speeding++
	}
	if p.SharpTurn {
		st.sharpTurns++
	}
	p.HardBrakeCount = st.hardBrakes
	p.HardAccelCount = st.hardAccels
	p.SpeedingCount = st.speeding
	p.SharpTurnCount = st.sharpTurns

	st.started = true
	st.prev = s
	st.prevBear = bearing
	st.hasBearing = hasBearing

	return p, st
}

// Build derives trajectory points for a single device stream. Samples are
// sorted by timestamp on a copy; the caller's slice is left untouched.
func Build(samples []models.LocationSample, cfg Config) []models.TrajectoryPoint {
	if len(samples) == 0 {
		return nil
	}

	ordered := make([]models.LocationSample, len(samples))
	copy(ordered, samples)
	SortByTime(ordered)

	points := make([]models.TrajectoryPoint, len(ordered))
	var st foldState
	for i, s := range ordered {
		points[i], st = step(st, s, cfg)
	}

	applyRolling(points, cfg.Windows)
	return points
}

func applyRolling(points []models.TrajectoryPoint, windows []int) {
	speeds := make([]float64, len(points))
	accels := make([]float64, len(points))
	for i, p := range points {
		speeds[i] = p.Speed
		accels[i] = p.AccelerationMS2
	}

	for i := range points {
		points[i].Rolling = make([]models.RollingStats, len(windows))
	}
	for w, size := range windows {
		mean := stats.RollingMean(speeds, size)
		max := stats.RollingMax(speeds, size)
		std := stats.RollingStdDev(speeds, size)
		accMean := stats.RollingMean(accels, size)
		for i := range points {
			points[i].Rolling[w] = models.RollingStats{
				Window:    size,
				SpeedMean: mean[i],
				SpeedMax:  max[i],
				SpeedStd:  std[i],
				AccelMean: accMean[i],
			}
		}
	}
}

// BuildAll groups samples by device and builds every stream. Streams are
// independent, so they are processed in parallel with at most workers
// goroutines; the result is ordered by device id regardless.
func BuildAll(ctx context.Context, samples []models.LocationSample, cfg Config, workers int) ([][]models.TrajectoryPoint, error) {
	streams := GroupByDevice(samples)
	out := make([][]models.TrajectoryPoint, len(streams))

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range streams {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Build(s.Samples, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
