// Package segment turns trajectories into origin to destination hops and the
// ETA feature rows built from them.
package segment

import (
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
)

// Retention bounds for a hop between consecutive points
const (
	MinTravelMin  = 0.5
	MaxTravelMin  = 120.0
	MinDistanceKm = 0.01
)

// Retained reports whether a hop passes the travel time and distance filters
func Retained(travelMin, distanceKm float64) bool {
	return travelMin >= MinTravelMin && travelMin <= MaxTravelMin && distanceKm >= MinDistanceKm
}

// Segments walks consecutive points of one device trajectory and returns the
// retained hops. Points must come from a single device in time order, as
// produced by trajectory.Build.
func Segments(points []models.TrajectoryPoint) []models.RouteSegment {
	var out []models.RouteSegment
	for i := 1; i < len(points); i++ {
		origin, dest := points[i-1], points[i]
		if origin.DeviceID != dest.DeviceID {
			continue
		}

		travelMin := dest.TimeFromPrevS / 60
		if !Retained(travelMin, dest.DistanceFromPrevKm) {
			continue
		}

		out = append(out, models.RouteSegment{
			DeviceID:       origin.DeviceID,
			OriginLat:      origin.Latitude,
			OriginLon:      origin.Longitude,
			DestLat:        dest.Latitude,
			DestLon:        dest.Longitude,
			StartTime:      origin.Timestamp,
			EndTime:        dest.Timestamp,
			TravelTimeMin:  travelMin,
			DistanceKm:     dest.DistanceFromPrevKm,
			BearingDeg:     spatial.Bearing(origin.Latitude, origin.Longitude, dest.Latitude, dest.Longitude),
			OriginSpeedKmh: origin.Speed,
			TimeContext:    models.NewTimeContext(origin.Timestamp),
		})
	}
	return out
}
