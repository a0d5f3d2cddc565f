package spatial

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/tidwall/geodesic"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
)

// Distance returns the geodesic distance between two points in kilometers,
// measured on the WGS84 ellipsoid
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	var meters float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &meters, nil, nil)
	return meters / 1000
}

// HaversineDistance calculates the great-circle distance between two points in kilometers
// using the Haversine formula on a sphere of radius EarthRadiusKm.
// Results differ from Distance by up to ~0.5%; never compare the two bit for bit.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// HaversineBatch computes pairwise Haversine distances (km) for parallel coordinate slices
func HaversineBatch(lat1, lon1, lat2, lon2 []float64) ([]float64, error) {
	n := len(lat1)
	if len(lon1) != n || len(lat2) != n || len(lon2) != n {
		return nil, errorutil.NewValidationError("coordinates", "batch slices must have equal length")
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = HaversineDistance(lat1[i], lon1[i], lat2[i], lon2[i])
	}
	return out, nil
}

// Bearing calculates the initial bearing (forward azimuth) from point 1 to point 2
// Returns bearing in degrees [0, 360), where 0 is North, 90 is East, etc.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x)

	return NormalizeBearing(bearing * 180 / math.Pi)
}

// NormalizeBearing maps any angle in degrees into [0, 360)
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	// math.Mod(-1e-15, 360) + 360 rounds to 360
	if b >= 360 {
		b = 0
	}
	return b
}

// BearingChange returns the minor-arc difference between two bearings, in [0, 180]
func BearingChange(prev, curr float64) float64 {
	diff := math.Abs(NormalizeBearing(curr) - NormalizeBearing(prev))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// Speed returns km/h for a distance covered in the given hours; zero hours yields 0
func Speed(distanceKm, hours float64) float64 {
	if hours == 0 {
		return 0
	}
	return distanceKm / hours
}

// Acceleration returns m/s² between two speeds given in km/h; a zero interval yields 0
func Acceleration(speed1Kmh, speed2Kmh, dtSeconds float64) float64 {
	if dtSeconds == 0 {
		return 0
	}
	v1 := speed1Kmh * 1000 / 3600
	v2 := speed2Kmh * 1000 / 3600
	return (v2 - v1) / dtSeconds
}

// DestinationPoint calculates the destination point given a start point, bearing, and distance
// bearing: degrees (0-360), distance: kilometers
func DestinationPoint(lat, lon, bearing, distanceKm float64) (float64, float64) {
	p := s2.LatLngFromDegrees(lat, lon)
	bearingRad := bearing * math.Pi / 180
	angularDistance := distanceKm / EarthRadiusKm

	latRad := p.Lat.Radians()
	lonRad := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(latRad)*math.Cos(angularDistance) +
		math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(bearingRad))

	lon2 := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(lat2))

	return lat2 * 180 / math.Pi, lon2 * 180 / math.Pi
}

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)
