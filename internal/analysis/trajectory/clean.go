package trajectory

import (
	"math"

	"github.com/jengzang/regps-supervision-go/internal/models"
)

// MaxPlausibleSpeedKmh is the cutoff above which a reading is treated as a GPS glitch
const MaxPlausibleSpeedKmh = 200

type sampleKey struct {
	device   int64
	ts       int64
	lat, lon float64
}

// Clean drops exact duplicates, out-of-range coordinates and implausible
// speeds. It returns the kept samples and the number dropped.
func Clean(samples []models.LocationSample) ([]models.LocationSample, int) {
	seen := make(map[sampleKey]struct{}, len(samples))
	kept := make([]models.LocationSample, 0, len(samples))

	for _, s := range samples {
		if !validCoordinate(s.Latitude, s.Longitude) {
			continue
		}
		if math.IsNaN(s.Speed) || s.Speed < 0 || s.Speed > MaxPlausibleSpeedKmh {
			continue
		}

		k := sampleKey{device: s.DeviceID, ts: s.Timestamp.UnixNano(), lat: s.Latitude, lon: s.Longitude}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, s)
	}

	return kept, len(samples) - len(kept)
}

func validCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
