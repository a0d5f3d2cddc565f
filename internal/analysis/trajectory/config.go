// Package trajectory derives per-sample movement features from device
// location streams.
package trajectory

// Config holds the thresholds used by the feature builder
type Config struct {
	StopThresholdKmh float64 // speed below which a sample counts as stopped
	Windows          []int   // trailing window sizes for rolling stats

	HardBrakeMS2 float64 // acceleration below this is a hard brake
	HardAccelMS2 float64 // acceleration above this is a hard acceleration
	SpeedingKmh  float64 // speeding flag threshold, distinct from the 90 km/h violation count

	SharpTurnDeg     float64
	SharpTurnWithinS float64
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		StopThresholdKmh: 5,
		Windows:          []int{5, 10},
		HardBrakeMS2:     -2.0,
		HardAccelMS2:     2.0,
		SpeedingKmh:      80,
		SharpTurnDeg:     45,
		SharpTurnWithinS: 5,
	}
}
