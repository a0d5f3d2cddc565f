package models

import "time"

// LocationSample is a raw GPS reading reported by a device
type LocationSample struct {
	DeviceID  int64     `json:"device_id" db:"device_id"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Speed     float64   `json:"speed_kmh" db:"speed"` // missing readings are stored as 0
	Heading   *float64  `json:"heading,omitempty" db:"heading"`
	Timestamp time.Time `json:"timestamp" db:"ts"`
}

// RollingStats holds trailing-window statistics for one window size
type RollingStats struct {
	Window    int     `json:"window"`
	SpeedMean float64 `json:"speed_mean"`
	SpeedMax  float64 `json:"speed_max"`
	SpeedStd  float64 `json:"speed_std"`
	AccelMean float64 `json:"accel_mean"`
}

// TrajectoryPoint is a LocationSample enriched with per-device derived features.
// The first point of a device stream carries zero deltas.
type TrajectoryPoint struct {
	LocationSample

	DistanceFromPrevKm float64 `json:"distance_from_prev_km"`
	TimeFromPrevS      float64 `json:"time_from_prev_s"`
	ComputedSpeedKmh   float64 `json:"computed_speed_kmh"`
	AccelerationMS2    float64 `json:"acceleration_m_s2"`
	BearingDeg         float64 `json:"bearing_deg"`
	BearingChangeDeg   float64 `json:"bearing_change_deg"`
	IsStopped          bool    `json:"is_stopped"`

	CumulativeDistanceKm  float64 `json:"cumulative_distance_km"`
	CumulativeMovingTimeS float64 `json:"cumulative_moving_time_s"`

	// One entry per configured window size, in configuration order
	Rolling []RollingStats `json:"rolling"`

	HardBrake bool `json:"hard_brake"`
	HardAccel bool `json:"hard_accel"`
	Speeding  bool `json:"speeding"`
	SharpTurn bool `json:"sharp_turn"`

	HardBrakeCount int `json:"hard_brake_count"`
	HardAccelCount int `json:"hard_accel_count"`
	SpeedingCount  int `json:"speeding_count"`
	SharpTurnCount int `json:"sharp_turn_count"`

	TimeContext
}

// TimeContext is the calendar context of a timestamp
type TimeContext struct {
	Hour      int  `json:"hour"`
	Weekday   int  `json:"weekday"` // Monday=0 .. Sunday=6
	IsWeekend bool `json:"is_weekend"`
}

// NewTimeContext derives the calendar context of t in its own location
func NewTimeContext(t time.Time) TimeContext {
	wd := (int(t.Weekday()) + 6) % 7
	return TimeContext{
		Hour:      t.Hour(),
		Weekday:   wd,
		IsWeekend: wd >= 5,
	}
}
