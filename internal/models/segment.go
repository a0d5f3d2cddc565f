package models

import "time"

// RouteSegment is an origin to destination hop between two consecutive
// points of one device that passed the travel time and distance filters
type RouteSegment struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	DeviceID  int64     `json:"device_id" db:"device_id"`
	OriginLat float64   `json:"origin_lat" db:"origin_lat"`
	OriginLon float64   `json:"origin_lon" db:"origin_lon"`
	DestLat   float64   `json:"dest_lat" db:"dest_lat"`
	DestLon   float64   `json:"dest_lon" db:"dest_lon"`
	StartTime time.Time `json:"start_time" db:"start_ts"`
	EndTime   time.Time `json:"end_time" db:"end_ts"`

	TravelTimeMin  float64 `json:"travel_time_min" db:"travel_time_min"`
	DistanceKm     float64 `json:"distance_km" db:"distance_km"`
	BearingDeg     float64 `json:"bearing_deg" db:"bearing_deg"`
	OriginSpeedKmh float64 `json:"origin_speed_kmh" db:"origin_speed_kmh"`

	TimeContext
}

// Coordinate is a validated latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// ETARequest asks for the arrival time of a device at a destination
type ETARequest struct {
	DeviceID        int64      `json:"device_id" binding:"required"`
	CurrentLocation *Coordinate `json:"current_location" binding:"required"`
	Destination     *Coordinate `json:"destination" binding:"required"`
	CurrentSpeedKmh float64    `json:"current_speed_kmh" binding:"min=0"`
	Hour            *int       `json:"hour,omitempty" binding:"omitempty,min=0,max=23"`
	Weekday         *int       `json:"weekday,omitempty" binding:"omitempty,min=0,max=6"`
}

// ETA sources
const (
	ETASourceModel     = "model"
	ETASourceHeuristic = "heuristic"
)

// ETAEstimate is the answer to an ETARequest
type ETAEstimate struct {
	ETAMinutes         float64   `json:"eta_minutes"`
	DistanceKm         float64   `json:"distance_km"`
	ExpectedAvgSpeedKm float64   `json:"expected_avg_speed_kmh"`
	Confidence         float64   `json:"confidence"`
	Source             string    `json:"source"`
	Timestamp          time.Time `json:"timestamp"`
}
