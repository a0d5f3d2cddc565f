package models

// Behavior categories
const (
	CategoryEfficient      = "efficient"
	CategoryNormal         = "normal"
	CategoryNeedsAttention = "needs_attention"
)

// DailyMetrics is the per (device, calendar date) reduction of a day's samples
type DailyMetrics struct {
	DeviceID int64  `json:"device_id" db:"device_id"`
	Date     string `json:"date" db:"date"` // YYYY-MM-DD

	MeanSpeed float64 `json:"mean_speed" db:"mean_speed"`
	MaxSpeed  float64 `json:"max_speed" db:"max_speed"`
	SpeedStd  float64 `json:"speed_std" db:"speed_std"`

	ViolationCount  int     `json:"violation_count" db:"violation_count"`
	ViolationRate   float64 `json:"violation_rate" db:"violation_rate"`
	MovingRate      float64 `json:"moving_rate" db:"moving_rate"`
	TotalDistanceKm float64 `json:"total_distance_km" db:"total_distance_km"`
	BrusqueChanges  int     `json:"brusque_changes" db:"brusque_changes"`

	RestrictedZoneCount int `json:"restricted_zone_count" db:"restricted_zone_count"`
	CheckpointCount     int `json:"checkpoint_count" db:"checkpoint_count"`
	AlertCount          int `json:"alert_count" db:"alert_count"`
	CriticalAlertCount  int `json:"critical_alert_count" db:"critical_alert_count"`
	SampleCount         int `json:"sample_count" db:"sample_count"`

	Score    float64 `json:"score" db:"score"`
	Category string  `json:"category" db:"category"`

	// Set only when a behavior model is bound
	PredictedCategory string `json:"predicted_category,omitempty" db:"predicted_category"`
}

// BehaviorScore is the output of both behavior scorers
type BehaviorScore struct {
	Score          float64            `json:"score"`
	Category       string             `json:"category"`
	Alerts         []string           `json:"alerts"`
	Metrics        map[string]float64 `json:"metrics"`
	Recommendation string             `json:"recommendation,omitempty"`
}

// Anomaly types
const (
	AnomalySpeedViolation = "speed_violation"
	AnomalyProlongedStop  = "prolonged_stop"
	AnomalyErratic        = "erratic_behavior"
)

// AnomalyVerdict is the result of the rule-based anomaly evaluator
type AnomalyVerdict struct {
	IsAnomaly   bool    `json:"is_anomaly"`
	AnomalyType string  `json:"anomaly_type,omitempty"`
	Score       float64 `json:"score"`
	Details     string  `json:"details"`
}

// AnomalyEvent is a point flagged by the statistical outlier model
type AnomalyEvent struct {
	ID        int64   `json:"id,omitempty" db:"id"`
	RunID     string  `json:"run_id" db:"run_id"`
	DeviceID  int64   `json:"device_id" db:"device_id"`
	Timestamp int64   `json:"timestamp" db:"ts"` // Unix seconds
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Speed     float64 `json:"speed_kmh" db:"speed"`
	Score     float64 `json:"score" db:"score"`
}
