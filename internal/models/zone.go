package models

import "time"

// Zone types
const (
	ZoneTypeRestricted = "restricted"
	ZoneTypeCheckpoint = "checkpoint"
	ZoneTypeGeneral    = "general"
)

// Alert priorities
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityNormal   = "normal"
)

// Zone is a circular geofence
type Zone struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Type      string  `json:"type" db:"zone_type"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	RadiusKm  float64 `json:"radius_km" db:"radius_km"`
}

// ZoneVisit records a device entering a zone
type ZoneVisit struct {
	DeviceID  int64     `json:"device_id" db:"device_id"`
	ZoneID    int64     `json:"zone_id" db:"zone_id"`
	ZoneType  string    `json:"zone_type" db:"zone_type"`
	Timestamp time.Time `json:"timestamp" db:"ts"`
}

// Alert is an externally raised alert for a device
type Alert struct {
	ID        int64     `json:"id" db:"id"`
	DeviceID  int64     `json:"device_id" db:"device_id"`
	Kind      string    `json:"kind" db:"kind"`
	Priority  string    `json:"priority" db:"priority"`
	Timestamp time.Time `json:"timestamp" db:"ts"`
}
