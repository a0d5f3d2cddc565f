package models

// LocationInput is one reading submitted on the request path. Speed is
// optional; readings without it are ignored by the speed-based checks.
type LocationInput struct {
	Latitude  float64  `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64  `json:"longitude" binding:"min=-180,max=180"`
	Speed     *float64 `json:"speed_kmh,omitempty" binding:"omitempty,min=0"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// Speeds returns the supplied speed readings in order
func Speeds(locations []LocationInput) []float64 {
	out := make([]float64, 0, len(locations))
	for _, l := range locations {
		if l.Speed != nil {
			out = append(out, *l.Speed)
		}
	}
	return out
}

// AnomalyRequest asks whether a short window of readings looks anomalous
type AnomalyRequest struct {
	DeviceID  int64           `json:"device_id" binding:"required"`
	Locations []LocationInput `json:"locations" binding:"required,min=2,dive"`
}

// BehaviorRequest asks for a behavior score over a window of readings
type BehaviorRequest struct {
	DeviceID   int64           `json:"device_id" binding:"required"`
	EmployeeID *int64          `json:"employee_id,omitempty"`
	Locations  []LocationInput `json:"locations" binding:"required,min=10,dive"`
}

// GeofenceRequest asks which zones contain a location
type GeofenceRequest struct {
	DeviceID int64       `json:"device_id" binding:"required"`
	Location *Coordinate `json:"location" binding:"required"`
}

// GeofenceMatch is a zone containing the requested location
type GeofenceMatch struct {
	Zone       Zone    `json:"zone"`
	DistanceKm float64 `json:"distance_km"`
}

// GeofenceResult lists the zones containing a location
type GeofenceResult struct {
	DeviceID   int64           `json:"device_id"`
	Inside     bool            `json:"inside"`
	Restricted bool            `json:"restricted"`
	Zones      []GeofenceMatch `json:"zones"`
}
