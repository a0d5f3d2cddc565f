package models

// SegmentFilter represents filter parameters for querying route segments
type SegmentFilter struct {
	DeviceID    int64   `form:"device_id"`
	StartTime   int64   `form:"start_time"`   // Unix timestamp
	EndTime     int64   `form:"end_time"`     // Unix timestamp
	MinDistance float64 `form:"min_distance"` // Kilometers
	Page        int     `form:"page"`
	PageSize    int     `form:"page_size"`
}

// Normalize applies the paging defaults
func (f *SegmentFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 100
	}
	if f.PageSize > 1000 {
		f.PageSize = 1000
	}
}

// AnomalyEventFilter represents filter parameters for querying anomaly events
type AnomalyEventFilter struct {
	DeviceID int64 `form:"device_id" binding:"required"`
	Limit    int   `form:"limit"`
}
