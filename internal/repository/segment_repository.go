package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/regps-supervision-go/internal/analysis/segment"
	"github.com/jengzang/regps-supervision-go/internal/models"
)

// SegmentRow is a retained route segment with its ETA features
type SegmentRow struct {
	Segment  models.RouteSegment `json:"segment"`
	Features segment.ETAFeatures `json:"features"`
}

// SegmentRepository persists route segments used as ETA training examples
type SegmentRepository struct {
	db *sql.DB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// ReplaceAll swaps the whole route_segments table in one transaction
func (r *SegmentRepository) ReplaceAll(ctx context.Context, rows []SegmentRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM route_segments"); err != nil {
		return fmt.Errorf("failed to clear route segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO route_segments (
			device_id, origin_lat, origin_lon, dest_lat, dest_lon, start_ts, end_ts,
			travel_time_min, distance_km, bearing_deg, origin_speed_kmh,
			hour, weekday, is_weekend,
			historical_avg_speed_kmh, expected_speed_kmh, hour_factor, naive_eta_min
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		s, f := row.Segment, row.Features
		_, err := stmt.ExecContext(ctx,
			s.DeviceID, s.OriginLat, s.OriginLon, s.DestLat, s.DestLon, s.StartTime.Unix(), s.EndTime.Unix(),
			s.TravelTimeMin, s.DistanceKm, s.BearingDeg, s.OriginSpeedKmh,
			s.Hour, s.Weekday, s.IsWeekend,
			f.HistoricalAvgSpeedKmh, f.ExpectedSpeedKmh, f.HourFactor, f.NaiveETAMin,
		)
		if err != nil {
			return fmt.Errorf("failed to insert route segment for device %d: %w", s.DeviceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit route segments: %w", err)
	}
	return nil
}

// CountByDevice returns the number of stored segments per device
func (r *SegmentRepository) CountByDevice(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT device_id, COUNT(*) FROM route_segments GROUP BY device_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count route segments: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan segment count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

const segmentColumns = `
	id, device_id, origin_lat, origin_lon, dest_lat, dest_lon, start_ts, end_ts,
	travel_time_min, distance_km, bearing_deg, origin_speed_kmh,
	hour, weekday, is_weekend,
	historical_avg_speed_kmh, expected_speed_kmh, hour_factor, naive_eta_min`

func scanSegment(s rowScanner) (SegmentRow, error) {
	var row SegmentRow
	var startTs, endTs int64
	seg, f := &row.Segment, &row.Features
	err := s.Scan(
		&seg.ID, &seg.DeviceID, &seg.OriginLat, &seg.OriginLon, &seg.DestLat, &seg.DestLon, &startTs, &endTs,
		&seg.TravelTimeMin, &seg.DistanceKm, &seg.BearingDeg, &seg.OriginSpeedKmh,
		&seg.Hour, &seg.Weekday, &seg.IsWeekend,
		&f.HistoricalAvgSpeedKmh, &f.ExpectedSpeedKmh, &f.HourFactor, &f.NaiveETAMin,
	)
	if err != nil {
		return row, err
	}

	seg.StartTime = time.Unix(startTs, 0).UTC()
	seg.EndTime = time.Unix(endTs, 0).UTC()

	f.DistanceKm = seg.DistanceKm
	f.Bearing = seg.BearingDeg
	f.OriginSpeedKmh = seg.OriginSpeedKmh
	f.TimeContext = seg.TimeContext
	return row, nil
}

// List retrieves route segments with filtering and pagination
func (r *SegmentRepository) List(ctx context.Context, filter models.SegmentFilter) ([]SegmentRow, int64, error) {
	filter.Normalize()

	where := "WHERE 1=1"
	var args []interface{}
	if filter.DeviceID > 0 {
		where += " AND device_id = ?"
		args = append(args, filter.DeviceID)
	}
	if filter.StartTime > 0 {
		where += " AND start_ts >= ?"
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		where += " AND end_ts <= ?"
		args = append(args, filter.EndTime)
	}
	if filter.MinDistance > 0 {
		where += " AND distance_km >= ?"
		args = append(args, filter.MinDistance)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM route_segments "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count route segments: %w", err)
	}

	query := "SELECT " + segmentColumns + " FROM route_segments " + where + " ORDER BY device_id, start_ts LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query route segments: %w", err)
	}
	defer rows.Close()

	out := make([]SegmentRow, 0)
	for rows.Next() {
		row, err := scanSegment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan route segment: %w", err)
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// GetByID retrieves a single route segment. A missing id yields (nil, nil).
func (r *SegmentRepository) GetByID(ctx context.Context, id int64) (*SegmentRow, error) {
	row, err := scanSegment(r.db.QueryRowContext(ctx, "SELECT "+segmentColumns+" FROM route_segments WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route segment: %w", err)
	}
	return &row, nil
}
