package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
)

// LocationRepository reads raw location samples
type LocationRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewLocationRepository creates a new location repository. Timestamps are
// returned in loc.
func NewLocationRepository(db *sql.DB, loc *time.Location) *LocationRepository {
	if loc == nil {
		loc = time.Local
	}
	return &LocationRepository{db: db, loc: loc}
}

// Since returns every sample at or after since, ordered by device and time.
// Any failure while reading is reported as UpstreamUnavailable together with
// the number of records read so far; no partial result is returned.
func (r *LocationRepository) Since(ctx context.Context, since time.Time) ([]models.LocationSample, error) {
	query := `
		SELECT device_id, latitude, longitude, speed, heading, ts
		FROM locations
		WHERE ts >= ?
		ORDER BY device_id, ts
	`

	rows, err := r.db.QueryContext(ctx, query, since.Unix())
	if err != nil {
		return nil, &errorutil.UpstreamUnavailableError{Source: "locations", Err: err}
	}
	defer rows.Close()

	var samples []models.LocationSample
	for rows.Next() {
		var s models.LocationSample
		var speed, heading sql.NullFloat64
		var ts int64
		if err := rows.Scan(&s.DeviceID, &s.Latitude, &s.Longitude, &speed, &heading, &ts); err != nil {
			return nil, &errorutil.UpstreamUnavailableError{Source: "locations", Records: len(samples), Err: err}
		}
		// missing speed counts as 0
		if speed.Valid {
			s.Speed = speed.Float64
		}
		if heading.Valid {
			h := heading.Float64
			s.Heading = &h
		}
		s.Timestamp = time.Unix(ts, 0).In(r.loc)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &errorutil.UpstreamUnavailableError{Source: "locations", Records: len(samples), Err: err}
	}

	return samples, nil
}

// Insert stores samples in one transaction
func (r *LocationRepository) Insert(ctx context.Context, samples []models.LocationSample) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO locations (device_id, latitude, longitude, speed, heading, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		var heading interface{}
		if s.Heading != nil {
			heading = *s.Heading
		}
		if _, err := stmt.ExecContext(ctx, s.DeviceID, s.Latitude, s.Longitude, s.Speed, heading, s.Timestamp.Unix()); err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit locations: %w", err)
	}
	return nil
}

// AverageSpeed returns the mean reported speed of a device since a time and
// the number of samples it was computed from. Missing speeds count as 0.
func (r *LocationRepository) AverageSpeed(ctx context.Context, deviceID int64, since time.Time) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(COALESCE(speed, 0)), 0), COUNT(*)
		FROM locations
		WHERE device_id = ? AND ts >= ?
	`

	var avg float64
	var n int
	if err := r.db.QueryRowContext(ctx, query, deviceID, since.Unix()).Scan(&avg, &n); err != nil {
		return 0, 0, fmt.Errorf("failed to compute average speed: %w", err)
	}
	return avg, n, nil
}

// Ping checks that the database answers
func (r *LocationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
