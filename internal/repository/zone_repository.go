package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
)

// ZoneRepository handles zones, zone visit history and alerts
type ZoneRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewZoneRepository creates a new zone repository
func NewZoneRepository(db *sql.DB, loc *time.Location) *ZoneRepository {
	if loc == nil {
		loc = time.Local
	}
	return &ZoneRepository{db: db, loc: loc}
}

// ListZones returns every zone
func (r *ZoneRepository) ListZones(ctx context.Context) ([]models.Zone, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, zone_type, latitude, longitude, radius_km
		FROM zones
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Type, &z.Latitude, &z.Longitude, &z.RadiusKm); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// CreateZone inserts a zone and sets its ID
func (r *ZoneRepository) CreateZone(ctx context.Context, z *models.Zone) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO zones (name, zone_type, latitude, longitude, radius_km)
		VALUES (?, ?, ?, ?, ?)
	`, z.Name, z.Type, z.Latitude, z.Longitude, z.RadiusKm)
	if err != nil {
		return fmt.Errorf("failed to create zone: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	z.ID = id
	return nil
}

// RecordVisit stores a zone visit
func (r *ZoneRepository) RecordVisit(ctx context.Context, v models.ZoneVisit) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO zone_visits (device_id, zone_id, ts) VALUES (?, ?, ?)
	`, v.DeviceID, v.ZoneID, v.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("failed to record zone visit: %w", err)
	}
	return nil
}

// RecordAlert stores an alert
func (r *ZoneRepository) RecordAlert(ctx context.Context, a models.Alert) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (device_id, kind, priority, ts) VALUES (?, ?, ?, ?)
	`, a.DeviceID, a.Kind, a.Priority, a.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}
	return nil
}

// VisitsSince returns zone visits at or after since with the zone type joined in
func (r *ZoneRepository) VisitsSince(ctx context.Context, since time.Time) ([]models.ZoneVisit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.device_id, v.zone_id, z.zone_type, v.ts
		FROM zone_visits v
		JOIN zones z ON z.id = v.zone_id
		WHERE v.ts >= ?
		ORDER BY v.device_id, v.ts
	`, since.Unix())
	if err != nil {
		return nil, &errorutil.UpstreamUnavailableError{Source: "zone_visits", Err: err}
	}
	defer rows.Close()

	var visits []models.ZoneVisit
	for rows.Next() {
		var v models.ZoneVisit
		var ts int64
		if err := rows.Scan(&v.DeviceID, &v.ZoneID, &v.ZoneType, &ts); err != nil {
			return nil, &errorutil.UpstreamUnavailableError{Source: "zone_visits", Records: len(visits), Err: err}
		}
		v.Timestamp = time.Unix(ts, 0).In(r.loc)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &errorutil.UpstreamUnavailableError{Source: "zone_visits", Records: len(visits), Err: err}
	}
	return visits, nil
}

// AlertsSince returns alerts raised at or after since
func (r *ZoneRepository) AlertsSince(ctx context.Context, since time.Time) ([]models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, kind, priority, ts
		FROM alerts
		WHERE ts >= ?
		ORDER BY device_id, ts
	`, since.Unix())
	if err != nil {
		return nil, &errorutil.UpstreamUnavailableError{Source: "alerts", Err: err}
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var ts int64
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.Kind, &a.Priority, &ts); err != nil {
			return nil, &errorutil.UpstreamUnavailableError{Source: "alerts", Records: len(alerts), Err: err}
		}
		a.Timestamp = time.Unix(ts, 0).In(r.loc)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &errorutil.UpstreamUnavailableError{Source: "alerts", Records: len(alerts), Err: err}
	}
	return alerts, nil
}
