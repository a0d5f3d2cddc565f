package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/regps-supervision-go/internal/models"
)

// AnomalyRepository persists points flagged by the outlier model
type AnomalyRepository struct {
	db *sql.DB
}

// NewAnomalyRepository creates a new anomaly repository
func NewAnomalyRepository(db *sql.DB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

// ReplaceAll swaps the anomaly_events table in one transaction
func (r *AnomalyRepository) ReplaceAll(ctx context.Context, events []models.AnomalyEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM anomaly_events"); err != nil {
		return fmt.Errorf("failed to clear anomaly events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anomaly_events (run_id, device_id, ts, latitude, longitude, speed, score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.RunID, e.DeviceID, e.Timestamp, e.Latitude, e.Longitude, e.Speed, e.Score); err != nil {
			return fmt.Errorf("failed to insert anomaly event for device %d: %w", e.DeviceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit anomaly events: %w", err)
	}
	return nil
}

// ListByDevice returns the flagged points of one device, most recent first
func (r *AnomalyRepository) ListByDevice(ctx context.Context, deviceID int64, limit int) ([]models.AnomalyEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, device_id, ts, latitude, longitude, speed, score
		FROM anomaly_events
		WHERE device_id = ?
		ORDER BY ts DESC
		LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomaly events: %w", err)
	}
	defer rows.Close()

	var events []models.AnomalyEvent
	for rows.Next() {
		var e models.AnomalyEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.DeviceID, &e.Timestamp, &e.Latitude, &e.Longitude, &e.Speed, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
