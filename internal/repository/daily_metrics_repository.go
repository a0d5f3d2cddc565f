package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/regps-supervision-go/internal/models"
)

// DailyMetricsRepository persists daily behavior aggregates
type DailyMetricsRepository struct {
	db *sql.DB
}

// NewDailyMetricsRepository creates a new daily metrics repository
func NewDailyMetricsRepository(db *sql.DB) *DailyMetricsRepository {
	return &DailyMetricsRepository{db: db}
}

const dailyMetricsColumns = `device_id, date, mean_speed, max_speed, speed_std,
	violation_count, violation_rate, moving_rate, total_distance_km, brusque_changes,
	restricted_zone_count, checkpoint_count, alert_count, critical_alert_count,
	sample_count, score, category, predicted_category`

// ReplaceAll swaps the whole table for metrics in one transaction
func (r *DailyMetricsRepository) ReplaceAll(ctx context.Context, metrics []models.DailyMetrics) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM daily_metrics"); err != nil {
		return fmt.Errorf("failed to clear daily metrics: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_metrics (`+dailyMetricsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		_, err := stmt.ExecContext(ctx,
			m.DeviceID, m.Date, m.MeanSpeed, m.MaxSpeed, m.SpeedStd,
			m.ViolationCount, m.ViolationRate, m.MovingRate, m.TotalDistanceKm, m.BrusqueChanges,
			m.RestrictedZoneCount, m.CheckpointCount, m.AlertCount, m.CriticalAlertCount,
			m.SampleCount, m.Score, m.Category, m.PredictedCategory,
		)
		if err != nil {
			return fmt.Errorf("failed to insert daily metrics for device %d on %s: %w", m.DeviceID, m.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit daily metrics: %w", err)
	}
	return nil
}

// DailyMetricsFilter narrows a List query; zero values match everything
type DailyMetricsFilter struct {
	DeviceID int64  `form:"device_id"`
	From     string `form:"from"` // YYYY-MM-DD, inclusive
	To       string `form:"to"`   // YYYY-MM-DD, inclusive
	Limit    int    `form:"limit"`
}

// List returns persisted daily metrics ordered by device and date
func (r *DailyMetricsRepository) List(ctx context.Context, filter DailyMetricsFilter) ([]models.DailyMetrics, error) {
	query := `SELECT ` + dailyMetricsColumns + ` FROM daily_metrics`

	var conditions []string
	var args []interface{}
	if filter.DeviceID != 0 {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.From != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.To)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY device_id, date"

	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 1000
	}
	query += " LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	defer rows.Close()

	var out []models.DailyMetrics
	for rows.Next() {
		var m models.DailyMetrics
		err := rows.Scan(
			&m.DeviceID, &m.Date, &m.MeanSpeed, &m.MaxSpeed, &m.SpeedStd,
			&m.ViolationCount, &m.ViolationRate, &m.MovingRate, &m.TotalDistanceKm, &m.BrusqueChanges,
			&m.RestrictedZoneCount, &m.CheckpointCount, &m.AlertCount, &m.CriticalAlertCount,
			&m.SampleCount, &m.Score, &m.Category, &m.PredictedCategory,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
