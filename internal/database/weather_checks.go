package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// --- Weather Check Operations ---
// Used when no MongoDB audit store is configured.

// SaveWeatherCheck appends a weather check
func (r *Repository) SaveWeatherCheck(ctx context.Context, c *models.WeatherCheck) error {
	snapshot, err := json.Marshal(c.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	violated := c.ViolatedMinimums
	if violated == nil {
		violated = []string{}
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO weather_checks (id, booking_id, location_id, check_time, forecast_time,
			training_level, snapshot, is_safe, violated_minimums, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.BookingID, c.LocationID, c.CheckTime, c.ForecastTime,
		c.TrainingLevel, snapshot, c.IsSafe, violated, c.Severity)
	if err != nil {
		return fmt.Errorf("failed to insert weather check: %w", err)
	}
	return nil
}

// LatestWeatherCheck returns the newest check for a booking
func (r *Repository) LatestWeatherCheck(ctx context.Context, bookingID uuid.UUID) (*models.WeatherCheck, error) {
	checks, err := r.ListWeatherChecks(ctx, bookingID, 1)
	if err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return nil, store.ErrNotFound
	}
	return &checks[0], nil
}

// ListWeatherChecks returns a booking's checks newest first
func (r *Repository) ListWeatherChecks(ctx context.Context, bookingID uuid.UUID, limit int) ([]models.WeatherCheck, error) {
	query := `
		SELECT id, booking_id, location_id, check_time, forecast_time, training_level,
		       snapshot, is_safe, violated_minimums, severity
		FROM weather_checks
		WHERE booking_id = $1
		ORDER BY check_time DESC`
	args := []any{bookingID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query weather checks: %w", err)
	}
	defer rows.Close()

	checks := make([]models.WeatherCheck, 0)
	for rows.Next() {
		var (
			c        models.WeatherCheck
			snapshot []byte
		)
		err := rows.Scan(&c.ID, &c.BookingID, &c.LocationID, &c.CheckTime, &c.ForecastTime,
			&c.TrainingLevel, &snapshot, &c.IsSafe, &c.ViolatedMinimums, &c.Severity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weather check: %w", err)
		}
		if err := json.Unmarshal(snapshot, &c.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		c.CheckTime = c.CheckTime.UTC()
		c.ForecastTime = c.ForecastTime.UTC()
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
