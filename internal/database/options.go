package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// --- Reschedule Option Operations ---

const optionColumns = `
	id, conflict_event_id, original_booking_id, proposed_time, weather_forecast,
	score, reasoning, status, source, created_at`

func scanOption(row pgx.Row) (*models.RescheduleOption, error) {
	var (
		o        models.RescheduleOption
		forecast []byte
	)
	err := row.Scan(&o.ID, &o.ConflictEventID, &o.OriginalBookingID, &o.ProposedTime, &forecast,
		&o.Score, &o.Reasoning, &o.Status, &o.Source, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(forecast, &o.WeatherForecast); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}
	o.ProposedTime = o.ProposedTime.UTC()
	return &o, nil
}

// SaveRescheduleOptions inserts the options and their announcement event atomically
func (r *Repository) SaveRescheduleOptions(ctx context.Context, options []models.RescheduleOption, event models.DomainEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, o := range options {
		forecast, err := json.Marshal(o.WeatherForecast)
		if err != nil {
			return fmt.Errorf("failed to marshal forecast: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO reschedule_options (`+optionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, o.ID, o.ConflictEventID, o.OriginalBookingID, o.ProposedTime, forecast,
			o.Score, o.Reasoning, o.Status, o.Source, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert reschedule option: %w", err)
		}
	}

	if err := insertEvents(ctx, tx, []models.DomainEvent{event}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetRescheduleOption returns an option by ID
func (r *Repository) GetRescheduleOption(ctx context.Context, id uuid.UUID) (*models.RescheduleOption, error) {
	o, err := scanOption(r.pool.QueryRow(ctx, `SELECT `+optionColumns+` FROM reschedule_options WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reschedule option: %w", err)
	}
	return o, nil
}

// ListRescheduleOptions returns a booking's options, newest generation first
func (r *Repository) ListRescheduleOptions(ctx context.Context, bookingID uuid.UUID) ([]models.RescheduleOption, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+optionColumns+` FROM reschedule_options
		WHERE original_booking_id = $1
		ORDER BY created_at DESC, score DESC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reschedule options: %w", err)
	}
	defer rows.Close()

	options := make([]models.RescheduleOption, 0)
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reschedule option: %w", err)
		}
		options = append(options, *o)
	}
	return options, rows.Err()
}

// ResolveRescheduleOptions selects one option and rejects its pending siblings
func (r *Repository) ResolveRescheduleOptions(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE reschedule_options o
		SET status = CASE WHEN o.id = $1 THEN 'selected' ELSE 'rejected' END
		FROM reschedule_options sel
		WHERE sel.id = $1
		  AND o.conflict_event_id = sel.conflict_event_id
		  AND (o.id = $1 OR o.status = 'pending')
	`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve reschedule options: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
