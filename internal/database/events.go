package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// --- Event Outbox Operations ---

func insertEvents(ctx context.Context, tx pgx.Tx, events []models.DomainEvent) error {
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", e.Type(), err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO domain_events (id, aggregate_id, aggregate_type, event_type, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.ID, e.AggregateID, e.AggregateType, string(e.Type()), payload, e.OccurredAt)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	return nil
}

const eventColumns = `id, aggregate_id, aggregate_type, event_type, payload, occurred_at, published_at`

func scanEvent(row pgx.Row) (*models.DomainEvent, error) {
	var (
		e         models.DomainEvent
		eventType string
		payload   []byte
	)
	if err := row.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &eventType, &payload, &e.OccurredAt, &e.PublishedAt); err != nil {
		return nil, err
	}
	p, err := models.DecodePayload(models.EventType(eventType), payload)
	if err != nil {
		return nil, err
	}
	e.Payload = p
	e.OccurredAt = e.OccurredAt.UTC()
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]models.DomainEvent, error) {
	defer rows.Close()

	events := make([]models.DomainEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

// GetEvent returns an event by ID
func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*models.DomainEvent, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM domain_events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListEvents returns an aggregate's events in append order
func (r *Repository) ListEvents(ctx context.Context, aggregateID uuid.UUID) ([]models.DomainEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM domain_events WHERE aggregate_id = $1 ORDER BY seq ASC
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return collectEvents(rows)
}

// LatestEvent returns the most recent event of a type for an aggregate
func (r *Repository) LatestEvent(ctx context.Context, aggregateID uuid.UUID, eventType models.EventType) (*models.DomainEvent, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM domain_events
		WHERE aggregate_id = $1 AND event_type = $2
		ORDER BY seq DESC LIMIT 1
	`, aggregateID, string(eventType)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest event: %w", err)
	}
	return e, nil
}

// ListUnpublished returns the oldest events the relay has not delivered yet
func (r *Repository) ListUnpublished(ctx context.Context, limit int) ([]models.DomainEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM domain_events
		WHERE published_at IS NULL
		ORDER BY seq ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	return collectEvents(rows)
}

// MarkPublished stamps delivered events
func (r *Repository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE domain_events SET published_at = $1 WHERE id = ANY($2) AND published_at IS NULL
	`, at, ids)
	if err != nil {
		return fmt.Errorf("failed to mark events published: %w", err)
	}
	return nil
}
