package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Repository is the Postgres implementation of the booking, event, option and
// weather check stores
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookingColumns = `
	id, student_id, instructor_id, aircraft_id, departure_location_id, destination_location_id,
	scheduled_time, duration_minutes, status, original_booking_id, created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.StudentID, &b.InstructorID, &b.AircraftID, &b.DepartureLocationID,
		&b.DestinationLocationID, &b.ScheduledTime, &b.DurationMinutes, &b.Status,
		&b.OriginalBookingID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ScheduledTime = b.ScheduledTime.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}
	return bookings, nil
}

// --- Booking Operations ---

// InTx runs fn inside a database transaction
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBooking returns a booking by ID
func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings matching the filter ordered by scheduled time
func (r *Repository) ListBookings(ctx context.Context, filter store.BookingFilter) ([]models.Booking, error) {
	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	return collectBookings(rows)
}

func buildListQuery(filter store.BookingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("scheduled_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("scheduled_time <= $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_time ASC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return b, nil
}

// LockResources takes transaction-scoped advisory locks in sorted order so that
// concurrent writers cannot deadlock
func (t *pgTx) LockResources(ctx context.Context, keys ...string) error {
	for _, key := range sortedUnique(keys) {
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("failed to lock %s: %w", key, err)
		}
	}
	return nil
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t *pgTx) FindOverlapping(ctx context.Context, q store.OverlapQuery) ([]models.Booking, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status IN ('SCHEDULED', 'WEATHER_HOLD')
		  AND (student_id = $1 OR instructor_id = $2 OR aircraft_id = $3)
		  AND scheduled_time < $5
		  AND scheduled_time + make_interval(mins => duration_minutes) > $4
		  AND ($6::uuid IS NULL OR id <> $6)
		ORDER BY scheduled_time ASC
	`, q.StudentID, q.InstructorID, q.AircraftID, q.Start, q.End, q.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	return collectBookings(rows)
}

func (t *pgTx) InsertBooking(ctx context.Context, b *models.Booking) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID, b.StudentID, b.InstructorID, b.AircraftID, b.DepartureLocationID, b.DestinationLocationID,
		b.ScheduledTime, b.DurationMinutes, b.Status, b.OriginalBookingID, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus, at time.Time) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3
	`, status, at, id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendEvents(ctx context.Context, events ...models.DomainEvent) error {
	return insertEvents(ctx, t.tx, events)
}
