package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

var ErrNotFound = errors.New("not found")

// OverlapQuery selects active bookings sharing any of the given resources within [Start, End)
type OverlapQuery struct {
	StudentID    uuid.UUID
	InstructorID uuid.UUID
	AircraftID   uuid.UUID
	Start        time.Time
	End          time.Time
	ExcludeID    *uuid.UUID
}

// BookingFilter narrows booking listings. Zero fields match everything.
type BookingFilter struct {
	Statuses []models.BookingStatus
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Tx is the unit of work for the booking ledger. Everything done through a Tx
// becomes visible together on commit or not at all.
type Tx interface {
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// LockResources serialises concurrent transactions touching the same resources
	LockResources(ctx context.Context, keys ...string) error
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]models.Booking, error)
	InsertBooking(ctx context.Context, b *models.Booking) error
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus, at time.Time) error
	AppendEvents(ctx context.Context, events ...models.DomainEvent) error
}

type BookingStore interface {
	// InTx runs fn in a transaction, committing when fn returns nil
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
}

// Directory resolves reference data
type Directory interface {
	GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error)
	GetAircraft(ctx context.Context, id uuid.UUID) (*models.Aircraft, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
}

// WeatherCheckStore is the append-only weather check audit log
type WeatherCheckStore interface {
	SaveWeatherCheck(ctx context.Context, check *models.WeatherCheck) error
	LatestWeatherCheck(ctx context.Context, bookingID uuid.UUID) (*models.WeatherCheck, error)
	ListWeatherChecks(ctx context.Context, bookingID uuid.UUID, limit int) ([]models.WeatherCheck, error)
}

// EventStore reads the domain event outbox
type EventStore interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.DomainEvent, error)
	ListEvents(ctx context.Context, aggregateID uuid.UUID) ([]models.DomainEvent, error)
	LatestEvent(ctx context.Context, aggregateID uuid.UUID, eventType models.EventType) (*models.DomainEvent, error)
	ListUnpublished(ctx context.Context, limit int) ([]models.DomainEvent, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type OptionStore interface {
	// SaveRescheduleOptions stores the options together with the event announcing them
	SaveRescheduleOptions(ctx context.Context, options []models.RescheduleOption, event models.DomainEvent) error
	GetRescheduleOption(ctx context.Context, id uuid.UUID) (*models.RescheduleOption, error)
	ListRescheduleOptions(ctx context.Context, bookingID uuid.UUID) ([]models.RescheduleOption, error)
	// ResolveRescheduleOptions marks id selected and its pending siblings rejected
	ResolveRescheduleOptions(ctx context.Context, id uuid.UUID) error
}

// ResourceKeys returns the lock keys of a booking's resources in a stable order
func ResourceKeys(studentID, instructorID, aircraftID uuid.UUID) []string {
	return []string{
		"aircraft:" + aircraftID.String(),
		"instructor:" + instructorID.String(),
		"student:" + studentID.String(),
	}
}
