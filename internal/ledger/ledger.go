package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

const (
	ReasonWeatherConflict = "Weather conflict detected"
	ReasonWeatherCleared  = "Weather conditions cleared"
)

// Ledger owns booking creation and every status change. Each operation commits the
// booking write together with the events describing it.
type Ledger struct {
	bookings  store.BookingStore
	directory store.Directory
	log       logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewLedger(bookings store.BookingStore, directory store.Directory, log logger.Logger, m *metrics.Metrics) *Ledger {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ledger{
		bookings:  bookings,
		directory: directory,
		log:       log,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a booking by id
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return l.bookings.GetBooking(ctx, id)
}

// CreateBooking validates and inserts a SCHEDULED booking, rejecting it when the
// student, instructor or aircraft is already booked in the interval.
func (l *Ledger) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := l.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	now := l.now()
	booking := &models.Booking{
		ID:                    uuid.New(),
		StudentID:             req.StudentID,
		InstructorID:          req.InstructorID,
		AircraftID:            req.AircraftID,
		DepartureLocationID:   req.DepartureLocationID,
		DestinationLocationID: req.DestinationLocationID,
		ScheduledTime:         req.ScheduledTime.UTC(),
		DurationMinutes:       req.DurationMinutes,
		Status:                models.BookingStatusScheduled,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err := l.bookings.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockResources(ctx, store.ResourceKeys(booking.StudentID, booking.InstructorID, booking.AircraftID)...); err != nil {
			return err
		}
		if err := l.checkOverlap(ctx, tx, booking, nil); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, models.NewEvent(booking.ID, createdPayload(booking), now))
	})
	if err != nil {
		return nil, err
	}

	l.metrics.BookingCreated()
	l.log.Info("booking created", "bookingId", booking.ID, "scheduledTime", booking.ScheduledTime)
	return booking, nil
}

// TransitionStatus moves a booking along the lifecycle graph
func (l *Ledger) TransitionStatus(ctx context.Context, id uuid.UUID, to models.BookingStatus, reason string) (*models.Booking, error) {
	var updated *models.Booking
	err := l.bookings.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if to == models.BookingStatusRescheduled {
			return fmt.Errorf("%w: %s must be rescheduled with a new time", ErrInvalidTransition, id)
		}
		updated, _, err = l.transition(ctx, tx, b, to, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// HoldForWeather places a SCHEDULED booking on WEATHER_HOLD and records the conflict
// in the same transaction.
func (l *Ledger) HoldForWeather(ctx context.Context, id uuid.UUID, conflict models.WeatherConflictDetectedPayload) (*models.Booking, models.DomainEvent, error) {
	var (
		updated *models.Booking
		event   models.DomainEvent
	)
	err := l.bookings.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != models.BookingStatusScheduled {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, b.Status)
		}

		var at time.Time
		updated, at, err = l.transition(ctx, tx, b, models.BookingStatusWeatherHold, ReasonWeatherConflict)
		if err != nil {
			return err
		}

		conflict.BookingID = b.ID
		conflict.ScheduledTime = b.ScheduledTime
		if conflict.LocationID == uuid.Nil {
			conflict.LocationID = b.DepartureLocationID
		}
		event = models.NewEvent(b.ID, conflict, at)
		return tx.AppendEvents(ctx, event)
	})
	if err != nil {
		return nil, models.DomainEvent{}, err
	}

	l.log.Info("booking placed on weather hold",
		"bookingId", id, "severity", conflict.Severity, "violations", conflict.ViolatedMinimums)
	return updated, event, nil
}

// Reschedule supersedes a booking with a new SCHEDULED one at newTime. The original
// becomes RESCHEDULED and stops counting against its resources.
func (l *Ledger) Reschedule(ctx context.Context, originalID uuid.UUID, newTime time.Time) (*models.RescheduleResult, error) {
	if newTime.IsZero() {
		return nil, fmt.Errorf("%w: new time is required", ErrInvalidBooking)
	}

	var result models.RescheduleResult
	err := l.bookings.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		orig, err := tx.GetBookingForUpdate(ctx, originalID)
		if err != nil {
			return err
		}
		if !CanReschedule(orig.Status) {
			return fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidTransition, orig.Status)
		}
		if err := tx.LockResources(ctx, store.ResourceKeys(orig.StudentID, orig.InstructorID, orig.AircraftID)...); err != nil {
			return err
		}

		now := l.now()
		oldStatus := orig.Status
		if err := tx.UpdateBookingStatus(ctx, orig.ID, models.BookingStatusRescheduled, now); err != nil {
			return err
		}
		orig.Status = models.BookingStatusRescheduled
		orig.UpdatedAt = now

		replacement := *orig
		replacement.ID = uuid.New()
		replacement.ScheduledTime = newTime.UTC()
		replacement.Status = models.BookingStatusScheduled
		replacement.OriginalBookingID = &orig.ID
		replacement.CreatedAt = now
		replacement.UpdatedAt = now

		if err := l.checkOverlap(ctx, tx, &replacement, &orig.ID); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, &replacement); err != nil {
			return err
		}

		err = tx.AppendEvents(ctx,
			models.NewEvent(orig.ID, models.BookingStatusChangedPayload{
				BookingID: orig.ID,
				OldStatus: oldStatus,
				NewStatus: models.BookingStatusRescheduled,
				Reason:    "Rescheduled to " + replacement.ScheduledTime.Format(time.RFC3339),
			}, now),
			models.NewEvent(replacement.ID, createdPayload(&replacement), now),
			models.NewEvent(orig.ID, models.BookingRescheduledPayload{
				OriginalBookingID: orig.ID,
				NewBookingID:      replacement.ID,
				OldTime:           orig.ScheduledTime,
				NewTime:           replacement.ScheduledTime,
			}, now),
		)
		if err != nil {
			return err
		}

		result = models.RescheduleResult{Old: orig, New: &replacement}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.metrics.Transition(string(models.BookingStatusRescheduled))
	l.log.Info("booking rescheduled", "originalId", originalID, "newId", result.New.ID, "newTime", result.New.ScheduledTime)
	return &result, nil
}

func (l *Ledger) transition(ctx context.Context, tx store.Tx, b *models.Booking, to models.BookingStatus, reason string) (*models.Booking, time.Time, error) {
	if !CanTransition(b.Status, to) {
		return nil, time.Time{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}

	now := l.now()
	if err := tx.UpdateBookingStatus(ctx, b.ID, to, now); err != nil {
		return nil, time.Time{}, err
	}
	event := models.NewEvent(b.ID, models.BookingStatusChangedPayload{
		BookingID: b.ID,
		OldStatus: b.Status,
		NewStatus: to,
		Reason:    reason,
	}, now)
	if err := tx.AppendEvents(ctx, event); err != nil {
		return nil, time.Time{}, err
	}

	l.metrics.Transition(string(to))
	updated := *b
	updated.Status = to
	updated.UpdatedAt = now
	return &updated, now, nil
}

func (l *Ledger) checkOverlap(ctx context.Context, tx store.Tx, b *models.Booking, exclude *uuid.UUID) error {
	overlapping, err := tx.FindOverlapping(ctx, store.OverlapQuery{
		StudentID:    b.StudentID,
		InstructorID: b.InstructorID,
		AircraftID:   b.AircraftID,
		Start:        b.ScheduledTime,
		End:          b.End(),
		ExcludeID:    exclude,
	})
	if err != nil {
		return err
	}
	if len(overlapping) == 0 {
		return nil
	}

	other := overlapping[0]
	conflict := &ResourceConflictError{ConflictingBookingID: other.ID}
	switch {
	case other.StudentID == b.StudentID:
		conflict.Axis = AxisStudent
	case other.InstructorID == b.InstructorID:
		conflict.Axis = AxisInstructor
	default:
		conflict.Axis = AxisAircraft
	}
	l.metrics.ResourceConflict(string(conflict.Axis))
	return conflict
}

func (l *Ledger) checkReferences(ctx context.Context, req models.CreateBookingRequest) error {
	if _, err := l.directory.GetStudent(ctx, req.StudentID); err != nil {
		return fmt.Errorf("student %s: %w", req.StudentID, err)
	}
	if _, err := l.directory.GetInstructor(ctx, req.InstructorID); err != nil {
		return fmt.Errorf("instructor %s: %w", req.InstructorID, err)
	}
	if _, err := l.directory.GetAircraft(ctx, req.AircraftID); err != nil {
		return fmt.Errorf("aircraft %s: %w", req.AircraftID, err)
	}
	if _, err := l.directory.GetLocation(ctx, req.DepartureLocationID); err != nil {
		return fmt.Errorf("departure location %s: %w", req.DepartureLocationID, err)
	}
	if req.DestinationLocationID != nil {
		if _, err := l.directory.GetLocation(ctx, *req.DestinationLocationID); err != nil {
			return fmt.Errorf("destination location %s: %w", *req.DestinationLocationID, err)
		}
	}
	return nil
}

func createdPayload(b *models.Booking) models.BookingCreatedPayload {
	return models.BookingCreatedPayload{
		BookingID:         b.ID,
		StudentID:         b.StudentID,
		InstructorID:      b.InstructorID,
		AircraftID:        b.AircraftID,
		ScheduledTime:     b.ScheduledTime,
		DurationMinutes:   b.DurationMinutes,
		Status:            b.Status,
		OriginalBookingID: b.OriginalBookingID,
	}
}
