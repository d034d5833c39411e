package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking represents a scheduled flight lesson
type Booking struct {
	ID                    uuid.UUID     `json:"id"`
	StudentID             uuid.UUID     `json:"studentId"`
	InstructorID          uuid.UUID     `json:"instructorId"`
	AircraftID            uuid.UUID     `json:"aircraftId"`
	DepartureLocationID   uuid.UUID     `json:"departureLocationId"`
	DestinationLocationID *uuid.UUID    `json:"destinationLocationId,omitempty"`
	ScheduledTime         time.Time     `json:"scheduledTime"`
	DurationMinutes       int           `json:"durationMinutes"`
	Status                BookingStatus `json:"status"`
	OriginalBookingID     *uuid.UUID    `json:"originalBookingId,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

// Duration returns the booked lesson length
func (b *Booking) Duration() time.Duration {
	return time.Duration(b.DurationMinutes) * time.Minute
}

// End returns the exclusive end of the booked interval
func (b *Booking) End() time.Time {
	return b.ScheduledTime.Add(b.Duration())
}

// Overlaps reports whether the half-open intervals [start, end) intersect
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.ScheduledTime.Before(end) && start.Before(b.End())
}

type BookingStatus string

const (
	BookingStatusScheduled   BookingStatus = "SCHEDULED"
	BookingStatusWeatherHold BookingStatus = "WEATHER_HOLD"
	BookingStatusRescheduled BookingStatus = "RESCHEDULED"
	BookingStatusCanceled    BookingStatus = "CANCELED"
	BookingStatusCompleted   BookingStatus = "COMPLETED"
)

// ActiveStatuses are the statuses that occupy a student, instructor and aircraft
var ActiveStatuses = []BookingStatus{BookingStatusScheduled, BookingStatusWeatherHold}

// IsActive reports whether the status holds its resources
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusScheduled || s == BookingStatusWeatherHold
}

// Valid reports whether s is a known status
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusScheduled, BookingStatusWeatherHold, BookingStatusRescheduled,
		BookingStatusCanceled, BookingStatusCompleted:
		return true
	}
	return false
}

// MaxBookingDurationMinutes caps a single lesson at eight hours
const MaxBookingDurationMinutes = 480

// CreateBookingRequest represents a request to book a lesson
type CreateBookingRequest struct {
	StudentID             uuid.UUID  `json:"studentId" validate:"required"`
	InstructorID          uuid.UUID  `json:"instructorId" validate:"required"`
	AircraftID            uuid.UUID  `json:"aircraftId" validate:"required"`
	DepartureLocationID   uuid.UUID  `json:"departureLocationId" validate:"required"`
	DestinationLocationID *uuid.UUID `json:"destinationLocationId,omitempty" validate:"omitempty"`
	ScheduledTime         time.Time  `json:"scheduledTime" validate:"required"`
	DurationMinutes       int        `json:"durationMinutes" validate:"required,min=1,max=480"`
}

// TransitionRequest represents a manual status change
type TransitionRequest struct {
	Status BookingStatus `json:"status"`
	Reason string        `json:"reason"`
}

// RescheduleRequest moves a booking to a new start time
type RescheduleRequest struct {
	NewScheduledTime time.Time `json:"newScheduledTime"`
}

// RescheduleResult pairs the superseded booking with its replacement
type RescheduleResult struct {
	Old *Booking `json:"old"`
	New *Booking `json:"new"`
}

// BookingDetail is a booking with its most recent weather checks
type BookingDetail struct {
	Booking       *Booking       `json:"booking"`
	WeatherChecks []WeatherCheck `json:"weatherChecks"`
}

// DashboardStats summarises bookings for the operations dashboard
type DashboardStats struct {
	TotalBookings   int                   `json:"totalBookings"`
	ByStatus        map[BookingStatus]int `json:"byStatus"`
	WeatherHolds    int                   `json:"weatherHolds"`
	TodayBookings   int                   `json:"todayBookings"`
	UpcomingFlights []Booking             `json:"upcomingFlights"`
}
