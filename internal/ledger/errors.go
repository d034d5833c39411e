package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrResourceConflict  = errors.New("resource conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidBooking    = errors.New("invalid booking")
)

// Axis names the resource two bookings compete for
type Axis string

const (
	AxisStudent    Axis = "student"
	AxisInstructor Axis = "instructor"
	AxisAircraft   Axis = "aircraft"
)

// ResourceConflictError reports the first conflicting booking found
type ResourceConflictError struct {
	Axis                 Axis
	ConflictingBookingID uuid.UUID
}

func (e *ResourceConflictError) Error() string {
	return fmt.Sprintf("%s is already booked by %s in that interval", e.Axis, e.ConflictingBookingID)
}

func (e *ResourceConflictError) Is(target error) bool {
	return target == ErrResourceConflict
}
