package ledger

import "github.com/cx-tal-miterani/flight-training-scheduler/shared/models"

// transitions lists the edges TransitionStatus accepts. RESCHEDULED is reached only
// through Reschedule.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusScheduled: {
		models.BookingStatusWeatherHold,
		models.BookingStatusCanceled,
		models.BookingStatusCompleted,
	},
	models.BookingStatusWeatherHold: {
		models.BookingStatusScheduled,
		models.BookingStatusRescheduled,
		models.BookingStatusCanceled,
	},
}

// CanTransition reports whether from -> to is an edge of the booking lifecycle
func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanReschedule reports whether a booking in status s may be superseded by a new one.
// Only held bookings can be; a SCHEDULED booking has to be held or canceled first.
func CanReschedule(s models.BookingStatus) bool {
	return CanTransition(s, models.BookingStatusRescheduled)
}

// IsTerminal reports whether no further transitions exist from s
func IsTerminal(s models.BookingStatus) bool {
	return len(transitions[s]) == 0
}
