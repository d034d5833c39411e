package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Sweeper is the orchestrator surface the activities drive
type Sweeper interface {
	ListDueWithin(ctx context.Context, horizon time.Duration, recheckHolds bool) ([]models.Booking, error)
	CheckBooking(ctx context.Context, b models.Booking) (models.CheckOutcome, error)
}

// SweepActivities exposes the weather sweep steps to Temporal
type SweepActivities struct {
	sweeper Sweeper
	metrics *metrics.Metrics
}

func NewSweepActivities(sweeper Sweeper, m *metrics.Metrics) *SweepActivities {
	return &SweepActivities{sweeper: sweeper, metrics: m}
}

// ListDueBookings activity - selects the bookings a sweep should check
func (a *SweepActivities) ListDueBookings(ctx context.Context, input models.SweepWorkflowInput) (*models.ListDueResult, error) {
	logger := activity.GetLogger(ctx)

	horizon := time.Duration(input.HorizonHours) * time.Hour
	bookings, err := a.sweeper.ListDueWithin(ctx, horizon, input.RecheckHolds)
	if err != nil {
		a.metrics.Error("sweep_list")
		return nil, err
	}

	logger.Info("Listed due bookings", "count", len(bookings), "horizonHours", input.HorizonHours)
	return &models.ListDueResult{Bookings: bookings}, nil
}

// CheckBooking activity - evaluates one booking and applies the resulting transition
func (a *SweepActivities) CheckBooking(ctx context.Context, booking models.Booking) (*models.CheckOutcome, error) {
	logger := activity.GetLogger(ctx)

	outcome, err := a.sweeper.CheckBooking(ctx, booking)
	if err != nil {
		a.metrics.SweepOutcome("error")
		logger.Error("Weather check failed", "bookingId", booking.ID.String(), "error", err)
		return nil, err
	}

	switch {
	case outcome.Conflict:
		a.metrics.SweepOutcome("conflict")
		logger.Info("Booking placed on weather hold", "bookingId", outcome.BookingID, "severity", string(outcome.Severity))
	case outcome.Cleared:
		a.metrics.SweepOutcome("cleared")
		logger.Info("Weather hold cleared", "bookingId", outcome.BookingID)
	default:
		a.metrics.SweepOutcome("ok")
	}
	return &outcome, nil
}
