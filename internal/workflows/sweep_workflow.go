package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

const (
	// DefaultHorizonHours is how far ahead a sweep looks
	DefaultHorizonHours = 48
	// DefaultConcurrency bounds the CheckBooking activities in flight
	DefaultConcurrency = 4
	// CheckTimeout bounds one booking's fetch, evaluate and transition
	CheckTimeout = 30 * time.Second
)

// WeatherSweepWorkflow checks every due booking once. A failing booking is
// counted and skipped; only a failure to list bookings fails the run.
func WeatherSweepWorkflow(ctx workflow.Context, input models.SweepWorkflowInput) (*models.SweepResult, error) {
	logger := workflow.GetLogger(ctx)

	if input.HorizonHours <= 0 {
		input.HorizonHours = DefaultHorizonHours
	}
	if input.Concurrency <= 0 {
		input.Concurrency = DefaultConcurrency
	}

	state := models.SweepWorkflowState{
		Phase:       models.SweepPhaseListing,
		LastUpdated: workflow.Now(ctx),
	}
	err := workflow.SetQueryHandler(ctx, models.QueryGetState, func() (models.SweepWorkflowState, error) {
		return state, nil
	})
	if err != nil {
		return nil, err
	}

	result := &models.SweepResult{StartedAt: workflow.Now(ctx)}
	logger.Info("Weather sweep started", "horizonHours", input.HorizonHours, "concurrency", input.Concurrency)

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	// A retried check could double-count, so each booking gets a single attempt
	checkCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: CheckTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var due models.ListDueResult
	if err := workflow.ExecuteActivity(listCtx, models.ActivityListDue, input).Get(ctx, &due); err != nil {
		logger.Error("Failed to list due bookings", "error", err)
		return nil, err
	}

	state.Phase = models.SweepPhaseChecking
	state.Total = len(due.Bookings)
	state.LastUpdated = workflow.Now(ctx)

	type pending struct {
		bookingID string
		future    workflow.Future
	}
	inFlight := make([]pending, 0, input.Concurrency)

	collect := func(p pending) {
		var outcome models.CheckOutcome
		if err := p.future.Get(ctx, &outcome); err != nil {
			result.Errors++
			logger.Warn("Booking check failed", "bookingId", p.bookingID, "error", err)
		} else {
			result.Add(outcome)
		}
		state.Processed++
		state.Checked = result.Checked
		state.Conflicts = result.Conflicts
		state.Errors = result.Errors
		state.Cleared = result.Cleared
		state.LastUpdated = workflow.Now(ctx)
	}

	for _, b := range due.Bookings {
		if len(inFlight) == input.Concurrency {
			collect(inFlight[0])
			inFlight = inFlight[1:]
		}
		inFlight = append(inFlight, pending{
			bookingID: b.ID.String(),
			future:    workflow.ExecuteActivity(checkCtx, models.ActivityCheck, b),
		})
	}
	for _, p := range inFlight {
		collect(p)
	}

	result.Timestamp = workflow.Now(ctx)
	state.Phase = models.SweepPhaseDone
	state.LastUpdated = result.Timestamp

	logger.Info("Weather sweep complete",
		"checked", result.Checked, "conflicts", result.Conflicts,
		"errors", result.Errors, "cleared", result.Cleared)
	return result, nil
}
