package sweep

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/ledger"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

const (
	DefaultHorizon     = 48 * time.Hour
	DefaultConcurrency = 4
)

// SnapshotProvider returns the current weather at a location
type SnapshotProvider interface {
	Current(ctx context.Context, location models.Location) (models.WeatherSnapshot, error)
}

type Evaluator interface {
	Evaluate(snapshot models.WeatherSnapshot, level models.TrainingLevel) models.SafetyResult
}

// BookingLedger is the part of the ledger the sweep drives
type BookingLedger interface {
	HoldForWeather(ctx context.Context, id uuid.UUID, conflict models.WeatherConflictDetectedPayload) (*models.Booking, models.DomainEvent, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to models.BookingStatus, reason string) (*models.Booking, error)
}

type Config struct {
	Horizon      time.Duration
	Concurrency  int
	RecheckHolds bool
}

type Deps struct {
	Bookings  store.BookingStore
	Directory store.Directory
	Checks    store.WeatherCheckStore
	Provider  SnapshotProvider
	Evaluator Evaluator
	Ledger    BookingLedger
	Logger    logger.Logger
	Metrics   *metrics.Metrics
}

// Orchestrator finds upcoming bookings, checks their weather and places unsafe ones on hold
type Orchestrator struct {
	deps Deps
	cfg  Config
	log  logger.Logger
	now  func() time.Time
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		deps: deps,
		cfg:  cfg,
		log:  log.With("component", "sweep"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one complete sweep. Per-booking failures are counted and skipped;
// only a failure to list due bookings aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (models.SweepResult, error) {
	started := o.now()

	due, err := o.ListDue(ctx)
	if err != nil {
		o.deps.Metrics.Error("sweep_list")
		return models.SweepResult{}, err
	}

	var checked, conflicts, cleared, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for _, b := range due {
		g.Go(func() error {
			outcome, err := o.CheckBooking(ctx, b)
			if err != nil {
				failed.Add(1)
				o.deps.Metrics.SweepOutcome("error")
				o.log.Error("weather check failed", "bookingId", b.ID, "error", err)
				return nil
			}
			checked.Add(1)
			switch {
			case outcome.Conflict:
				conflicts.Add(1)
				o.deps.Metrics.SweepOutcome("conflict")
			case outcome.Cleared:
				cleared.Add(1)
				o.deps.Metrics.SweepOutcome("cleared")
			default:
				o.deps.Metrics.SweepOutcome("ok")
			}
			return nil
		})
	}
	_ = g.Wait()

	result := models.SweepResult{
		Checked:   int(checked.Load()),
		Conflicts: int(conflicts.Load()),
		Errors:    int(failed.Load()),
		Cleared:   int(cleared.Load()),
		StartedAt: started,
		Timestamp: o.now(),
	}
	o.deps.Metrics.ObserveSweep(started)
	o.log.Info("weather sweep complete",
		"checked", result.Checked, "conflicts", result.Conflicts,
		"errors", result.Errors, "cleared", result.Cleared)
	return result, nil
}

// ListDue returns the bookings within the sweep horizon that need a weather check
func (o *Orchestrator) ListDue(ctx context.Context) ([]models.Booking, error) {
	return o.ListDueWithin(ctx, o.cfg.Horizon, o.cfg.RecheckHolds)
}

// ListDueWithin is ListDue with an explicit horizon and hold re-check setting
func (o *Orchestrator) ListDueWithin(ctx context.Context, horizon time.Duration, recheckHolds bool) ([]models.Booking, error) {
	if horizon <= 0 {
		horizon = o.cfg.Horizon
	}
	statuses := []models.BookingStatus{models.BookingStatusScheduled}
	if recheckHolds {
		statuses = append(statuses, models.BookingStatusWeatherHold)
	}
	from := o.now()
	to := from.Add(horizon)

	bookings, err := o.deps.Bookings.ListBookings(ctx, store.BookingFilter{
		Statuses: statuses,
		From:     &from,
		To:       &to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list due bookings: %w", err)
	}
	return bookings, nil
}

// CheckBooking evaluates one booking, records the weather check, and applies the
// resulting status change. The check is stored before any transition.
func (o *Orchestrator) CheckBooking(ctx context.Context, b models.Booking) (models.CheckOutcome, error) {
	outcome := models.CheckOutcome{BookingID: b.ID.String()}

	student, err := o.deps.Directory.GetStudent(ctx, b.StudentID)
	if err != nil {
		return outcome, fmt.Errorf("failed to load student: %w", err)
	}
	location, err := o.deps.Directory.GetLocation(ctx, b.DepartureLocationID)
	if err != nil {
		return outcome, fmt.Errorf("failed to load departure location: %w", err)
	}

	snapshot, err := o.deps.Provider.Current(ctx, *location)
	if err != nil {
		return outcome, err
	}
	result := o.deps.Evaluator.Evaluate(snapshot, student.TrainingLevel)

	check := &models.WeatherCheck{
		ID:               uuid.New(),
		BookingID:        b.ID,
		LocationID:       location.ID,
		CheckTime:        o.now(),
		ForecastTime:     b.ScheduledTime,
		TrainingLevel:    student.TrainingLevel,
		Snapshot:         snapshot,
		IsSafe:           result.IsSafe,
		ViolatedMinimums: result.ViolatedMinimums,
		Severity:         result.Severity,
	}
	if err := o.deps.Checks.SaveWeatherCheck(ctx, check); err != nil {
		return outcome, fmt.Errorf("failed to save weather check: %w", err)
	}

	outcome.IsSafe = result.IsSafe
	outcome.Severity = result.Severity

	switch {
	case !result.IsSafe && b.Status == models.BookingStatusScheduled:
		_, event, err := o.deps.Ledger.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{
			LocationID:       location.ID,
			TrainingLevel:    student.TrainingLevel,
			Snapshot:         snapshot,
			ViolatedMinimums: result.ViolatedMinimums,
			Severity:         result.Severity,
		})
		if err != nil {
			return outcome, fmt.Errorf("failed to hold booking: %w", err)
		}
		outcome.Conflict = true
		outcome.ConflictEvent = event.ID.String()

	case result.IsSafe && b.Status == models.BookingStatusWeatherHold:
		if _, err := o.deps.Ledger.TransitionStatus(ctx, b.ID, models.BookingStatusScheduled, ledger.ReasonWeatherCleared); err != nil {
			return outcome, fmt.Errorf("failed to clear weather hold: %w", err)
		}
		outcome.Cleared = true
	}

	return outcome, nil
}
