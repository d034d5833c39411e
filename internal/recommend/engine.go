package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/weather"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

var ErrValidation = errors.New("validation failed")

const (
	CandidatesRequested = 5
	OptionsReturned     = 3
	DefaultTimeout      = 30 * time.Second
)

// Generator proposes candidate times for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) ([]Candidate, error)
}

// Forecaster supplies the expected weather at a proposed time
type Forecaster interface {
	Forecast(ctx context.Context, location models.Location, at time.Time) (models.WeatherSnapshot, error)
}

// AvailabilitySource lists an instructor's free windows
type AvailabilitySource interface {
	FreeWindows(ctx context.Context, instructor models.Instructor, from, to time.Time) ([]models.TimeWindow, error)
}

// Deps wires the engine. Generator, Forecaster and Availability are optional.
type Deps struct {
	Bookings     store.BookingStore
	Directory    store.Directory
	Options      store.OptionStore
	Generator    Generator
	Forecaster   Forecaster
	Availability AvailabilitySource
	Logger       logger.Logger
	Metrics      *metrics.Metrics
}

type Engine struct {
	deps    Deps
	timeout time.Duration
	log     logger.Logger
	now     func() time.Time
}

func NewEngine(deps Deps, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		deps:    deps,
		timeout: timeout,
		log:     log.With("component", "recommend"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate produces exactly three ranked, persisted reschedule options for a weather
// conflict. Generated candidates are used only when at least three survive validation;
// otherwise the deterministic fallback is used.
func (e *Engine) Generate(ctx context.Context, conflict models.DomainEvent) ([]models.RescheduleOption, error) {
	payload, ok := conflict.Payload.(models.WeatherConflictDetectedPayload)
	if !ok {
		return nil, fmt.Errorf("%w: event %s is %q, not a weather conflict", ErrValidation, conflict.ID, conflict.Type())
	}

	booking, err := e.deps.Bookings.GetBooking(ctx, payload.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", payload.BookingID, err)
	}

	location := e.location(ctx, booking, payload)
	prompt := e.buildPrompt(ctx, booking, location, payload)

	chosen, source := e.candidates(ctx, booking, prompt)

	sort.SliceStable(chosen, func(i, j int) bool { return chosen[i].score > chosen[j].score })
	if len(chosen) > OptionsReturned {
		chosen = chosen[:OptionsReturned]
	}

	now := e.now()
	options := make([]models.RescheduleOption, 0, len(chosen))
	ids := make([]uuid.UUID, 0, len(chosen))
	for _, c := range chosen {
		opt := models.RescheduleOption{
			ID:                uuid.New(),
			ConflictEventID:   conflict.ID,
			OriginalBookingID: booking.ID,
			ProposedTime:      c.proposed,
			WeatherForecast:   e.forecast(ctx, location, c.proposed),
			Score:             c.score,
			Reasoning:         c.reasoning,
			Status:            models.OptionStatusPending,
			Source:            source,
			CreatedAt:         now,
		}
		options = append(options, opt)
		ids = append(ids, opt.ID)
	}

	event := models.NewEvent(booking.ID, models.RescheduleOptionsGeneratedPayload{
		BookingID:       booking.ID,
		ConflictEventID: conflict.ID,
		OptionIDs:       ids,
		FallbackUsed:    source == models.OptionSourceFallback,
	}, now)
	if err := e.deps.Options.SaveRescheduleOptions(ctx, options, event); err != nil {
		return nil, fmt.Errorf("failed to save reschedule options: %w", err)
	}

	e.deps.Metrics.Generation(string(source))
	e.log.Info("reschedule options generated", "bookingId", booking.ID, "source", source, "count", len(options))
	return options, nil
}

// candidates is the single point deciding between generated and fallback proposals
func (e *Engine) candidates(ctx context.Context, booking *models.Booking, prompt Prompt) ([]validCandidate, models.OptionSource) {
	if e.deps.Generator == nil {
		return fallbackCandidates(booking.ScheduledTime), models.OptionSourceFallback
	}

	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.deps.Generator.Generate(genCtx, prompt)
	if err != nil {
		e.log.Warn("generation failed, using fallback", "bookingId", booking.ID, "error", err)
		return fallbackCandidates(booking.ScheduledTime), models.OptionSourceFallback
	}

	now := e.now()
	valid := make([]validCandidate, 0, len(raw))
	for _, c := range raw {
		v, reason := checkCandidate(c, booking.ScheduledTime, now)
		if reason != "" {
			e.log.Debug("candidate rejected", "bookingId", booking.ID, "proposedTime", c.ProposedTime, "reason", reason)
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) < OptionsReturned {
		e.log.Warn("too few valid candidates, using fallback",
			"bookingId", booking.ID, "received", len(raw), "valid", len(valid))
		return fallbackCandidates(booking.ScheduledTime), models.OptionSourceFallback
	}
	return valid, models.OptionSourceGenerated
}

func (e *Engine) location(ctx context.Context, booking *models.Booking, payload models.WeatherConflictDetectedPayload) models.Location {
	id := payload.LocationID
	if id == uuid.Nil {
		id = booking.DepartureLocationID
	}
	loc, err := e.deps.Directory.GetLocation(ctx, id)
	if err != nil {
		e.log.Warn("location lookup failed", "locationId", id, "error", err)
		return models.Location{ID: id}
	}
	return *loc
}

func (e *Engine) buildPrompt(ctx context.Context, booking *models.Booking, location models.Location, payload models.WeatherConflictDetectedPayload) Prompt {
	level := payload.TrainingLevel
	p := Prompt{
		OriginalTime:     booking.ScheduledTime,
		DurationMinutes:  booking.DurationMinutes,
		Location:         location,
		ViolatedMinimums: payload.ViolatedMinimums,
		Weather:          payload.Snapshot,
		Count:            CandidatesRequested,
		EarliestTime:     booking.ScheduledTime.Add(MinOffset),
		LatestTime:       booking.ScheduledTime.Add(MaxOffset),
	}

	if student, err := e.deps.Directory.GetStudent(ctx, booking.StudentID); err == nil {
		p.StudentName = student.Name
		if level == "" {
			level = student.TrainingLevel
		}
	}
	p.TrainingLevel = level
	if mins, err := weather.Minimums(level); err == nil {
		p.Minimums = mins
	} else {
		p.Minimums = weather.DefaultMinimums[models.TrainingLevelStudent]
	}

	if aircraft, err := e.deps.Directory.GetAircraft(ctx, booking.AircraftID); err == nil {
		p.AircraftReg = aircraft.Registration
	}

	instructor, err := e.deps.Directory.GetInstructor(ctx, booking.InstructorID)
	if err != nil {
		return p
	}
	p.InstructorName = instructor.Name
	if e.deps.Availability != nil {
		windows, err := e.deps.Availability.FreeWindows(ctx, *instructor, p.EarliestTime, p.LatestTime.Add(booking.Duration()))
		if err != nil {
			e.log.Warn("instructor availability unavailable", "instructorId", instructor.ID, "error", err)
		} else {
			p.Availability = windows
		}
	}
	return p
}

func (e *Engine) forecast(ctx context.Context, location models.Location, at time.Time) models.WeatherSnapshot {
	placeholder := models.WeatherSnapshot{LocationID: location.ID, ObservedAt: at, Placeholder: true}
	if e.deps.Forecaster == nil {
		return placeholder
	}
	snap, err := e.deps.Forecaster.Forecast(ctx, location, at)
	if err != nil {
		e.log.Debug("forecast unavailable", "locationId", location.ID, "at", at, "error", err)
		return placeholder
	}
	return snap
}
