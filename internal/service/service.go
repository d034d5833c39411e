package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrOptionNotPending = errors.New("reschedule option is no longer pending")
	ErrSweepUnavailable = errors.New("sweep state is unavailable")
	ErrAlertMismatch    = errors.New("weather alert does not belong to booking")
)

const (
	recentChecksInDetail  = 5
	upcomingInDashboard   = 10
	weatherChecksListSize = 50
)

// TrainingService is the application layer behind the HTTP API
type TrainingService interface {
	CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error)
	GetBookingDetail(ctx context.Context, bookingID string) (*models.BookingDetail, error)
	ListBookings(ctx context.Context, status string) ([]models.Booking, error)
	TransitionStatus(ctx context.Context, bookingID string, req *models.TransitionRequest) (*models.Booking, error)
	Reschedule(ctx context.Context, bookingID string, req *models.RescheduleRequest) (*models.RescheduleResult, error)
	ListWeatherChecks(ctx context.Context, bookingID string) ([]models.WeatherCheck, error)
	ListEvents(ctx context.Context, bookingID string) ([]models.DomainEvent, error)
	ListRescheduleOptions(ctx context.Context, bookingID string) ([]models.RescheduleOption, error)
	GenerateOptions(ctx context.Context, req *models.GenerateOptionsRequest) ([]models.RescheduleOption, error)
	SelectOption(ctx context.Context, optionID string) (*models.SelectOptionResponse, error)
	RunSweep(ctx context.Context) (models.SweepResult, error)
	SweepState(ctx context.Context) (*models.SweepWorkflowState, error)
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	WeatherAlerts(ctx context.Context) ([]models.WeatherAlert, error)
}

// BookingLedger is the subset of the ledger the service drives
type BookingLedger interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to models.BookingStatus, reason string) (*models.Booking, error)
	Reschedule(ctx context.Context, originalID uuid.UUID, newTime time.Time) (*models.RescheduleResult, error)
}

type Recommender interface {
	Generate(ctx context.Context, conflict models.DomainEvent) ([]models.RescheduleOption, error)
}

// SweepRunner performs one complete weather sweep
type SweepRunner interface {
	Run(ctx context.Context) (models.SweepResult, error)
}

// SweepStateSource reports the progress of the scheduled sweep
type SweepStateSource interface {
	State(ctx context.Context) (*models.SweepWorkflowState, error)
}

type Deps struct {
	Bookings store.BookingStore
	Checks   store.WeatherCheckStore
	Events   store.EventStore
	Options  store.OptionStore
	Ledger   BookingLedger
	Engine   Recommender
	Sweeper  SweepRunner
	// SweepState is optional
	SweepState SweepStateSource
	Logger     logger.Logger
}

// trainingServiceImpl implements TrainingService
type trainingServiceImpl struct {
	deps Deps
	log  logger.Logger
	now  func() time.Time
}

// NewTrainingService creates a new TrainingService
func NewTrainingService(deps Deps) TrainingService {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &trainingServiceImpl{
		deps: deps,
		log:  log.With("component", "service"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s id %q", ErrInvalidInput, kind, raw)
	}
	return id, nil
}

func (s *trainingServiceImpl) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidInput)
	}
	return s.deps.Ledger.CreateBooking(ctx, *req)
}

func (s *trainingServiceImpl) GetBookingDetail(ctx context.Context, bookingID string) (*models.BookingDetail, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}
	booking, err := s.deps.Bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	checks, err := s.deps.Checks.ListWeatherChecks(ctx, id, recentChecksInDetail)
	if err != nil {
		return nil, err
	}
	return &models.BookingDetail{Booking: booking, WeatherChecks: checks}, nil
}

// ListBookings returns active bookings by default, every booking for "all", or
// those with the given status
func (s *trainingServiceImpl) ListBookings(ctx context.Context, status string) ([]models.Booking, error) {
	filter := store.BookingFilter{}
	switch status {
	case "":
		filter.Statuses = models.ActiveStatuses
	case "all":
	default:
		st := models.BookingStatus(strings.ToUpper(status))
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
		filter.Statuses = []models.BookingStatus{st}
	}
	return s.deps.Bookings.ListBookings(ctx, filter)
}

func (s *trainingServiceImpl) TransitionStatus(ctx context.Context, bookingID string, req *models.TransitionRequest) (*models.Booking, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status", ErrInvalidInput)
	}
	return s.deps.Ledger.TransitionStatus(ctx, id, req.Status, req.Reason)
}

func (s *trainingServiceImpl) Reschedule(ctx context.Context, bookingID string, req *models.RescheduleRequest) (*models.RescheduleResult, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.NewScheduledTime.IsZero() {
		return nil, fmt.Errorf("%w: newScheduledTime is required", ErrInvalidInput)
	}
	return s.deps.Ledger.Reschedule(ctx, id, req.NewScheduledTime.UTC())
}

func (s *trainingServiceImpl) ListWeatherChecks(ctx context.Context, bookingID string) ([]models.WeatherCheck, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Bookings.GetBooking(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Checks.ListWeatherChecks(ctx, id, weatherChecksListSize)
}

func (s *trainingServiceImpl) ListEvents(ctx context.Context, bookingID string) ([]models.DomainEvent, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Bookings.GetBooking(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Events.ListEvents(ctx, id)
}

func (s *trainingServiceImpl) ListRescheduleOptions(ctx context.Context, bookingID string) ([]models.RescheduleOption, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Bookings.GetBooking(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Options.ListRescheduleOptions(ctx, id)
}

// GenerateOptions runs the recommendation engine for a booking. With a weather alert
// id the stored conflict event is reused; otherwise a conflict is derived from the
// booking's latest weather check.
func (s *trainingServiceImpl) GenerateOptions(ctx context.Context, req *models.GenerateOptionsRequest) ([]models.RescheduleOption, error) {
	if req == nil || req.BookingID == "" {
		return nil, fmt.Errorf("%w: bookingId is required", ErrInvalidInput)
	}
	id, err := parseID("booking", req.BookingID)
	if err != nil {
		return nil, err
	}
	booking, err := s.deps.Bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	var conflict models.DomainEvent
	if req.WeatherAlertID != "" {
		conflict, err = s.storedConflict(ctx, booking, req.WeatherAlertID)
	} else {
		conflict, err = s.conflictFromLatestCheck(ctx, booking)
	}
	if err != nil {
		return nil, err
	}

	return s.deps.Engine.Generate(ctx, conflict)
}

func (s *trainingServiceImpl) storedConflict(ctx context.Context, booking *models.Booking, alertID string) (models.DomainEvent, error) {
	eventID, err := parseID("weather alert", alertID)
	if err != nil {
		return models.DomainEvent{}, err
	}
	event, err := s.deps.Events.GetEvent(ctx, eventID)
	if err != nil {
		return models.DomainEvent{}, err
	}
	payload, ok := event.Payload.(models.WeatherConflictDetectedPayload)
	if !ok {
		return models.DomainEvent{}, fmt.Errorf("%w: event %s is not a weather conflict", ErrInvalidInput, eventID)
	}
	if payload.BookingID != booking.ID {
		return models.DomainEvent{}, fmt.Errorf("%w: %s", ErrAlertMismatch, eventID)
	}
	return *event, nil
}

func (s *trainingServiceImpl) conflictFromLatestCheck(ctx context.Context, booking *models.Booking) (models.DomainEvent, error) {
	check, err := s.deps.Checks.LatestWeatherCheck(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.DomainEvent{}, fmt.Errorf("no weather check for booking %s: %w", booking.ID, store.ErrNotFound)
		}
		return models.DomainEvent{}, err
	}
	severity := check.Severity
	if severity == "" {
		severity = models.SeverityMarginal
	}
	return models.NewEvent(booking.ID, models.WeatherConflictDetectedPayload{
		BookingID:        booking.ID,
		LocationID:       check.LocationID,
		ScheduledTime:    booking.ScheduledTime,
		TrainingLevel:    check.TrainingLevel,
		Snapshot:         check.Snapshot,
		ViolatedMinimums: check.ViolatedMinimums,
		Severity:         severity,
	}, s.now()), nil
}

// SelectOption reschedules the original booking to the option's time and resolves
// the option set it belongs to
func (s *trainingServiceImpl) SelectOption(ctx context.Context, optionID string) (*models.SelectOptionResponse, error) {
	id, err := parseID("option", optionID)
	if err != nil {
		return nil, err
	}
	option, err := s.deps.Options.GetRescheduleOption(ctx, id)
	if err != nil {
		return nil, err
	}
	if option.Status != models.OptionStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrOptionNotPending, id, option.Status)
	}

	result, err := s.deps.Ledger.Reschedule(ctx, option.OriginalBookingID, option.ProposedTime)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Options.ResolveRescheduleOptions(ctx, id); err != nil {
		return nil, fmt.Errorf("booking rescheduled but option resolution failed: %w", err)
	}
	option.Status = models.OptionStatusSelected

	s.log.Info("reschedule option selected", "optionId", id, "bookingId", option.OriginalBookingID, "newBookingId", result.New.ID)
	return &models.SelectOptionResponse{Option: option, Reschedule: result}, nil
}

func (s *trainingServiceImpl) RunSweep(ctx context.Context) (models.SweepResult, error) {
	return s.deps.Sweeper.Run(ctx)
}

func (s *trainingServiceImpl) SweepState(ctx context.Context) (*models.SweepWorkflowState, error) {
	if s.deps.SweepState == nil {
		return nil, ErrSweepUnavailable
	}
	return s.deps.SweepState.State(ctx)
}

func (s *trainingServiceImpl) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	bookings, err := s.deps.Bookings.ListBookings(ctx, store.BookingFilter{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &models.DashboardStats{
		TotalBookings:   len(bookings),
		ByStatus:        make(map[models.BookingStatus]int),
		UpcomingFlights: make([]models.Booking, 0),
	}
	for _, b := range bookings {
		stats.ByStatus[b.Status]++
		if b.Status == models.BookingStatusWeatherHold {
			stats.WeatherHolds++
		}
		if !b.ScheduledTime.Before(dayStart) && b.ScheduledTime.Before(dayEnd) {
			stats.TodayBookings++
		}
		if b.Status.IsActive() && !b.ScheduledTime.Before(now) && len(stats.UpcomingFlights) < upcomingInDashboard {
			stats.UpcomingFlights = append(stats.UpcomingFlights, b)
		}
	}
	return stats, nil
}

// WeatherAlerts lists bookings on weather hold with their latest conflict event
func (s *trainingServiceImpl) WeatherAlerts(ctx context.Context) ([]models.WeatherAlert, error) {
	held, err := s.deps.Bookings.ListBookings(ctx, store.BookingFilter{
		Statuses: []models.BookingStatus{models.BookingStatusWeatherHold},
	})
	if err != nil {
		return nil, err
	}

	alerts := make([]models.WeatherAlert, 0, len(held))
	for _, b := range held {
		alert := models.WeatherAlert{Booking: b}
		event, err := s.deps.Events.LatestEvent(ctx, b.ID, models.EventWeatherConflictDetected)
		switch {
		case err == nil:
			alert.ConflictEvent = event
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}
