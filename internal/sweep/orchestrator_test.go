package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/ledger"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/weather"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Current(ctx context.Context, location models.Location) (models.WeatherSnapshot, error) {
	args := m.Called(ctx, location)
	return args.Get(0).(models.WeatherSnapshot), args.Error(1)
}

func atLocation(id uuid.UUID) interface{} {
	return mock.MatchedBy(func(l models.Location) bool { return l.ID == id })
}

func clearSkies() models.WeatherSnapshot {
	return models.WeatherSnapshot{VisibilityMiles: 10, WindSpeedKnots: 4, Conditions: []string{"Clear"}, TemperatureF: 60}
}

type harness struct {
	mem      *store.Memory
	ledger   *ledger.Ledger
	provider *MockProvider
}

func newHarness() *harness {
	mem := store.NewMemory()
	return &harness{
		mem:      mem,
		ledger:   ledger.NewLedger(mem, mem, nil, nil),
		provider: new(MockProvider),
	}
}

func (h *harness) orchestrator(cfg Config) *Orchestrator {
	return NewOrchestrator(Deps{
		Bookings:  h.mem,
		Directory: h.mem,
		Checks:    h.mem,
		Provider:  h.provider,
		Evaluator: weather.NewEvaluator(weather.DefaultSeverityThresholds()),
		Ledger:    h.ledger,
	}, cfg)
}

// book creates a booking with its own resources and departure location
func (h *harness) book(t *testing.T, level models.TrainingLevel, in time.Duration) (*models.Booking, uuid.UUID) {
	t.Helper()
	student, instructor, aircraft, location := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	h.mem.AddStudent(models.Student{ID: student, TrainingLevel: level})
	h.mem.AddInstructor(models.Instructor{ID: instructor})
	h.mem.AddAircraft(models.Aircraft{ID: aircraft})
	h.mem.AddLocation(models.Location{ID: location, Name: "Field"})

	b, err := h.ledger.CreateBooking(context.Background(), models.CreateBookingRequest{
		StudentID:           student,
		InstructorID:        instructor,
		AircraftID:          aircraft,
		DepartureLocationID: location,
		ScheduledTime:       time.Now().Add(in),
		DurationMinutes:     60,
	})
	require.NoError(t, err)
	return b, location
}

func TestRun_LowVisibilityStudentIsHeld(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	b, loc := h.book(t, models.TrainingLevelStudent, 6*time.Hour)

	snap := clearSkies()
	snap.VisibilityMiles = 2
	h.provider.On("Current", mock.Anything, atLocation(loc)).Return(snap, nil)

	result, err := h.orchestrator(Config{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 0, result.Errors)
	assert.False(t, result.Timestamp.Before(result.StartedAt))

	got, err := h.mem.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusWeatherHold, got.Status)

	check, err := h.mem.LatestWeatherCheck(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, check.IsSafe)
	assert.Equal(t, []string{"Visibility 2.0 mi < 5 mi minimum"}, check.ViolatedMinimums)
	assert.Equal(t, models.SeverityCritical, check.Severity)
	assert.Equal(t, b.ScheduledTime, check.ForecastTime)

	events, _ := h.mem.ListEvents(ctx, b.ID)
	conflicts := 0
	for _, e := range events {
		if e.Type() == models.EventWeatherConflictDetected {
			conflicts++
			payload := e.Payload.(models.WeatherConflictDetectedPayload)
			assert.Equal(t, models.SeverityCritical, payload.Severity)
			assert.Equal(t, 2.0, payload.Snapshot.VisibilityMiles)
		}
	}
	assert.Equal(t, 1, conflicts)
}

func TestRun_ProviderFailuresAreCountedAndSkipped(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		h := newHarness()
		ctx := context.Background()

		var failing []uuid.UUID
		for i := 0; i < 10; i++ {
			b, loc := h.book(t, models.TrainingLevelPrivate, time.Duration(i+1)*time.Hour)
			if i == 3 || i == 7 {
				failing = append(failing, b.ID)
				h.provider.On("Current", mock.Anything, atLocation(loc)).
					Return(models.WeatherSnapshot{}, weather.ErrTransientProvider)
				continue
			}
			h.provider.On("Current", mock.Anything, atLocation(loc)).Return(clearSkies(), nil)
		}

		result, err := h.orchestrator(Config{Concurrency: concurrency}).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, result.Checked, "concurrency %d", concurrency)
		assert.Equal(t, 2, result.Errors, "concurrency %d", concurrency)
		assert.Equal(t, 0, result.Conflicts, "concurrency %d", concurrency)

		for _, id := range failing {
			got, _ := h.mem.GetBooking(ctx, id)
			assert.Equal(t, models.BookingStatusScheduled, got.Status)
			_, err := h.mem.LatestWeatherCheck(ctx, id)
			assert.ErrorIs(t, err, store.ErrNotFound)
		}
	}
}

func TestRun_OutsideHorizonIgnored(t *testing.T) {
	h := newHarness()
	h.book(t, models.TrainingLevelStudent, 72*time.Hour)
	h.book(t, models.TrainingLevelStudent, -2*time.Hour)

	result, err := h.orchestrator(Config{Horizon: 48 * time.Hour}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)
	h.provider.AssertNotCalled(t, "Current", mock.Anything, mock.Anything)
}

func TestRun_RecheckClearsHold(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	b, loc := h.book(t, models.TrainingLevelStudent, 5*time.Hour)
	_, _, err := h.ledger.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{})
	require.NoError(t, err)

	h.provider.On("Current", mock.Anything, atLocation(loc)).Return(clearSkies(), nil)

	result, err := h.orchestrator(Config{RecheckHolds: true}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Cleared)

	got, _ := h.mem.GetBooking(ctx, b.ID)
	assert.Equal(t, models.BookingStatusScheduled, got.Status)
}

func TestRun_HoldsNotRecheckedWhenDisabled(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	b, _ := h.book(t, models.TrainingLevelStudent, 5*time.Hour)
	_, _, err := h.ledger.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{})
	require.NoError(t, err)

	result, err := h.orchestrator(Config{RecheckHolds: false}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)
}

func TestRun_StillUnsafeHoldStaysHeld(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	b, loc := h.book(t, models.TrainingLevelStudent, 5*time.Hour)
	_, _, err := h.ledger.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{})
	require.NoError(t, err)

	storm := clearSkies()
	storm.Conditions = []string{"Thunderstorm"}
	h.provider.On("Current", mock.Anything, atLocation(loc)).Return(storm, nil)

	result, err := h.orchestrator(Config{RecheckHolds: true}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 0, result.Conflicts)
	assert.Equal(t, 0, result.Cleared)

	events, _ := h.mem.ListEvents(ctx, b.ID)
	n := 0
	for _, e := range events {
		if e.Type() == models.EventWeatherConflictDetected {
			n++
		}
	}
	assert.Equal(t, 1, n, "a held booking does not emit a second conflict")
}

type failingBookings struct {
	*store.Memory
}

func (f failingBookings) ListBookings(ctx context.Context, filter store.BookingFilter) ([]models.Booking, error) {
	return nil, errors.New("connection refused")
}

func TestRun_ListFailureAborts(t *testing.T) {
	h := newHarness()
	o := NewOrchestrator(Deps{Bookings: failingBookings{h.mem}, Directory: h.mem, Checks: h.mem, Provider: h.provider,
		Evaluator: weather.NewEvaluator(weather.SeverityThresholds{}), Ledger: h.ledger}, Config{})

	_, err := o.Run(context.Background())
	assert.Error(t, err)
}

func TestCheckBooking_UnknownStudent(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(Config{})
	_, err := o.CheckBooking(context.Background(), models.Booking{ID: uuid.New(), StudentID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
