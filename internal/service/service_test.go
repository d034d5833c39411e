package service

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
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/recommend"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Run(ctx context.Context) (models.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.SweepResult), args.Error(1)
}

type serviceFixture struct {
	mem     *store.Memory
	ledger  *ledger.Ledger
	sweeper *MockSweeper
	svc     TrainingService
	req     models.CreateBookingRequest
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	mem := store.NewMemory()
	student, instructor, aircraft, location := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	mem.AddStudent(models.Student{ID: student, Name: "Sam", TrainingLevel: models.TrainingLevelStudent})
	mem.AddInstructor(models.Instructor{ID: instructor, Name: "Ida"})
	mem.AddAircraft(models.Aircraft{ID: aircraft, Registration: "N172SP"})
	mem.AddLocation(models.Location{ID: location, Name: "Palo Alto", Timezone: "UTC"})

	l := ledger.NewLedger(mem, mem, nil, nil)
	engine := recommend.NewEngine(recommend.Deps{
		Bookings:  mem,
		Directory: mem,
		Options:   mem,
	}, time.Second)
	sweeper := &MockSweeper{}

	return &serviceFixture{
		mem:     mem,
		ledger:  l,
		sweeper: sweeper,
		svc: NewTrainingService(Deps{
			Bookings: mem,
			Checks:   mem,
			Events:   mem,
			Options:  mem,
			Ledger:   l,
			Engine:   engine,
			Sweeper:  sweeper,
		}),
		req: models.CreateBookingRequest{
			StudentID:           student,
			InstructorID:        instructor,
			AircraftID:          aircraft,
			DepartureLocationID: location,
			ScheduledTime:       time.Now().UTC().Add(6 * time.Hour).Truncate(time.Minute),
			DurationMinutes:     60,
		},
	}
}

func (f *serviceFixture) book(t *testing.T, offset time.Duration) *models.Booking {
	t.Helper()
	req := f.req
	req.ScheduledTime = req.ScheduledTime.Add(offset)
	b, err := f.svc.CreateBooking(context.Background(), &req)
	require.NoError(t, err)
	return b
}

func (f *serviceFixture) saveCheck(t *testing.T, b *models.Booking) {
	t.Helper()
	require.NoError(t, f.mem.SaveWeatherCheck(context.Background(), &models.WeatherCheck{
		ID:               uuid.New(),
		BookingID:        b.ID,
		LocationID:       b.DepartureLocationID,
		CheckTime:        time.Now().UTC(),
		ForecastTime:     b.ScheduledTime,
		TrainingLevel:    models.TrainingLevelStudent,
		Snapshot:         models.WeatherSnapshot{VisibilityMiles: 2, Conditions: []string{"Mist"}},
		IsSafe:           false,
		ViolatedMinimums: []string{"Visibility 2.0 mi < 5 mi minimum"},
		Severity:         models.SeverityCritical,
	}))
}

func TestGenerateOptions_Validation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *models.GenerateOptionsRequest
		wantErr error
	}{
		{"nil request", nil, ErrInvalidInput},
		{"missing booking id", &models.GenerateOptionsRequest{}, ErrInvalidInput},
		{"malformed booking id", &models.GenerateOptionsRequest{BookingID: "abc"}, ErrInvalidInput},
		{"unknown booking", &models.GenerateOptionsRequest{BookingID: uuid.New().String()}, store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GenerateOptions(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateOptions_NoWeatherCheck(t *testing.T) {
	f := newServiceFixture(t)
	b := f.book(t, 0)

	_, err := f.svc.GenerateOptions(context.Background(), &models.GenerateOptionsRequest{BookingID: b.ID.String()})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGenerateOptions_FromLatestCheck(t *testing.T) {
	f := newServiceFixture(t)
	b := f.book(t, 0)
	f.saveCheck(t, b)

	options, err := f.svc.GenerateOptions(context.Background(), &models.GenerateOptionsRequest{BookingID: b.ID.String()})
	require.NoError(t, err)
	require.Len(t, options, 3)
	for i, o := range options {
		assert.Equal(t, b.ScheduledTime.AddDate(0, 0, i+1), o.ProposedTime)
		assert.Equal(t, models.OptionStatusPending, o.Status)
	}
}

func TestGenerateOptions_ReusesStoredAlert(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	b := f.book(t, 0)

	_, alert, err := f.ledger.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{
		LocationID:       b.DepartureLocationID,
		TrainingLevel:    models.TrainingLevelStudent,
		ViolatedMinimums: []string{"Thunderstorms present"},
		Severity:         models.SeverityCritical,
	})
	require.NoError(t, err)

	options, err := f.svc.GenerateOptions(ctx, &models.GenerateOptionsRequest{
		BookingID:      b.ID.String(),
		WeatherAlertID: alert.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, options, 3)
	assert.Equal(t, alert.ID, options[0].ConflictEventID)

	other := f.book(t, 4*time.Hour)
	_, err = f.svc.GenerateOptions(ctx, &models.GenerateOptionsRequest{
		BookingID:      other.ID.String(),
		WeatherAlertID: alert.ID.String(),
	})
	assert.ErrorIs(t, err, ErrAlertMismatch)

	created, err := f.mem.LatestEvent(ctx, b.ID, models.EventBookingCreated)
	require.NoError(t, err)
	_, err = f.svc.GenerateOptions(ctx, &models.GenerateOptionsRequest{
		BookingID:      b.ID.String(),
		WeatherAlertID: created.ID.String(),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSelectOption(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	b := f.book(t, 0)
	f.saveCheck(t, b)
	_, _, err := f.ledger.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{Severity: models.SeverityMarginal})
	require.NoError(t, err)

	options, err := f.svc.GenerateOptions(ctx, &models.GenerateOptionsRequest{BookingID: b.ID.String()})
	require.NoError(t, err)

	resp, err := f.svc.SelectOption(ctx, options[1].ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRescheduled, resp.Reschedule.Old.Status)
	assert.Equal(t, options[1].ProposedTime, resp.Reschedule.New.ScheduledTime)
	assert.Equal(t, models.OptionStatusSelected, resp.Option.Status)

	stored, err := f.mem.ListRescheduleOptions(ctx, b.ID)
	require.NoError(t, err)
	for _, o := range stored {
		if o.ID == options[1].ID {
			assert.Equal(t, models.OptionStatusSelected, o.Status)
		} else {
			assert.Equal(t, models.OptionStatusRejected, o.Status)
		}
	}

	_, err = f.svc.SelectOption(ctx, options[0].ID.String())
	assert.ErrorIs(t, err, ErrOptionNotPending)

	_, err = f.svc.SelectOption(ctx, uuid.New().String())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSelectOption_ClearedHoldRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	b := f.book(t, 0)
	f.saveCheck(t, b)
	_, _, err := f.ledger.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{Severity: models.SeverityMarginal})
	require.NoError(t, err)

	options, err := f.svc.GenerateOptions(ctx, &models.GenerateOptionsRequest{BookingID: b.ID.String()})
	require.NoError(t, err)

	// the weather cleared before anyone picked an option
	_, err = f.ledger.TransitionStatus(ctx, b.ID, models.BookingStatusScheduled, ledger.ReasonWeatherCleared)
	require.NoError(t, err)

	_, err = f.svc.SelectOption(ctx, options[0].ID.String())
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	got, err := f.mem.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusScheduled, got.Status)
	stored, err := f.mem.ListRescheduleOptions(ctx, b.ID)
	require.NoError(t, err)
	for _, o := range stored {
		assert.Equal(t, models.OptionStatusPending, o.Status)
	}
}

func TestListBookings_StatusFilter(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	active := f.book(t, 0)
	canceled := f.book(t, 3*time.Hour)
	_, err := f.svc.TransitionStatus(ctx, canceled.ID.String(), &models.TransitionRequest{Status: models.BookingStatusCanceled})
	require.NoError(t, err)

	got, err := f.svc.ListBookings(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	got, err = f.svc.ListBookings(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.svc.ListBookings(ctx, "canceled")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, canceled.ID, got[0].ID)

	_, err = f.svc.ListBookings(ctx, "LANDED")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransitionStatus_Errors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	b := f.book(t, 0)

	_, err := f.svc.TransitionStatus(ctx, "bad", &models.TransitionRequest{Status: models.BookingStatusCanceled})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.TransitionStatus(ctx, b.ID.String(), &models.TransitionRequest{Status: "LANDED"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.TransitionStatus(ctx, b.ID.String(), &models.TransitionRequest{Status: models.BookingStatusCompleted})
	require.NoError(t, err)
	_, err = f.svc.TransitionStatus(ctx, b.ID.String(), &models.TransitionRequest{Status: models.BookingStatusScheduled})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestGetBookingDetail_LimitsChecks(t *testing.T) {
	f := newServiceFixture(t)
	b := f.book(t, 0)
	for i := 0; i < 7; i++ {
		f.saveCheck(t, b)
	}

	detail, err := f.svc.GetBookingDetail(context.Background(), b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, b.ID, detail.Booking.ID)
	assert.Len(t, detail.WeatherChecks, 5)
}

func TestDashboardStatsAndAlerts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	held := f.book(t, 0)
	f.book(t, 2*time.Hour)

	_, alert, err := f.ledger.HoldForWeather(ctx, held.ID, models.WeatherConflictDetectedPayload{
		ViolatedMinimums: []string{"Thunderstorms present"},
		Severity:         models.SeverityCritical,
	})
	require.NoError(t, err)

	stats, err := f.svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBookings)
	assert.Equal(t, 1, stats.WeatherHolds)
	assert.Equal(t, 1, stats.ByStatus[models.BookingStatusScheduled])
	assert.Len(t, stats.UpcomingFlights, 2)

	alerts, err := f.svc.WeatherAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, held.ID, alerts[0].Booking.ID)
	require.NotNil(t, alerts[0].ConflictEvent)
	assert.Equal(t, alert.ID, alerts[0].ConflictEvent.ID)
}

func TestRunSweepAndState(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.sweeper.On("Run", ctx).Return(models.SweepResult{Checked: 3, Conflicts: 1}, nil).Once()
	result, err := f.svc.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)

	f.sweeper.On("Run", ctx).Return(models.SweepResult{}, errors.New("list failed")).Once()
	_, err = f.svc.RunSweep(ctx)
	assert.Error(t, err)
	f.sweeper.AssertExpectations(t)

	_, err = f.svc.SweepState(ctx)
	assert.ErrorIs(t, err, ErrSweepUnavailable)
}
