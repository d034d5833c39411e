package recommend

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
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt Prompt) ([]Candidate, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Candidate), args.Error(1)
}

type MockForecaster struct {
	mock.Mock
}

func (m *MockForecaster) Forecast(ctx context.Context, location models.Location, at time.Time) (models.WeatherSnapshot, error) {
	args := m.Called(ctx, location, at)
	return args.Get(0).(models.WeatherSnapshot), args.Error(1)
}

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) FreeWindows(ctx context.Context, instructor models.Instructor, from, to time.Time) ([]models.TimeWindow, error) {
	args := m.Called(ctx, instructor, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TimeWindow), args.Error(1)
}

type engineFixture struct {
	mem      *store.Memory
	booking  *models.Booking
	conflict models.DomainEvent
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	student, instructor, aircraft, location := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	mem.AddStudent(models.Student{ID: student, Name: "Sam", TrainingLevel: models.TrainingLevelStudent})
	mem.AddInstructor(models.Instructor{ID: instructor, Name: "Ida", CalendarID: "ida@example.com"})
	mem.AddAircraft(models.Aircraft{ID: aircraft, Registration: "N172SP"})
	mem.AddLocation(models.Location{ID: location, Name: "Palo Alto", Code: "KPAO", Timezone: "America/Los_Angeles"})

	l := ledger.NewLedger(mem, mem, nil, nil)
	b, err := l.CreateBooking(ctx, models.CreateBookingRequest{
		StudentID:           student,
		InstructorID:        instructor,
		AircraftID:          aircraft,
		DepartureLocationID: location,
		ScheduledTime:       time.Now().Add(6 * time.Hour).Truncate(time.Second),
		DurationMinutes:     90,
	})
	require.NoError(t, err)

	_, ev, err := l.HoldForWeather(ctx, b.ID, models.WeatherConflictDetectedPayload{
		LocationID:       location,
		TrainingLevel:    models.TrainingLevelStudent,
		Snapshot:         models.WeatherSnapshot{VisibilityMiles: 2},
		ViolatedMinimums: []string{"Visibility 2.0 mi < 5 mi minimum"},
		Severity:         models.SeverityCritical,
	})
	require.NoError(t, err)

	return &engineFixture{mem: mem, booking: b, conflict: ev}
}

func (f *engineFixture) engine(gen Generator, fc Forecaster, av AvailabilitySource, timeout time.Duration) *Engine {
	return NewEngine(Deps{
		Bookings:     f.mem,
		Directory:    f.mem,
		Options:      f.mem,
		Generator:    gen,
		Forecaster:   fc,
		Availability: av,
	}, timeout)
}

func (f *engineFixture) at(offset time.Duration) string {
	return f.booking.ScheduledTime.Add(offset).Format(time.RFC3339)
}

func assertFallback(t *testing.T, f *engineFixture, opts []models.RescheduleOption) {
	t.Helper()
	require.Len(t, opts, 3)
	wantScores := []float64{0.8, 0.75, 0.7}
	for i, o := range opts {
		assert.Equal(t, f.booking.ScheduledTime.AddDate(0, 0, i+1), o.ProposedTime)
		assert.Equal(t, wantScores[i], o.Score)
		assert.Equal(t, models.OptionSourceFallback, o.Source)
		assert.Equal(t, models.OptionStatusPending, o.Status)
		assert.Equal(t, f.conflict.ID, o.ConflictEventID)
	}
}

func TestGenerate_RejectsNonConflictEvent(t *testing.T) {
	f := newEngineFixture(t)
	ev := models.NewEvent(f.booking.ID, models.BookingCreatedPayload{BookingID: f.booking.ID}, time.Now())

	_, err := f.engine(nil, nil, nil, 0).Generate(context.Background(), ev)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenerate_GeneratorErrorUsesFallback(t *testing.T) {
	f := newEngineFixture(t)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	opts, err := f.engine(gen, nil, nil, 0).Generate(context.Background(), f.conflict)
	require.NoError(t, err)
	assertFallback(t, f, opts)
	for _, o := range opts {
		assert.True(t, o.WeatherForecast.Placeholder)
	}

	ev, err := f.mem.LatestEvent(context.Background(), f.booking.ID, models.EventRescheduleOptionsGenerated)
	require.NoError(t, err)
	payload := ev.Payload.(models.RescheduleOptionsGeneratedPayload)
	assert.True(t, payload.FallbackUsed)
	assert.Len(t, payload.OptionIDs, 3)
	assert.Equal(t, f.conflict.ID, payload.ConflictEventID)
}

func TestGenerate_NoCandidatesUsesFallback(t *testing.T) {
	f := newEngineFixture(t)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return([]Candidate{}, nil)

	opts, err := f.engine(gen, nil, nil, 0).Generate(context.Background(), f.conflict)
	require.NoError(t, err)
	assertFallback(t, f, opts)
}

func TestGenerate_NoGeneratorUsesFallback(t *testing.T) {
	f := newEngineFixture(t)
	opts, err := f.engine(nil, nil, nil, 0).Generate(context.Background(), f.conflict)
	require.NoError(t, err)
	assertFallback(t, f, opts)
}

func TestGenerate_TimeoutUsesFallback(t *testing.T) {
	f := newEngineFixture(t)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	start := time.Now()
	opts, err := f.engine(gen, nil, nil, 20*time.Millisecond).Generate(context.Background(), f.conflict)
	require.NoError(t, err)
	assertFallback(t, f, opts)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerate_FiltersAndRanksCandidates(t *testing.T) {
	f := newEngineFixture(t)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return([]Candidate{
		{ProposedTime: f.at(12 * time.Hour), Score: 0.99, Reasoning: "too soon"},
		{ProposedTime: f.at(8 * 24 * time.Hour), Score: 0.98, Reasoning: "too late"},
		{ProposedTime: "next tuesday", Score: 0.97, Reasoning: "unparsable"},
		{ProposedTime: f.at(-30 * time.Hour), Score: 0.96, Reasoning: "in the past"},
		{ProposedTime: f.at(48 * time.Hour), Score: 85, Reasoning: "percent"},
		{ProposedTime: f.at(72 * time.Hour), Score: 0.9, Reasoning: "best"},
		{ProposedTime: f.at(24 * time.Hour), Score: 0.6, Reasoning: "boundary"},
		{ProposedTime: f.at(96 * time.Hour), Score: 0.5, Reasoning: "fourth"},
	}, nil)

	opts, err := f.engine(gen, nil, nil, 0).Generate(context.Background(), f.conflict)
	require.NoError(t, err)
	require.Len(t, opts, 3)

	assert.Equal(t, "best", opts[0].Reasoning)
	assert.Equal(t, 0.9, opts[0].Score)
	assert.Equal(t, "percent", opts[1].Reasoning)
	assert.InDelta(t, 0.85, opts[1].Score, 1e-9)
	assert.Equal(t, "boundary", opts[2].Reasoning)
	for _, o := range opts {
		assert.Equal(t, models.OptionSourceGenerated, o.Source)
		diff := o.ProposedTime.Sub(f.booking.ScheduledTime)
		assert.GreaterOrEqual(t, diff, 24*time.Hour)
		assert.LessOrEqual(t, diff, 7*24*time.Hour)
	}

	stored, err := f.mem.ListRescheduleOptions(context.Background(), f.booking.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestGenerate_TooFewValidUsesFallback(t *testing.T) {
	f := newEngineFixture(t)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return([]Candidate{
		{ProposedTime: f.at(48 * time.Hour), Score: 0.9},
		{ProposedTime: f.at(72 * time.Hour), Score: 0.8},
		{ProposedTime: f.at(2 * time.Hour), Score: 0.7},
	}, nil)

	opts, err := f.engine(gen, nil, nil, 0).Generate(context.Background(), f.conflict)
	require.NoError(t, err)
	assertFallback(t, f, opts)
}

func TestGenerate_EnrichesWithForecast(t *testing.T) {
	f := newEngineFixture(t)
	fc := new(MockForecaster)
	first := f.booking.ScheduledTime.AddDate(0, 0, 1)
	fc.On("Forecast", mock.Anything, mock.Anything, first).Return(models.WeatherSnapshot{VisibilityMiles: 10}, nil)
	fc.On("Forecast", mock.Anything, mock.Anything, mock.Anything).Return(models.WeatherSnapshot{}, errors.New("beyond range"))

	opts, err := f.engine(nil, fc, nil, 0).Generate(context.Background(), f.conflict)
	require.NoError(t, err)
	require.Len(t, opts, 3)

	assert.False(t, opts[0].WeatherForecast.Placeholder)
	assert.Equal(t, 10.0, opts[0].WeatherForecast.VisibilityMiles)
	assert.True(t, opts[1].WeatherForecast.Placeholder)
	assert.True(t, opts[2].WeatherForecast.Placeholder)
}

func TestGenerate_PromptIncludesContext(t *testing.T) {
	f := newEngineFixture(t)
	window := models.TimeWindow{
		Start: f.booking.ScheduledTime.Add(26 * time.Hour),
		End:   f.booking.ScheduledTime.Add(30 * time.Hour),
	}
	av := new(MockAvailability)
	av.On("FreeWindows", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.TimeWindow{window}, nil)

	var captured Prompt
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(Prompt) }).
		Return(nil, errors.New("offline"))

	_, err := f.engine(gen, nil, av, 0).Generate(context.Background(), f.conflict)
	require.NoError(t, err)

	assert.Equal(t, CandidatesRequested, captured.Count)
	assert.Equal(t, "Ida", captured.InstructorName)
	assert.Equal(t, "N172SP", captured.AircraftReg)
	assert.Equal(t, 5.0, captured.Minimums.VisibilityMiles)
	assert.Equal(t, []models.TimeWindow{window}, captured.Availability)

	text := captured.Render()
	assert.Contains(t, text, "Visibility 2.0 mi < 5 mi minimum")
	assert.Contains(t, text, "KPAO")
	assert.Contains(t, text, "exactly 5 options")
}

func TestGenerate_UnknownBooking(t *testing.T) {
	f := newEngineFixture(t)
	ev := models.NewEvent(uuid.New(), models.WeatherConflictDetectedPayload{BookingID: uuid.New()}, time.Now())

	_, err := f.engine(nil, nil, nil, 0).Generate(context.Background(), ev)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
