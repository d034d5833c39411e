package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// MockTrainingService is a mock implementation of TrainingService
type MockTrainingService struct {
	mock.Mock
}

func (m *MockTrainingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockTrainingService) GetBookingDetail(ctx context.Context, bookingID string) (*models.BookingDetail, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingDetail), args.Error(1)
}

func (m *MockTrainingService) ListBookings(ctx context.Context, status string) ([]models.Booking, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockTrainingService) TransitionStatus(ctx context.Context, bookingID string, req *models.TransitionRequest) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockTrainingService) Reschedule(ctx context.Context, bookingID string, req *models.RescheduleRequest) (*models.RescheduleResult, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RescheduleResult), args.Error(1)
}

func (m *MockTrainingService) ListWeatherChecks(ctx context.Context, bookingID string) ([]models.WeatherCheck, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WeatherCheck), args.Error(1)
}

func (m *MockTrainingService) ListEvents(ctx context.Context, bookingID string) ([]models.DomainEvent, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DomainEvent), args.Error(1)
}

func (m *MockTrainingService) ListRescheduleOptions(ctx context.Context, bookingID string) ([]models.RescheduleOption, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RescheduleOption), args.Error(1)
}

func (m *MockTrainingService) GenerateOptions(ctx context.Context, req *models.GenerateOptionsRequest) ([]models.RescheduleOption, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RescheduleOption), args.Error(1)
}

func (m *MockTrainingService) SelectOption(ctx context.Context, optionID string) (*models.SelectOptionResponse, error) {
	args := m.Called(ctx, optionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SelectOptionResponse), args.Error(1)
}

func (m *MockTrainingService) RunSweep(ctx context.Context) (models.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.SweepResult), args.Error(1)
}

func (m *MockTrainingService) SweepState(ctx context.Context) (*models.SweepWorkflowState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SweepWorkflowState), args.Error(1)
}

func (m *MockTrainingService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockTrainingService) WeatherAlerts(ctx context.Context) ([]models.WeatherAlert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WeatherAlert), args.Error(1)
}
