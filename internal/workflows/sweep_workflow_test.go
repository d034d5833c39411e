package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/activities"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

type SweepWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *SweepWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterActivity(&activities.SweepActivities{})
}

func (s *SweepWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func TestSweepWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(SweepWorkflowTestSuite))
}

func bookings(n int) []models.Booking {
	out := make([]models.Booking, n)
	for i := range out {
		out[i] = models.Booking{ID: uuid.New(), Status: models.BookingStatusScheduled}
	}
	return out
}

func (s *SweepWorkflowTestSuite) TestWorkflow_Constants() {
	s.Equal(48, DefaultHorizonHours)
	s.Equal(4, DefaultConcurrency)
}

func (s *SweepWorkflowTestSuite) TestWorkflow_CountsFailuresAndContinues() {
	due := bookings(10)
	failing := map[uuid.UUID]bool{due[2].ID: true, due[7].ID: true}

	s.env.OnActivity(models.ActivityListDue, mock.Anything, mock.Anything).
		Return(&models.ListDueResult{Bookings: due}, nil)
	s.env.OnActivity(models.ActivityCheck, mock.Anything, mock.Anything).Return(
		func(_ context.Context, b models.Booking) (*models.CheckOutcome, error) {
			if failing[b.ID] {
				return nil, errors.New("weather provider unavailable")
			}
			return &models.CheckOutcome{BookingID: b.ID.String(), IsSafe: b.ID != due[0].ID, Conflict: b.ID == due[0].ID}, nil
		})

	s.env.ExecuteWorkflow(WeatherSweepWorkflow, models.SweepWorkflowInput{Concurrency: 3})

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result models.SweepResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(8, result.Checked)
	s.Equal(2, result.Errors)
	s.Equal(1, result.Conflicts)
}

func (s *SweepWorkflowTestSuite) TestWorkflow_PassesInputToListing() {
	s.env.OnActivity(models.ActivityListDue, mock.Anything, models.SweepWorkflowInput{
		HorizonHours: 12,
		Concurrency:  1,
		RecheckHolds: true,
	}).Return(&models.ListDueResult{}, nil)

	s.env.ExecuteWorkflow(WeatherSweepWorkflow, models.SweepWorkflowInput{HorizonHours: 12, Concurrency: 1, RecheckHolds: true})

	s.True(s.env.IsWorkflowCompleted())
	var result models.SweepResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Zero(result.Checked)
}

func (s *SweepWorkflowTestSuite) TestWorkflow_ListFailureFailsRun() {
	s.env.OnActivity(models.ActivityListDue, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	s.env.ExecuteWorkflow(WeatherSweepWorkflow, models.SweepWorkflowInput{})

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *SweepWorkflowTestSuite) TestWorkflow_StateQuery() {
	due := bookings(2)
	s.env.OnActivity(models.ActivityListDue, mock.Anything, mock.Anything).
		Return(&models.ListDueResult{Bookings: due}, nil)
	s.env.OnActivity(models.ActivityCheck, mock.Anything, mock.Anything).
		Return(&models.CheckOutcome{IsSafe: true}, nil)

	s.env.ExecuteWorkflow(WeatherSweepWorkflow, models.SweepWorkflowInput{})
	s.True(s.env.IsWorkflowCompleted())

	val, err := s.env.QueryWorkflow(models.QueryGetState)
	s.Require().NoError(err)

	var state models.SweepWorkflowState
	s.Require().NoError(val.Get(&state))
	s.Equal(models.SweepPhaseDone, state.Phase)
	s.Equal(2, state.Total)
	s.Equal(2, state.Processed)
	s.Equal(2, state.Checked)
}
