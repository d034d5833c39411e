package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// TemporalSweeper runs sweeps as Temporal workflow executions and reads the
// progress of the scheduled cron sweep
type TemporalSweeper struct {
	client    client.Client
	taskQueue string
	input     models.SweepWorkflowInput
}

func NewTemporalSweeper(c client.Client, taskQueue string, input models.SweepWorkflowInput) *TemporalSweeper {
	return &TemporalSweeper{client: c, taskQueue: taskQueue, input: input}
}

// Run starts a one-off sweep workflow and waits for its result
func (t *TemporalSweeper) Run(ctx context.Context) (models.SweepResult, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:                       "weather-sweep-" + uuid.New().String()[:8],
		TaskQueue:                t.taskQueue,
		WorkflowExecutionTimeout: 15 * time.Minute,
	}

	run, err := t.client.ExecuteWorkflow(ctx, workflowOptions, models.SweepWorkflowName, t.input)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("failed to start workflow: %w", err)
	}

	var result models.SweepResult
	if err := run.Get(ctx, &result); err != nil {
		return models.SweepResult{}, fmt.Errorf("sweep workflow failed: %w", err)
	}
	return result, nil
}

// State queries the running cron sweep
func (t *TemporalSweeper) State(ctx context.Context) (*models.SweepWorkflowState, error) {
	response, err := t.client.QueryWorkflow(ctx, models.SweepCronWorkflowID, "", models.QueryGetState)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSweepUnavailable, err)
	}

	var state models.SweepWorkflowState
	if err := response.Get(&state); err != nil {
		return nil, fmt.Errorf("failed to decode workflow state: %w", err)
	}
	return &state, nil
}
