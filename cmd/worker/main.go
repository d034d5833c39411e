package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/activities"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/app"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/config"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/workflows"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	log := logger.NewLogger(cfg.LogLevel)

	m := metrics.NewMetrics("flight_training_worker", prometheus.DefaultRegisterer)

	core, err := app.NewCore(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("Failed to initialise storage", "error", err)
	}
	defer core.Close(ctx)
	log.Info("Connected to database")

	log.Info("Connecting to Temporal", "host", cfg.TemporalHost)
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   log,
	})
	if err != nil {
		log.Fatal("Failed to connect to Temporal", "error", err)
	}
	defer c.Close()
	log.Info("Connected to Temporal")

	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(workflows.WeatherSweepWorkflow, workflow.RegisterOptions{Name: models.SweepWorkflowName})

	acts := activities.NewSweepActivities(core.Sweep, m)
	w.RegisterActivityWithOptions(acts.ListDueBookings, activity.RegisterOptions{Name: models.ActivityListDue})
	w.RegisterActivityWithOptions(acts.CheckBooking, activity.RegisterOptions{Name: models.ActivityCheck})

	// An already running cron execution is returned as is
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           models.SweepCronWorkflowID,
		TaskQueue:    cfg.TaskQueue,
		CronSchedule: cfg.SweepCron,
	}, models.SweepWorkflowName, app.SweepInput(cfg))
	if err != nil {
		log.Error("Failed to schedule weather sweep", "cron", cfg.SweepCron, "error", err)
	} else {
		log.Info("Weather sweep scheduled", "cron", cfg.SweepCron, "runId", run.GetRunID())
	}

	log.Info("Starting Temporal worker", "taskQueue", cfg.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("Worker failed", "error", err)
	}
}
