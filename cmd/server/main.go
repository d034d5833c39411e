package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.temporal.io/sdk/client"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/app"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/config"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/events"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/handlers"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/router"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/service"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/websocket"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Starting training scheduler API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("flight_training", reg)

	core, err := app.NewCore(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("Failed to initialise storage", "error", err)
	}

	deps := service.Deps{
		Bookings: core.Repo,
		Checks:   core.Checks,
		Events:   core.Repo,
		Options:  core.Repo,
		Ledger:   core.Ledger,
		Engine:   core.Engine,
		Sweeper:  core.Sweep,
		Logger:   log,
	}

	// Temporal is optional for the API: without it the sweep state endpoint reports unavailable
	temporalClient, err := client.Dial(client.Options{HostPort: cfg.TemporalHost})
	if err != nil {
		if cfg.SweepViaTemporal {
			log.Fatal("Failed to connect to Temporal", "host", cfg.TemporalHost, "error", err)
		}
		log.Warn("Temporal unavailable, sweep state disabled", "host", cfg.TemporalHost, "error", err)
	} else {
		defer temporalClient.Close()
		sweeper := service.NewTemporalSweeper(temporalClient, cfg.TaskQueue, app.SweepInput(cfg))
		deps.SweepState = sweeper
		if cfg.SweepViaTemporal {
			deps.Sweeper = sweeper
		}
		log.Info("Connected to Temporal", "host", cfg.TemporalHost)
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	relay := events.NewRelay(core.Repo, cfg.RelayInterval, cfg.RelayBatchSize, log, m, hub, events.NewLogSubscriber(log))
	go relay.Run(ctx)

	h := handlers.NewHandler(service.NewTrainingService(deps), log)
	h.SetSweepTimeout(cfg.SweepTimeout)
	r := router.SetupRouter(h, router.Options{
		CronSecret: cfg.CronSecret,
		WebSocket:  hub.ServeWS,
		Gatherer:   reg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down server", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	cancel()
	core.Close(shutdownCtx)
	log.Info("Server stopped")
}
