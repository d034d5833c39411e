package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/audit"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/availability"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/config"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/database"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/ledger"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/recommend"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/sweep"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/weather"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Core holds the storage connections and domain components shared by the
// API server and the Temporal worker
type Core struct {
	Pool      *pgxpool.Pool
	Repo      *database.Repository
	Directory *database.Directory
	Checks    store.WeatherCheckStore
	Provider  *weather.Provider
	Ledger    *ledger.Ledger
	Engine    *recommend.Engine
	Sweep     *sweep.Orchestrator

	mongo *mongo.Client
	log   logger.Logger
}

// NewCore connects to Postgres (and MongoDB when configured), applies the
// schema and builds the domain components
func NewCore(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*Core, error) {
	log.Info("Connecting to database")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	directory, err := database.OpenDirectory(cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, err
	}

	core := &Core{
		Pool:      pool,
		Repo:      database.NewRepository(pool),
		Directory: directory,
		log:       log,
	}
	core.Checks = core.Repo

	if cfg.MongoURI != "" {
		log.Info("Connecting to MongoDB", "database", cfg.MongoDB)
		client, err := audit.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			core.Close(ctx)
			return nil, err
		}
		core.mongo = client
		checks, err := audit.NewWeatherCheckRepository(ctx, client.Database(cfg.MongoDB))
		if err != nil {
			core.Close(ctx)
			return nil, err
		}
		core.Checks = checks
	}

	core.Provider = weather.NewProvider(
		weather.NewOpenWeatherClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherURL),
		weather.ProviderConfig{
			TTL:     cfg.WeatherCacheTTL,
			Timeout: cfg.WeatherTimeout,
			Logger:  log,
			Metrics: m,
		},
	)
	evaluator := weather.NewEvaluator(weather.SeverityThresholds{
		VisibilityRatio: cfg.CriticalVisRatio,
		WindRatio:       cfg.CriticalWindRatio,
	})

	core.Ledger = ledger.NewLedger(core.Repo, directory, log, m)

	engineDeps := recommend.Deps{
		Bookings:   core.Repo,
		Directory:  directory,
		Options:    core.Repo,
		Forecaster: core.Provider,
		Logger:     log,
		Metrics:    m,
	}
	if cfg.GenerationAPIKey != "" {
		engineDeps.Generator = recommend.NewChatCompletionsGenerator(cfg.GenerationURL, cfg.GenerationAPIKey, cfg.GenerationModel)
	} else {
		log.Warn("GENERATION_API_KEY not set, reschedule options use the fallback generator")
	}
	if cfg.GoogleRefreshToken != "" {
		cal, err := availability.NewGoogleCalendar(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken)
		if err != nil {
			log.Warn("Google Calendar unavailable", "error", err)
		} else {
			engineDeps.Availability = cal
		}
	}
	core.Engine = recommend.NewEngine(engineDeps, cfg.GenerationTimeout)

	core.Sweep = sweep.NewOrchestrator(sweep.Deps{
		Bookings:  core.Repo,
		Directory: directory,
		Checks:    core.Checks,
		Provider:  core.Provider,
		Evaluator: evaluator,
		Ledger:    core.Ledger,
		Logger:    log,
		Metrics:   m,
	}, sweep.Config{
		Horizon:      cfg.SweepHorizon,
		Concurrency:  cfg.SweepConcurrency,
		RecheckHolds: cfg.SweepRecheckHolds,
	})

	return core, nil
}

// SweepInput is the workflow input matching the configured sweep
func SweepInput(cfg *config.Config) models.SweepWorkflowInput {
	return models.SweepWorkflowInput{
		HorizonHours: int(cfg.SweepHorizon.Hours()),
		Concurrency:  cfg.SweepConcurrency,
		RecheckHolds: cfg.SweepRecheckHolds,
	}
}

func (c *Core) Close(ctx context.Context) {
	if c.mongo != nil {
		if err := c.mongo.Disconnect(ctx); err != nil {
			c.log.Error("MongoDB disconnect error", "error", err)
		}
	}
	if c.Directory != nil {
		if err := c.Directory.Close(); err != nil {
			c.log.Error("Directory close error", "error", err)
		}
	}
	c.Pool.Close()
}
