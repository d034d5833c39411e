package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// ErrTransientProvider marks failures of the upstream weather source
var ErrTransientProvider = errors.New("weather provider unavailable")

const (
	DefaultCacheTTL     = 30 * time.Minute
	DefaultFetchTimeout = 10 * time.Second
)

// Client is an upstream weather source
type Client interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
	FetchForecast(ctx context.Context, lat, lon float64, at time.Time) (models.WeatherSnapshot, error)
}

type ProviderConfig struct {
	TTL     time.Duration
	Timeout time.Duration
	Logger  logger.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type cacheEntry struct {
	snapshot  models.WeatherSnapshot
	fetchedAt time.Time
}

// Provider serves current snapshots per location from a TTL cache in front of a Client
type Provider struct {
	client  Client
	ttl     time.Duration
	timeout time.Duration
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.RWMutex
	cache map[uuid.UUID]cacheEntry
	group singleflight.Group
}

func NewProvider(client Client, cfg ProviderConfig) *Provider {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Provider{
		client:  client,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
		cache:   make(map[uuid.UUID]cacheEntry),
	}
}

// Current returns the snapshot for location, fetching when the cached one is missing or stale
func (p *Provider) Current(ctx context.Context, location models.Location) (models.WeatherSnapshot, error) {
	if snap, ok := p.cached(location.ID); ok {
		p.metrics.WeatherFetch("hit")
		return snap, nil
	}

	v, err, _ := p.group.Do(location.ID.String(), func() (interface{}, error) {
		// another caller may have filled the entry while we waited
		if snap, ok := p.cached(location.ID); ok {
			return snap, nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		snap, err := p.client.FetchCurrent(fetchCtx, location.Latitude, location.Longitude)
		if err != nil {
			return nil, err
		}
		snap.LocationID = location.ID

		p.mu.Lock()
		p.cache[location.ID] = cacheEntry{snapshot: snap, fetchedAt: p.now()}
		p.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		p.metrics.WeatherFetch("error")
		p.log.Warn("weather fetch failed", "locationId", location.ID, "error", err)
		return models.WeatherSnapshot{}, fmt.Errorf("%w: %v", ErrTransientProvider, err)
	}

	p.metrics.WeatherFetch("miss")
	return v.(models.WeatherSnapshot), nil
}

// Forecast returns the forecast for location at the given time. Forecasts are not cached.
func (p *Provider) Forecast(ctx context.Context, location models.Location, at time.Time) (models.WeatherSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap, err := p.client.FetchForecast(fetchCtx, location.Latitude, location.Longitude, at)
	if err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: %v", ErrTransientProvider, err)
	}
	snap.LocationID = location.ID
	return snap, nil
}

// Invalidate drops the cached snapshot for a location
func (p *Provider) Invalidate(locationID uuid.UUID) {
	p.mu.Lock()
	delete(p.cache, locationID)
	p.mu.Unlock()
}

func (p *Provider) cached(locationID uuid.UUID) (models.WeatherSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.cache[locationID]
	if !ok || p.now().Sub(entry.fetchedAt) >= p.ttl {
		return models.WeatherSnapshot{}, false
	}
	return entry.snapshot, true
}
