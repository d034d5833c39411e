package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SWEEP_HORIZON", "SWEEP_CONCURRENCY", "WEATHER_CACHE_TTL", "SWEEP_RECHECK_HOLDS", "SWEEP_CRON", "SWEEP_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 48*time.Hour, cfg.SweepHorizon)
	assert.Equal(t, 4, cfg.SweepConcurrency)
	assert.Equal(t, 30*time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
	assert.True(t, cfg.SweepRecheckHolds)
	assert.Equal(t, "*/30 * * * *", cfg.SweepCron)
	assert.Equal(t, 5*time.Minute, cfg.SweepTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SWEEP_HORIZON", "24h")
	t.Setenv("SWEEP_CONCURRENCY", "1")
	t.Setenv("WEATHER_TIMEOUT", "5")
	t.Setenv("SWEEP_RECHECK_HOLDS", "false")
	t.Setenv("CRITICAL_WIND_RATIO", "2")
	t.Setenv("RELAY_BATCH_SIZE", "not-a-number")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.SweepHorizon)
	assert.Equal(t, 1, cfg.SweepConcurrency)
	assert.Equal(t, 5*time.Second, cfg.WeatherTimeout)
	assert.False(t, cfg.SweepRecheckHolds)
	assert.Equal(t, 2.0, cfg.CriticalWindRatio)
	assert.Equal(t, 100, cfg.RelayBatchSize)
}
