package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/config"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

func TestSweepInput(t *testing.T) {
	cfg := &config.Config{
		SweepHorizon:      36 * time.Hour,
		SweepConcurrency:  8,
		SweepRecheckHolds: true,
	}

	assert.Equal(t, models.SweepWorkflowInput{
		HorizonHours: 36,
		Concurrency:  8,
		RecheckHolds: true,
	}, SweepInput(cfg))
}
