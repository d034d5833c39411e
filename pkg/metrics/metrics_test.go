package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsOnInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("fts", reg)

	m.SweepOutcome("conflict")
	m.SweepOutcome("conflict")
	m.WeatherFetch("hit")
	m.ObserveSweep(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepBookings.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeatherFetches.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRuns))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SweepOutcome("checked")
		m.Error("sweep")
		m.ObserveSweep(time.Now())
		m.EventPublished()
	})
}
