package availability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

func TestInvert(t *testing.T) {
	day := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return day.Add(time.Duration(n) * time.Hour) }
	w := func(a, b int) models.TimeWindow { return models.TimeWindow{Start: h(a), End: h(b)} }

	tests := []struct {
		name string
		busy []models.TimeWindow
		want []models.TimeWindow
	}{
		{"no busy", nil, []models.TimeWindow{w(8, 18)}},
		{"one block", []models.TimeWindow{w(10, 12)}, []models.TimeWindow{w(8, 10), w(12, 18)}},
		{"overlapping unsorted", []models.TimeWindow{w(13, 15), w(9, 11), w(10, 14)}, []models.TimeWindow{w(8, 9), w(15, 18)}},
		{"covers start", []models.TimeWindow{w(6, 9)}, []models.TimeWindow{w(9, 18)}},
		{"covers everything", []models.TimeWindow{w(7, 19)}, []models.TimeWindow{}},
		{"outside range", []models.TimeWindow{w(1, 2), w(20, 21)}, []models.TimeWindow{w(8, 18)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Invert(h(8), h(18), tt.busy))
		})
	}
}

func TestGoogleCalendar_FreeWindows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "freeBusy")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"kind": "calendar#freeBusy",
			"calendars": {
				"ida@example.com": {"busy": [{"start": "2030-05-01T10:00:00Z", "end": "2030-05-01T12:00:00Z"}]}
			}
		}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	cal, err := NewGoogleCalendarWithOptions(ctx,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	from := time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)
	to := from.Add(10 * time.Hour)
	free, err := cal.FreeWindows(ctx, models.Instructor{CalendarID: "ida@example.com"}, from, to)
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Equal(t, from, free[0].Start)
	assert.Equal(t, time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC), free[0].End)
	assert.Equal(t, time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC), free[1].Start)

	_, err = cal.FreeWindows(ctx, models.Instructor{}, from, to)
	assert.ErrorIs(t, err, ErrNoCalendar)
}
