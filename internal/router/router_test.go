package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/handlers"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/service/mocks"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

const secret = "s3cret-value"

func signed(t *testing.T, key string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "scheduler", "exp": exp.Unix()})
	s, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestAuthorized(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		secret string
		header string
		want   bool
	}{
		{"exact secret", secret, "Bearer " + secret, true},
		{"case-insensitive scheme", secret, "bearer " + secret, true},
		{"wrong secret", secret, "Bearer nope", false},
		{"missing header", secret, "", false},
		{"no scheme", secret, secret, false},
		{"empty configured secret", "", "Bearer ", false},
		{"valid jwt", secret, "Bearer " + signed(t, secret, jwt.SigningMethodHS256, future), true},
		{"jwt other key", secret, "Bearer " + signed(t, "other", jwt.SigningMethodHS256, future), false},
		{"expired jwt", secret, "Bearer " + signed(t, secret, jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), false},
		{"hs512 rejected", secret, "Bearer " + signed(t, secret, jwt.SigningMethodHS512, future), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authorized(tt.secret, tt.header))
		})
	}
}

func TestCronEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		auth           string
		expectedStatus int
		shouldRun      bool
	}{
		{"authorized post", http.MethodPost, "Bearer " + secret, http.StatusOK, true},
		{"unauthorized post", http.MethodPost, "Bearer wrong", http.StatusUnauthorized, false},
		{"get not allowed", http.MethodGet, "Bearer " + secret, http.StatusMethodNotAllowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockTrainingService)
			r := SetupRouter(handlers.NewHandler(mockService, nil), Options{CronSecret: secret})

			if tt.shouldRun {
				mockService.On("RunSweep", mock.Anything).Return(models.SweepResult{Checked: 1}, nil)
			}

			req := httptest.NewRequest(tt.method, "/api/cron/weather-check", nil)
			req.Header.Set("Authorization", tt.auth)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
			if !tt.shouldRun {
				mockService.AssertNotCalled(t, "RunSweep", mock.Anything)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("scheduler", reg)
	m.BookingCreated()

	r := SetupRouter(handlers.NewHandler(new(mocks.MockTrainingService), nil), Options{Gatherer: reg})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scheduler_bookings_created_total")
}

func TestCORSPreflight(t *testing.T) {
	r := SetupRouter(handlers.NewHandler(new(mocks.MockTrainingService), nil), Options{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/bookings", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
