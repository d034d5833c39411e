package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/ledger"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/recommend"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/service"
	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// DefaultSweepTimeout bounds a sweep started from the trigger endpoint
const DefaultSweepTimeout = 5 * time.Minute

// Handler contains HTTP handlers for the API
type Handler struct {
	svc          service.TrainingService
	log          logger.Logger
	sweepTimeout time.Duration
}

// NewHandler creates a new Handler instance
func NewHandler(svc service.TrainingService, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{svc: svc, log: log, sweepTimeout: DefaultSweepTimeout}
}

// SetSweepTimeout overrides DefaultSweepTimeout; non-positive values are ignored
func (h *Handler) SetSweepTimeout(d time.Duration) {
	if d > 0 {
		h.sweepTimeout = d
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrResourceConflict),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, service.ErrOptionNotPending):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidBooking),
		errors.Is(err, recommend.ErrValidation),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrAlertMismatch):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSweepUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, status, "Internal server error")
		return
	}

	body := map[string]interface{}{"error": err.Error()}
	var conflict *ledger.ResourceConflictError
	if errors.As(err, &conflict) {
		body["axis"] = conflict.Axis
		body["conflictingBookingId"] = conflict.ConflictingBookingID
	}
	respondJSON(w, status, body)
}

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

// ListBookings handles GET /api/bookings?status=
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListBookings(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetBookingDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// TransitionStatus handles POST /api/bookings/{id}/status
func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "Status is required")
		return
	}

	booking, err := h.svc.TransitionStatus(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// Reschedule handles POST /api/bookings/{id}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req models.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.svc.Reschedule(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListWeatherChecks handles GET /api/bookings/{id}/weather-checks
func (h *Handler) ListWeatherChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.svc.ListWeatherChecks(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, checks)
}

// ListEvents handles GET /api/bookings/{id}/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// ListRescheduleOptions handles GET /api/bookings/{id}/reschedule-options
func (h *Handler) ListRescheduleOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.svc.ListRescheduleOptions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, options)
}

// GenerateOptions handles POST /api/reschedule/generate
func (h *Handler) GenerateOptions(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BookingID == "" {
		respondError(w, http.StatusBadRequest, "Booking ID is required")
		return
	}

	options, err := h.svc.GenerateOptions(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.GenerateOptionsResponse{Success: true, Options: options})
}

// SelectOption handles POST /api/reschedule/options/{id}/select
func (h *Handler) SelectOption(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.SelectOption(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// TriggerWeatherSweep handles POST /api/cron/weather-check. Authentication and the
// method check happen in router middleware.
func (h *Handler) TriggerWeatherSweep(w http.ResponseWriter, r *http.Request) {
	// a caller hanging up must not abort the bookings still being checked
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.sweepTimeout)
	defer cancel()
	// the server WriteTimeout is sized for ordinary requests
	if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(h.sweepTimeout + 10*time.Second)); err != nil {
		h.log.Debug("write deadline not extended", "error", err)
	}

	result, err := h.svc.RunSweep(ctx)
	if err != nil {
		h.log.Error("weather sweep failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success":   false,
			"timestamp": time.Now().UTC(),
			"error":     "Weather sweep failed",
		})
		return
	}

	respondJSON(w, http.StatusOK, models.CronResponse{
		Success:   true,
		Timestamp: result.Timestamp,
		Results: models.CronCounters{
			Checked:   result.Checked,
			Conflicts: result.Conflicts,
			Errors:    result.Errors,
			Cleared:   result.Cleared,
		},
	})
}

// SweepState handles GET /api/sweep/state
func (h *Handler) SweepState(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.SweepState(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// DashboardStats handles GET /api/dashboard/stats
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.DashboardStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// WeatherAlerts handles GET /api/weather/alerts
func (h *Handler) WeatherAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.WeatherAlerts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
