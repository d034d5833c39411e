package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/handlers"
)

// Options carries the collaborators the router mounts besides the handlers
type Options struct {
	CronSecret string
	// WebSocket serves /api/events/ws when set
	WebSocket http.HandlerFunc
	// Gatherer backs /metrics; the default registry is used when nil
	Gatherer prometheus.Gatherer
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, opts Options) *mux.Router {
	r := mux.NewRouter()

	// CORS middleware
	r.Use(corsMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Bookings
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings", h.ListBookings).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/status", h.TransitionStatus).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/reschedule", h.Reschedule).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/weather-checks", h.ListWeatherChecks).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/events", h.ListEvents).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/reschedule-options", h.ListRescheduleOptions).Methods(http.MethodGet, http.MethodOptions)

	// Recommendations
	api.HandleFunc("/reschedule/generate", h.GenerateOptions).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reschedule/options/{id}/select", h.SelectOption).Methods(http.MethodPost, http.MethodOptions)

	// Weather sweep
	api.Handle("/cron/weather-check", postOnly(cronAuth(opts.CronSecret, http.HandlerFunc(h.TriggerWeatherSweep))))
	api.HandleFunc("/sweep/state", h.SweepState).Methods(http.MethodGet, http.MethodOptions)

	// Dashboard
	api.HandleFunc("/dashboard/stats", h.DashboardStats).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/weather/alerts", h.WeatherAlerts).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket for real-time updates
	if opts.WebSocket != nil {
		api.HandleFunc("/events/ws", opts.WebSocket)
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
