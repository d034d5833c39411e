package models

import "time"

// SweepWorkflowInput represents input for the weather sweep workflow
type SweepWorkflowInput struct {
	HorizonHours int  `json:"horizonHours"`
	Concurrency  int  `json:"concurrency"`
	RecheckHolds bool `json:"recheckHolds"`
}

// SweepWorkflowState represents the progress of a running sweep
type SweepWorkflowState struct {
	Phase       string    `json:"phase"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	Checked     int       `json:"checked"`
	Conflicts   int       `json:"conflicts"`
	Errors      int       `json:"errors"`
	Cleared     int       `json:"cleared"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Queries for workflow state
const (
	QueryGetState = "get_state"
)

// Temporal names shared by the worker and the API server
const (
	SweepWorkflowName   = "WeatherSweepWorkflow"
	SweepCronWorkflowID = "weather-sweep-cron"
	ActivityListDue     = "ListDueBookings"
	ActivityCheck       = "CheckBooking"
)

// Sweep workflow phases
const (
	SweepPhaseListing  = "listing"
	SweepPhaseChecking = "checking"
	SweepPhaseDone     = "done"
)

// SweepResult holds the counters of a completed sweep
type SweepResult struct {
	Checked   int       `json:"checked"`
	Conflicts int       `json:"conflicts"`
	Errors    int       `json:"errors"`
	Cleared   int       `json:"cleared"`
	StartedAt time.Time `json:"startedAt"`
	Timestamp time.Time `json:"timestamp"`
}

// Add folds a single booking outcome into the counters
func (r *SweepResult) Add(o CheckOutcome) {
	r.Checked++
	if o.Conflict {
		r.Conflicts++
	}
	if o.Cleared {
		r.Cleared++
	}
}

// ListDueResult is returned by the activity that selects bookings to check
type ListDueResult struct {
	Bookings []Booking `json:"bookings"`
}

// CheckOutcome describes what happened to one booking during a sweep
type CheckOutcome struct {
	BookingID     string   `json:"bookingId"`
	IsSafe        bool     `json:"isSafe"`
	Conflict      bool     `json:"conflict"`
	Cleared       bool     `json:"cleared"`
	Severity      Severity `json:"severity,omitempty"`
	ConflictEvent string   `json:"conflictEventId,omitempty"`
}

// CronResponse is the body returned by the sweep trigger endpoint
type CronResponse struct {
	Success   bool         `json:"success"`
	Timestamp time.Time    `json:"timestamp"`
	Results   CronCounters `json:"results"`
}

type CronCounters struct {
	Checked   int `json:"checked"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`
	Cleared   int `json:"cleared"`
}
