package models

import (
	"time"

	"github.com/google/uuid"
)

// RescheduleOption is a candidate replacement time for a weather-affected booking
type RescheduleOption struct {
	ID                uuid.UUID       `json:"id"`
	ConflictEventID   uuid.UUID       `json:"conflictEventId"`
	OriginalBookingID uuid.UUID       `json:"originalBookingId"`
	ProposedTime      time.Time       `json:"proposedTime"`
	WeatherForecast   WeatherSnapshot `json:"weatherForecast"`
	Score             float64         `json:"score"`
	Reasoning         string          `json:"reasoning"`
	Status            OptionStatus    `json:"status"`
	Source            OptionSource    `json:"source"`
	CreatedAt         time.Time       `json:"createdAt"`
}

type OptionStatus string

const (
	OptionStatusPending  OptionStatus = "pending"
	OptionStatusSelected OptionStatus = "selected"
	OptionStatusRejected OptionStatus = "rejected"
)

// OptionSource records which generation path produced an option
type OptionSource string

const (
	OptionSourceGenerated OptionSource = "generated"
	OptionSourceFallback  OptionSource = "fallback"
)

// GenerateOptionsRequest asks for reschedule options for a booking
type GenerateOptionsRequest struct {
	BookingID      string `json:"bookingId"`
	WeatherAlertID string `json:"weatherAlertId,omitempty"`
}

// GenerateOptionsResponse is returned by the on-demand recommendation endpoint
type GenerateOptionsResponse struct {
	Success bool               `json:"success"`
	Options []RescheduleOption `json:"options"`
}

// SelectOptionResponse is returned once an option drives a reschedule
type SelectOptionResponse struct {
	Option     *RescheduleOption `json:"option"`
	Reschedule *RescheduleResult `json:"reschedule"`
}
