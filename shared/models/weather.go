package models

import (
	"time"

	"github.com/google/uuid"
)

// WeatherSnapshot is an immutable weather observation for a location
type WeatherSnapshot struct {
	LocationID      uuid.UUID `json:"locationId" bson:"locationId"`
	ObservedAt      time.Time `json:"observedAt" bson:"observedAt"`
	VisibilityMiles float64   `json:"visibility" bson:"visibilityMiles"`
	CeilingFeet     *float64  `json:"ceiling" bson:"ceilingFeet,omitempty"`
	WindSpeedKnots  float64   `json:"windSpeed" bson:"windSpeedKnots"`
	WindGustKnots   *float64  `json:"windGust" bson:"windGustKnots,omitempty"`
	Conditions      []string  `json:"conditions" bson:"conditions"`
	TemperatureF    float64   `json:"temperature" bson:"temperatureF"`
	DewPointF       float64   `json:"dewPoint" bson:"dewPointF"`
	PressureHPa     float64   `json:"pressure" bson:"pressureHPa"`
	HumidityPct     float64   `json:"humidity" bson:"humidityPct"`
	// Placeholder marks a snapshot that was not observed or forecast
	Placeholder bool `json:"placeholder,omitempty" bson:"placeholder,omitempty"`
}

// Severity classifies how far conditions are outside minimums
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMarginal Severity = "marginal"
)

// SafetyResult is the verdict of evaluating a snapshot against minimums
type SafetyResult struct {
	IsSafe           bool     `json:"isSafe"`
	ViolatedMinimums []string `json:"violatedMinimums"`
	Severity         Severity `json:"severity"`
}

// WeatherCheck is the audit record written for every evaluation
type WeatherCheck struct {
	ID               uuid.UUID       `json:"id" bson:"_id"`
	BookingID        uuid.UUID       `json:"bookingId" bson:"bookingId"`
	LocationID       uuid.UUID       `json:"locationId" bson:"locationId"`
	CheckTime        time.Time       `json:"checkTime" bson:"checkTime"`
	ForecastTime     time.Time       `json:"forecastTime" bson:"forecastTime"`
	TrainingLevel    TrainingLevel   `json:"trainingLevel" bson:"trainingLevel"`
	Snapshot         WeatherSnapshot `json:"snapshot" bson:"snapshot"`
	IsSafe           bool            `json:"isSafe" bson:"isSafe"`
	ViolatedMinimums []string        `json:"violatedMinimums" bson:"violatedMinimums"`
	Severity         Severity        `json:"severity" bson:"severity"`
}

// WeatherAlert is a booking on weather hold with the conflict that put it there
type WeatherAlert struct {
	Booking       Booking      `json:"booking"`
	ConflictEvent *DomainEvent `json:"conflictEvent,omitempty"`
}
