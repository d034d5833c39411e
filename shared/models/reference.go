package models

import (
	"time"

	"github.com/google/uuid"
)

// TrainingLevel is a pilot's certification stage
type TrainingLevel string

const (
	TrainingLevelStudent    TrainingLevel = "STUDENT"
	TrainingLevelPrivate    TrainingLevel = "PRIVATE"
	TrainingLevelInstrument TrainingLevel = "INSTRUMENT"
)

// Student represents a pilot in training
type Student struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone,omitempty"`
	TrainingLevel TrainingLevel `json:"trainingLevel"`
}

// Instructor represents a flight instructor
type Instructor struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	CalendarID string    `json:"calendarId,omitempty"`
}

// Aircraft represents a training aircraft
type Aircraft struct {
	ID           uuid.UUID `json:"id"`
	Registration string    `json:"registration"`
	Model        string    `json:"model"`
}

// Location represents an airfield
type Location struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timezone  string    `json:"timezone"`
}

// TimeWindow is a half-open interval [Start, End)
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
