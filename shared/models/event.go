package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType tags a domain event variant
type EventType string

const (
	EventBookingCreated             EventType = "BookingCreated"
	EventBookingStatusChanged       EventType = "BookingStatusChanged"
	EventWeatherConflictDetected    EventType = "WeatherConflictDetected"
	EventBookingRescheduled         EventType = "BookingRescheduled"
	EventRescheduleOptionsGenerated EventType = "RescheduleOptionsGenerated"
)

const AggregateBooking = "booking"

// EventPayload is implemented only by the payload types in this package
type EventPayload interface {
	EventType() EventType
	eventPayload()
}

type BookingCreatedPayload struct {
	BookingID         uuid.UUID     `json:"bookingId"`
	StudentID         uuid.UUID     `json:"studentId"`
	InstructorID      uuid.UUID     `json:"instructorId"`
	AircraftID        uuid.UUID     `json:"aircraftId"`
	ScheduledTime     time.Time     `json:"scheduledTime"`
	DurationMinutes   int           `json:"durationMinutes"`
	Status            BookingStatus `json:"status"`
	OriginalBookingID *uuid.UUID    `json:"originalBookingId,omitempty"`
}

type BookingStatusChangedPayload struct {
	BookingID uuid.UUID     `json:"bookingId"`
	OldStatus BookingStatus `json:"oldStatus"`
	NewStatus BookingStatus `json:"newStatus"`
	Reason    string        `json:"reason"`
}

type WeatherConflictDetectedPayload struct {
	BookingID        uuid.UUID       `json:"bookingId"`
	LocationID       uuid.UUID       `json:"locationId"`
	ScheduledTime    time.Time       `json:"scheduledTime"`
	TrainingLevel    TrainingLevel   `json:"trainingLevel"`
	Snapshot         WeatherSnapshot `json:"weatherData"`
	ViolatedMinimums []string        `json:"violatedMinimums"`
	Severity         Severity        `json:"severity"`
}

type BookingRescheduledPayload struct {
	OriginalBookingID uuid.UUID `json:"originalBookingId"`
	NewBookingID      uuid.UUID `json:"newBookingId"`
	OldTime           time.Time `json:"oldTime"`
	NewTime           time.Time `json:"newTime"`
}

type RescheduleOptionsGeneratedPayload struct {
	BookingID       uuid.UUID   `json:"bookingId"`
	ConflictEventID uuid.UUID   `json:"conflictEventId"`
	OptionIDs       []uuid.UUID `json:"optionIds"`
	FallbackUsed    bool        `json:"fallbackUsed"`
}

func (BookingCreatedPayload) EventType() EventType       { return EventBookingCreated }
func (BookingStatusChangedPayload) EventType() EventType { return EventBookingStatusChanged }
func (WeatherConflictDetectedPayload) EventType() EventType {
	return EventWeatherConflictDetected
}
func (BookingRescheduledPayload) EventType() EventType { return EventBookingRescheduled }
func (RescheduleOptionsGeneratedPayload) EventType() EventType {
	return EventRescheduleOptionsGenerated
}

func (BookingCreatedPayload) eventPayload()             {}
func (BookingStatusChangedPayload) eventPayload()       {}
func (WeatherConflictDetectedPayload) eventPayload()    {}
func (BookingRescheduledPayload) eventPayload()         {}
func (RescheduleOptionsGeneratedPayload) eventPayload() {}

// DomainEvent is an immutable, append-only record of something that happened to an aggregate
type DomainEvent struct {
	ID            uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	Payload       EventPayload
	OccurredAt    time.Time
	PublishedAt   *time.Time
}

// NewEvent stamps a payload with a fresh id and the given time
func NewEvent(aggregateID uuid.UUID, payload EventPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:            uuid.New(),
		AggregateID:   aggregateID,
		AggregateType: AggregateBooking,
		Payload:       payload,
		OccurredAt:    at,
	}
}

// Type returns the variant tag, or "" for an empty event
func (e DomainEvent) Type() EventType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EventType()
}

type eventJSON struct {
	ID            uuid.UUID       `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   uuid.UUID       `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
	PublishedAt   *time.Time      `json:"publishedAt,omitempty"`
}

func (e DomainEvent) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %s has no payload", e.ID)
	}
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type(), err)
	}
	return json.Marshal(eventJSON{
		ID:            e.ID,
		Type:          e.Type(),
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Payload:       raw,
		OccurredAt:    e.OccurredAt,
		PublishedAt:   e.PublishedAt,
	})
}

func (e *DomainEvent) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := DecodePayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	*e = DomainEvent{
		ID:            raw.ID,
		AggregateID:   raw.AggregateID,
		AggregateType: raw.AggregateType,
		Payload:       payload,
		OccurredAt:    raw.OccurredAt,
		PublishedAt:   raw.PublishedAt,
	}
	return nil
}

// DecodePayload parses a stored payload according to its type tag
func DecodePayload(t EventType, data []byte) (EventPayload, error) {
	var p EventPayload
	switch t {
	case EventBookingCreated:
		var v BookingCreatedPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		p = v
	case EventBookingStatusChanged:
		var v BookingStatusChangedPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		p = v
	case EventWeatherConflictDetected:
		var v WeatherConflictDetectedPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		p = v
	case EventBookingRescheduled:
		var v BookingRescheduledPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		p = v
	case EventRescheduleOptionsGenerated:
		var v RescheduleOptionsGeneratedPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
	return p, nil
}
