package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and subscribers
const (
	KeyActorID         = "actor_id"
	KeyRole            = "role"
	KeyAction          = "action"
	KeyComment         = "comment"
	KeyPreviousStatus  = "previous_status"
	KeyNewStatus       = "new_status"
	KeyPreviousOverall = "previous_overall"
	KeyOverallStatus   = "overall_status"
	KeyCollectionID    = "collection_id"
	KeyCount           = "count"
)

// Event is a domain event about one approvable entity
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	EntityID      string                 `json:"entity_id"`
	EntityKind    string                 `json:"entity_kind"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a domain event with a fresh ID and timestamp
func NewEvent(eventType Type, entityID, entityKind string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, entityID, entityKind, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, entityID, entityKind string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		EntityID:      entityID,
		EntityKind:    entityKind,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// Derive creates a follow-up event sharing this event's correlation ID and payload
func (e *Event) Derive(eventType Type) *Event {
	payload := make(map[string]interface{}, len(e.Payload))
	for k, v := range e.Payload {
		payload[k] = v
	}
	return NewEventWithCorrelation(eventType, e.EntityID, e.EntityKind, payload, e.CorrelationID)
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
