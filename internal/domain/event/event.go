package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and subscribers
const (
	KeyAction    = "action"
	KeyActorID   = "actor_id"
	KeyActorRole = "actor_role"
	KeyStatus    = "status"
	KeyStep      = "step"
	KeyRole      = "approver_role"
	KeyType      = "workflow_type"
	KeyPriority  = "priority"
	KeyVersion   = "version"
	KeyOverdue   = "overdue_hours"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	WorkflowID    string                 `json:"workflow_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, workflowID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return NewEventWithCorrelation(eventType, workflowID, payload, id, id)
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, workflowID string, payload map[string]interface{}, id, correlationID string) *Event {
	if id == "" {
		id = uuid.NewString()
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            id,
		Type:          eventType,
		WorkflowID:    workflowID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	switch v := e.Payload[key].(type) {
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	switch v := e.Payload[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0.0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	b, _ := e.Payload[key].(bool)
	return b
}
