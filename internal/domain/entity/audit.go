package entity

import "time"

// AuditEntry is the immutable record of one accepted workflow transition
type AuditEntry struct {
	WorkflowID string    `json:"workflow_id"`
	Sequence   int64     `json:"sequence"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name,omitempty"`
	ActorRole  Role      `json:"actor_role"`
	Action     Action    `json:"action"`
	Remark     string    `json:"remark,omitempty"`
	FromStatus Status    `json:"from_status"`
	FromStep   Step      `json:"from_step"`
	Status     Status    `json:"status"`
	Step       Step      `json:"step"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

// PolicyLimit holds the travel caps for one employee grade
type PolicyLimit struct {
	Grade            string      `json:"grade" mapstructure:"grade"`
	FlightClass      FlightClass `json:"flight_class" mapstructure:"flight_class"`
	HotelCapPerNight float64     `json:"hotel_cap_per_night" mapstructure:"hotel_cap_per_night"`
	PerDiem          float64     `json:"per_diem" mapstructure:"per_diem"`
	TripBudgetCap    float64     `json:"trip_budget_cap" mapstructure:"trip_budget_cap"`
}
