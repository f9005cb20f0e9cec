package entity

import "time"

// WorkflowInstance is the live approval state bound to one travel request
type WorkflowInstance struct {
	WorkflowID          string       `json:"workflow_id"`
	TravelRequestID     string       `json:"travel_request_id"`
	RequesterID         string       `json:"requester_id"`
	WorkflowType        WorkflowType `json:"workflow_type"`
	Status              Status       `json:"status"`
	CurrentStep         Step         `json:"current_step"`
	PreviousStep        Step         `json:"previous_step,omitempty"`
	NextStep            Step         `json:"next_step,omitempty"`
	CurrentApproverRole Role         `json:"current_approver_role,omitempty"`
	Priority            Priority     `json:"priority"`
	StageEnteredAt      time.Time    `json:"stage_entered_at"`
	DueDate             *time.Time   `json:"due_date,omitempty"`
	SLAWindowHours      int          `json:"sla_window_hours"`
	IsOverpriced        bool         `json:"is_overpriced"`
	OverpricedReason    string       `json:"overpriced_reason,omitempty"`
	// ResumeStep is where the normal sequence continues once the exception
	// sub-flow finishes. Empty means the workflow completes after it.
	ResumeStep     Step       `json:"resume_step,omitempty"`
	ApprovedAmount *float64   `json:"approved_amount,omitempty"`
	Cycle          int        `json:"cycle"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// Clone returns a deep copy so callers can mutate without sharing state
func (w *WorkflowInstance) Clone() *WorkflowInstance {
	if w == nil {
		return nil
	}
	c := *w
	if w.DueDate != nil {
		d := *w.DueDate
		c.DueDate = &d
	}
	if w.ApprovedAmount != nil {
		a := *w.ApprovedAmount
		c.ApprovedAmount = &a
	}
	if w.ClosedAt != nil {
		t := *w.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

// InstanceFilter narrows instance listings
type InstanceFilter struct {
	Role        Role
	Status      Status
	RequesterID string
	// OpenOnly excludes REJECTED and COMPLETED instances
	OpenOnly bool
	Limit    int
	Offset   int
}
