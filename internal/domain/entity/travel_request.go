package entity

import "time"

// CostEstimate breaks a trip's cost down along the policy dimensions
type CostEstimate struct {
	FlightClass      FlightClass `json:"flight_class,omitempty" validate:"omitempty,oneof=ECONOMY PREMIUM_ECONOMY BUSINESS FIRST"`
	FlightCost       float64     `json:"flight_cost" validate:"gte=0"`
	HotelNightlyRate float64     `json:"hotel_nightly_rate" validate:"gte=0"`
	DailyAllowance   float64     `json:"daily_allowance" validate:"gte=0"`
}

// TravelRequest is the employee-authored request a workflow is bound to
type TravelRequest struct {
	ID              string        `json:"id"`
	RequesterID     string        `json:"requester_id" validate:"required"`
	RequesterName   string        `json:"requester_name"`
	Grade           string        `json:"grade" validate:"required"`
	Department      string        `json:"department"`
	Origin          string        `json:"origin"`
	Destination     string        `json:"destination" validate:"required"`
	DepartureDate   time.Time     `json:"departure_date" validate:"required"`
	ReturnDate      time.Time     `json:"return_date" validate:"required,gtefield=DepartureDate"`
	Purpose         string        `json:"purpose" validate:"required"`
	EstimatedBudget float64       `json:"estimated_budget" validate:"gte=0"`
	ActualCost      *float64      `json:"actual_cost,omitempty" validate:"omitempty,gte=0"`
	Currency        string        `json:"currency"`
	ManagerPresent  bool          `json:"manager_present"`
	Estimate        CostEstimate  `json:"estimate"`
	Status          RequestStatus `json:"status"`
	WorkflowID      string        `json:"workflow_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Nights returns the number of hotel nights the trip spans
func (r *TravelRequest) Nights() int {
	days := int(r.ReturnDate.Sub(r.DepartureDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Days returns the number of per-diem days, counting both travel days
func (r *TravelRequest) Days() int {
	return r.Nights() + 1
}

// EffectiveCost returns the amount policy is evaluated against. Post-travel
// claims with a recorded actual cost are judged on what was spent.
func (r *TravelRequest) EffectiveCost(wfType WorkflowType) float64 {
	if wfType == WorkflowPostTravel && r.ActualCost != nil {
		return *r.ActualCost
	}
	return r.EstimatedBudget
}

// IsEditableBy reports whether actorID may change the request
func (r *TravelRequest) IsEditableBy(actorID string) bool {
	return r.Status == RequestStatusDraft && r.RequesterID == actorID
}
