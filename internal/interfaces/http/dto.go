package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/sla"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CostEstimatePayload is the cost breakdown of a travel request
type CostEstimatePayload struct {
	FlightClass      string  `json:"flightClass"`
	FlightCost       float64 `json:"flightCost"`
	HotelNightlyRate float64 `json:"hotelNightlyRate"`
	DailyAllowance   float64 `json:"dailyAllowance"`
}

// TravelRequestPayload is a travel request as sent and returned by the API
type TravelRequestPayload struct {
	ID              string              `json:"id,omitempty"`
	RequesterID     string              `json:"requesterId" binding:"required"`
	RequesterName   string              `json:"requesterName"`
	Grade           string              `json:"grade" binding:"required"`
	Department      string              `json:"department"`
	Origin          string              `json:"origin"`
	Destination     string              `json:"destination"`
	DepartureDate   time.Time           `json:"departureDate"`
	ReturnDate      time.Time           `json:"returnDate"`
	Purpose         string              `json:"purpose"`
	EstimatedBudget float64             `json:"estimatedBudget"`
	ActualCost      *float64            `json:"actualCost,omitempty"`
	Currency        string              `json:"currency"`
	ManagerPresent  bool                `json:"managerPresent"`
	Estimate        CostEstimatePayload `json:"estimate"`
	Status          string              `json:"status,omitempty"`
	WorkflowID      string              `json:"workflowId,omitempty"`
	CreatedAt       *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time          `json:"updatedAt,omitempty"`
}

// SubmitWorkflowRequest starts a workflow for an inline or stored travel request
type SubmitWorkflowRequest struct {
	WorkflowType    string                `json:"workflowType" binding:"required"`
	TravelRequestID string                `json:"travelRequestId"`
	RequesterID     string                `json:"requesterId"`
	TravelRequest   *TravelRequestPayload `json:"travelRequest"`
}

// ActionRequest is an approver decision. Version may instead come from If-Match.
type ActionRequest struct {
	Action           string   `json:"action" binding:"required"`
	ApproverRole     string   `json:"approverRole" binding:"required"`
	ApproverID       string   `json:"approverId" binding:"required"`
	ApproverName     string   `json:"approverName"`
	Comments         string   `json:"comments"`
	Version          *int64   `json:"version"`
	AmountApproved   *float64 `json:"amountApproved"`
	MarkOverpriced   bool     `json:"markOverpriced"`
	OverpricedReason string   `json:"overpricedReason"`
}

// ResubmitRequest sends a request that was sent back into review again
type ResubmitRequest struct {
	RequesterID   string `json:"requesterId" binding:"required"`
	RequesterName string `json:"requesterName"`
	Version       *int64 `json:"version"`
	Comments      string `json:"comments"`
}

// ListWorkflowsRequest represents query parameters for listing workflows
type ListWorkflowsRequest struct {
	Role        string `form:"role"`
	Status      string `form:"status"`
	RequesterID string `form:"requesterId"`
	OpenOnly    bool   `form:"openOnly"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// SLAResponse is the SLA picture of the active stage
type SLAResponse struct {
	DueDate          string `json:"dueDate"`
	Status           string `json:"status"`
	RemainingSeconds int64  `json:"remainingSeconds"`
}

// WorkflowResponse represents a workflow instance in API responses
type WorkflowResponse struct {
	WorkflowID          string       `json:"workflowId"`
	TravelRequestID     string       `json:"travelRequestId"`
	RequesterID         string       `json:"requesterId"`
	WorkflowType        string       `json:"workflowType"`
	Status              string       `json:"status"`
	CurrentStep         string       `json:"currentStep"`
	PreviousStep        string       `json:"previousStep,omitempty"`
	NextStep            string       `json:"nextStep,omitempty"`
	CurrentApproverRole string       `json:"currentApproverRole,omitempty"`
	Priority            string       `json:"priority"`
	DueDate             *string      `json:"dueDate,omitempty"`
	IsOverpriced        bool         `json:"isOverpriced"`
	OverpricedReason    string       `json:"overpricedReason,omitempty"`
	ApprovedAmount      *float64     `json:"amountApproved,omitempty"`
	Cycle               int          `json:"cycle"`
	Version             int64        `json:"version"`
	CreatedAt           string       `json:"createdAt"`
	UpdatedAt           string       `json:"updatedAt"`
	ClosedAt            *string      `json:"closedAt,omitempty"`
	SLA                 *SLAResponse `json:"sla,omitempty"`
}

// AuditEntryResponse represents one audit entry in API responses
type AuditEntryResponse struct {
	Sequence   int64  `json:"sequence"`
	ActorID    string `json:"actorId"`
	ActorName  string `json:"actorName,omitempty"`
	ActorRole  string `json:"actorRole"`
	Action     string `json:"action"`
	Remark     string `json:"remark,omitempty"`
	FromStatus string `json:"fromStatus"`
	FromStep   string `json:"fromStep"`
	Status     string `json:"status"`
	Step       string `json:"step"`
	Version    int64  `json:"version"`
	Timestamp  string `json:"timestamp"`
}

// WorkflowDetailResponse is a workflow with its audit trail
type WorkflowDetailResponse struct {
	WorkflowResponse
	AuditEntries   []AuditEntryResponse `json:"auditEntries"`
	AllowedActions []string             `json:"allowedActions"`
}

// PolicyResponse represents the limits of one grade
type PolicyResponse struct {
	Grade            string  `json:"grade"`
	FlightClass      string  `json:"flightClass"`
	HotelCapPerNight float64 `json:"hotelCapPerNight"`
	PerDiem          float64 `json:"perDiem"`
	TripBudgetCap    float64 `json:"tripBudgetCap"`
	Currency         string  `json:"currency"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseAction accepts APPROVE, approve, request-changes and requestChanges alike
func parseAction(s string) entity.Action {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	if norm == "REQUESTCHANGES" {
		return entity.ActionRequestChanges
	}
	return entity.Action(norm)
}

func parseRole(s string) (entity.Role, error) {
	role := entity.Role(strings.ToUpper(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

func (p *TravelRequestPayload) toEntity() *entity.TravelRequest {
	return &entity.TravelRequest{
		ID:              p.ID,
		RequesterID:     p.RequesterID,
		RequesterName:   p.RequesterName,
		Grade:           p.Grade,
		Department:      p.Department,
		Origin:          p.Origin,
		Destination:     p.Destination,
		DepartureDate:   p.DepartureDate,
		ReturnDate:      p.ReturnDate,
		Purpose:         p.Purpose,
		EstimatedBudget: p.EstimatedBudget,
		ActualCost:      p.ActualCost,
		Currency:        p.Currency,
		ManagerPresent:  p.ManagerPresent,
		Estimate: entity.CostEstimate{
			FlightClass:      entity.FlightClass(strings.ToUpper(p.Estimate.FlightClass)),
			FlightCost:       p.Estimate.FlightCost,
			HotelNightlyRate: p.Estimate.HotelNightlyRate,
			DailyAllowance:   p.Estimate.DailyAllowance,
		},
	}
}

func toTravelRequestPayload(r *entity.TravelRequest) TravelRequestPayload {
	created, updated := r.CreatedAt, r.UpdatedAt
	return TravelRequestPayload{
		ID:              r.ID,
		RequesterID:     r.RequesterID,
		RequesterName:   r.RequesterName,
		Grade:           r.Grade,
		Department:      r.Department,
		Origin:          r.Origin,
		Destination:     r.Destination,
		DepartureDate:   r.DepartureDate,
		ReturnDate:      r.ReturnDate,
		Purpose:         r.Purpose,
		EstimatedBudget: r.EstimatedBudget,
		ActualCost:      r.ActualCost,
		Currency:        r.Currency,
		ManagerPresent:  r.ManagerPresent,
		Estimate: CostEstimatePayload{
			FlightClass:      string(r.Estimate.FlightClass),
			FlightCost:       r.Estimate.FlightCost,
			HotelNightlyRate: r.Estimate.HotelNightlyRate,
			DailyAllowance:   r.Estimate.DailyAllowance,
		},
		Status:     string(r.Status),
		WorkflowID: r.WorkflowID,
		CreatedAt:  &created,
		UpdatedAt:  &updated,
	}
}

func toWorkflowResponse(inst *entity.WorkflowInstance, view *sla.View) WorkflowResponse {
	resp := WorkflowResponse{
		WorkflowID:          inst.WorkflowID,
		TravelRequestID:     inst.TravelRequestID,
		RequesterID:         inst.RequesterID,
		WorkflowType:        string(inst.WorkflowType),
		Status:              string(inst.Status),
		CurrentStep:         string(inst.CurrentStep),
		PreviousStep:        string(inst.PreviousStep),
		NextStep:            string(inst.NextStep),
		CurrentApproverRole: string(inst.CurrentApproverRole),
		Priority:            string(inst.Priority),
		DueDate:             formatTimePtr(inst.DueDate),
		IsOverpriced:        inst.IsOverpriced,
		OverpricedReason:    inst.OverpricedReason,
		ApprovedAmount:      inst.ApprovedAmount,
		Cycle:               inst.Cycle,
		Version:             inst.Version,
		CreatedAt:           formatTime(inst.CreatedAt),
		UpdatedAt:           formatTime(inst.UpdatedAt),
		ClosedAt:            formatTimePtr(inst.ClosedAt),
	}
	if view != nil {
		resp.SLA = &SLAResponse{
			DueDate:          formatTime(view.DueDate),
			Status:           string(view.Status),
			RemainingSeconds: int64(view.Remaining.Seconds()),
		}
	}
	return resp
}

func toSummaryResponse(s *service.WorkflowSummary) WorkflowResponse {
	return toWorkflowResponse(s.WorkflowInstance, s.SLA)
}

func toAuditEntryResponses(entries []*entity.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			Sequence:   e.Sequence,
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			ActorRole:  string(e.ActorRole),
			Action:     string(e.Action),
			Remark:     e.Remark,
			FromStatus: string(e.FromStatus),
			FromStep:   string(e.FromStep),
			Status:     string(e.Status),
			Step:       string(e.Step),
			Version:    e.Version,
			Timestamp:  formatTime(e.Timestamp),
		})
	}
	return out
}

func toPolicyResponse(l entity.PolicyLimit, currency string) PolicyResponse {
	return PolicyResponse{
		Grade:            l.Grade,
		FlightClass:      string(l.FlightClass),
		HotelCapPerNight: l.HotelCapPerNight,
		PerDiem:          l.PerDiem,
		TripBudgetCap:    l.TripBudgetCap,
		Currency:         currency,
	}
}

func toActionNames(actions []entity.Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, string(a))
	}
	return out
}
