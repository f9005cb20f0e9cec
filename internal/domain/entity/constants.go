package entity

// Status is the lifecycle status of a WorkflowInstance
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusApproved         Status = "APPROVED"
	StatusRejected         Status = "REJECTED"
	StatusEscalated        Status = "ESCALATED"
	StatusChangesRequested Status = "CHANGES_REQUESTED"
	StatusCompleted        Status = "COMPLETED"
)

// IsTerminal reports whether no further action is accepted in this status
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// IsValid reports whether s is a known workflow status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected,
		StatusEscalated, StatusChangesRequested, StatusCompleted:
		return true
	}
	return false
}

// WorkflowType selects the stage graph a request is routed through
type WorkflowType string

const (
	WorkflowPreTravel  WorkflowType = "PRE_TRAVEL"
	WorkflowPostTravel WorkflowType = "POST_TRAVEL"
	WorkflowEmergency  WorkflowType = "EMERGENCY"
)

// IsValid reports whether t is a known workflow type
func (t WorkflowType) IsValid() bool {
	switch t {
	case WorkflowPreTravel, WorkflowPostTravel, WorkflowEmergency:
		return true
	}
	return false
}

// Role is one of the closed set of actor roles
type Role string

const (
	RoleEmployee          Role = "EMPLOYEE"
	RoleManager           Role = "MANAGER"
	RoleDepartmentHead    Role = "DEPARTMENT_HEAD"
	RoleHR                Role = "HR"
	RoleHRHead            Role = "HR_HEAD"
	RoleTravelDesk        Role = "TRAVEL_DESK"
	RoleTravelDeskLead    Role = "TRAVEL_DESK_LEAD"
	RoleFinance           Role = "FINANCE"
	RoleFinanceController Role = "FINANCE_CONTROLLER"
	RoleSuperAdmin        Role = "SUPER_ADMIN"
)

var validRoles = map[Role]bool{
	RoleEmployee:          true,
	RoleManager:           true,
	RoleDepartmentHead:    true,
	RoleHR:                true,
	RoleHRHead:            true,
	RoleTravelDesk:        true,
	RoleTravelDeskLead:    true,
	RoleFinance:           true,
	RoleFinanceController: true,
	RoleSuperAdmin:        true,
}

// IsValid reports whether r belongs to the closed role set
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Step names an approval stage within a workflow graph
type Step string

const (
	StepDraft                  Step = "DRAFT"
	StepManagerApproval        Step = "MANAGER_APPROVAL"
	StepHRCompliance           Step = "HR_COMPLIANCE"
	StepTravelDeskCheck        Step = "TRAVEL_DESK_CHECK"
	StepTravelDeskBooking      Step = "TRAVEL_DESK_BOOKING"
	StepFinanceSettlement      Step = "FINANCE_SETTLEMENT"
	StepExceptionHRReview      Step = "EXCEPTION_HR_REVIEW"
	StepExceptionFinanceReview Step = "EXCEPTION_FINANCE_REVIEW"
	StepClosed                 Step = "CLOSED"
)

// Action is an approver decision applied to a workflow instance
type Action string

const (
	ActionApprove        Action = "APPROVE"
	ActionReject         Action = "REJECT"
	ActionRequestChanges Action = "REQUEST_CHANGES"
	ActionEscalate       Action = "ESCALATE"
	ActionResubmit       Action = "RESUBMIT"
)

// IsValid reports whether a is a known action
func (a Action) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionRequestChanges, ActionEscalate, ActionResubmit:
		return true
	}
	return false
}

// Priority orders the approval queues
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var priorityRank = map[Priority]int{
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// AtLeast returns the higher of p and floor
func (p Priority) AtLeast(floor Priority) Priority {
	if priorityRank[p] < priorityRank[floor] {
		return floor
	}
	return p
}

// RequestStatus tracks whether a travel request is editable
type RequestStatus string

const (
	RequestStatusDraft     RequestStatus = "DRAFT"
	RequestStatusSubmitted RequestStatus = "SUBMITTED"
)

// FlightClass is a cabin class, ordered from lowest to highest
type FlightClass string

const (
	FlightEconomy        FlightClass = "ECONOMY"
	FlightPremiumEconomy FlightClass = "PREMIUM_ECONOMY"
	FlightBusiness       FlightClass = "BUSINESS"
	FlightFirst          FlightClass = "FIRST"
)

var flightRank = map[FlightClass]int{
	FlightEconomy:        1,
	FlightPremiumEconomy: 2,
	FlightBusiness:       3,
	FlightFirst:          4,
}

// Rank returns the class order, 0 for unknown classes
func (c FlightClass) Rank() int {
	return flightRank[c]
}
