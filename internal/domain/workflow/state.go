package workflow

import "github.com/garyjia/travel-approval/internal/domain/entity"

// State represents a workflow status in the approval lifecycle
type State string

const (
	StatePending          State = State(entity.StatusPending)
	StateApproved         State = State(entity.StatusApproved)
	StateRejected         State = State(entity.StatusRejected)
	StateEscalated        State = State(entity.StatusEscalated)
	StateChangesRequested State = State(entity.StatusChangesRequested)
	StateCompleted        State = State(entity.StatusCompleted)
)

var validStates = map[State]bool{
	StatePending:          true,
	StateApproved:         true,
	StateRejected:         true,
	StateEscalated:        true,
	StateChangesRequested: true,
	StateCompleted:        true,
}

var terminalStates = map[State]bool{
	StateRejected:  true,
	StateCompleted: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// Status converts the state back to the entity status
func (s State) Status() entity.Status {
	return entity.Status(s)
}
