package workflow

// State is the status of one reviewer seat on one entity
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// IsTerminal always returns false: a reviewer may revise any prior decision.
// Rejection dominance lives in the aggregate, not in the seat.
func (s State) IsTerminal() bool {
	return false
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid seat state
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected:
		return true
	}
	return false
}
