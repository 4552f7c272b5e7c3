package event

// Type identifies the type of domain event
type Type string

const (
	TypeEntityCreated    Type = "entity.created"
	TypeDecisionRecorded Type = "decision.recorded"
	TypeEntityApproved   Type = "entity.approved"
	TypeEntityRejected   Type = "entity.rejected"
	TypeEntityReopened   Type = "entity.reopened"
	TypeLettersDeleted   Type = "letters.deleted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeEntityCreated,
		TypeDecisionRecorded,
		TypeEntityApproved,
		TypeEntityRejected,
		TypeEntityReopened,
		TypeLettersDeleted:
		return true
	default:
		return false
	}
}
