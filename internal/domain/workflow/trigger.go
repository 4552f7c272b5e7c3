package workflow

// Trigger is a reviewer action that moves a seat between states
type Trigger string

const (
	TriggerApprove Trigger = "approve"
	TriggerReject  Trigger = "reject"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
