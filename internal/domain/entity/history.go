package entity

import "time"

// DecisionHistory is one entry of an entity's audit trail
type DecisionHistory struct {
	ID             string         `json:"id"`
	EntityID       string         `json:"entity_id"`
	ActorID        string         `json:"actor_id"`
	Role           RoleKey        `json:"role,omitempty"`
	ActionType     string         `json:"action_type"`
	PreviousStatus DecisionStatus `json:"previous_status,omitempty"`
	NewStatus      DecisionStatus `json:"new_status"`
	OverallStatus  DecisionStatus `json:"overall_status"`
	Comment        string         `json:"comment,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
