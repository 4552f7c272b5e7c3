package entity

// RoleKey identifies one reviewer seat
type RoleKey string

// Reviewer seats known to the portal
const (
	RoleHSHOD    RoleKey = "hs_hod"   // H&S HOD
	RoleCSEHOD   RoleKey = "cse_hod"  // CSE HOD
	RoleCSMHOD   RoleKey = "csm_hod"  // CSM HOD
	RoleCSDHOD   RoleKey = "csd_hod"  // CSD HOD
	RoleECEHOD   RoleKey = "ece_hod"  // ECE HOD
	RoleTPO      RoleKey = "tpo"      // Training & Placement Officer
	RoleDean     RoleKey = "dean"     // Dean
	RoleDirector RoleKey = "director" // Director
)

// String returns the string representation of the role
func (r RoleKey) String() string {
	return string(r)
}

// EntityKind distinguishes the two approvable entity types
type EntityKind string

const (
	KindProfile EntityKind = "profile"
	KindLetter  EntityKind = "letter"
)

// IsValid returns true if the kind is a known entity kind
func (k EntityKind) IsValid() bool {
	return k == KindProfile || k == KindLetter
}

// DecisionStatus is both a reviewer's per-role status and the aggregate verdict
type DecisionStatus string

const (
	StatusPending  DecisionStatus = "pending"
	StatusApproved DecisionStatus = "approved"
	StatusRejected DecisionStatus = "rejected"
)

// String returns the string representation of the status
func (s DecisionStatus) String() string {
	return string(s)
}

// DecisionAction is what a reviewer submits
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// IsValid returns true if the action is approve or reject
func (a DecisionAction) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}

// ResultStatus maps an action to the per-role status it produces
func (a DecisionAction) ResultStatus() DecisionStatus {
	if a == ActionReject {
		return StatusRejected
	}
	return StatusApproved
}

// History action types
const (
	HistoryActionCreate   = "CREATE"
	HistoryActionDecision = "DECISION"
)
