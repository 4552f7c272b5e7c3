package entity

import "time"

// DecisionRecord is one reviewer's current decision on an entity.
// A role's slot is overwritten on every decision; there is no per-role history here.
type DecisionRecord struct {
	Status         DecisionStatus `json:"status"`
	Comment        string         `json:"comment,omitempty"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	DeciderActorID string         `json:"decider_actor_id,omitempty"`

	// ApprovedMemberIDs is the subset of letter members this reviewer vouched for.
	// Empty unless Status is approved.
	ApprovedMemberIDs []string `json:"approved_member_ids,omitempty"`
}

// PendingRecord returns the default record for a reviewer that has not decided yet
func PendingRecord() DecisionRecord {
	return DecisionRecord{Status: StatusPending}
}

// ApprovalState holds one DecisionRecord per required reviewer plus the derived aggregate.
// Version is the optimistic-lock counter bumped on every successful write.
type ApprovalState struct {
	Records       map[RoleKey]DecisionRecord `json:"records"`
	OverallStatus DecisionStatus             `json:"overall_status"`
	Version       int64                      `json:"version"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// NewApprovalState creates an all-pending state for the given reviewers
func NewApprovalState(required []RoleKey) ApprovalState {
	records := make(map[RoleKey]DecisionRecord, len(required))
	for _, role := range required {
		records[role] = PendingRecord()
	}
	return ApprovalState{
		Records:       records,
		OverallStatus: Recompute(records, required),
	}
}

// Recompute derives the aggregate status from the full record set.
//
// Any rejected required role makes the aggregate rejected; otherwise it is approved
// only when every required role approved. Records for roles outside required are
// ignored and a missing record counts as pending. An empty required set never
// approves anything.
func Recompute(records map[RoleKey]DecisionRecord, required []RoleKey) DecisionStatus {
	if len(required) == 0 {
		return StatusPending
	}

	allApproved := true
	for _, role := range required {
		rec, ok := records[role]
		if !ok {
			allApproved = false
			continue
		}
		switch rec.Status {
		case StatusRejected:
			return StatusRejected
		case StatusApproved:
		default:
			allApproved = false
		}
	}

	if allApproved {
		return StatusApproved
	}
	return StatusPending
}

// RecordFor returns the record for a role, defaulting to pending
func (s ApprovalState) RecordFor(role RoleKey) DecisionRecord {
	if rec, ok := s.Records[role]; ok {
		return rec
	}
	return PendingRecord()
}

// Apply overwrites the slot for role and recomputes the aggregate from all records
func (s *ApprovalState) Apply(role RoleKey, rec DecisionRecord, required []RoleKey) {
	if s.Records == nil {
		s.Records = make(map[RoleKey]DecisionRecord, len(required))
	}
	s.Records[role] = rec
	s.OverallStatus = Recompute(s.Records, required)
}

// Clone returns a deep copy so callers can mutate without touching the original
func (s ApprovalState) Clone() ApprovalState {
	out := ApprovalState{
		Records:       make(map[RoleKey]DecisionRecord, len(s.Records)),
		OverallStatus: s.OverallStatus,
		Version:       s.Version,
		UpdatedAt:     s.UpdatedAt,
	}
	for role, rec := range s.Records {
		cp := rec
		if rec.DecidedAt != nil {
			t := *rec.DecidedAt
			cp.DecidedAt = &t
		}
		if rec.ApprovedMemberIDs != nil {
			cp.ApprovedMemberIDs = append([]string(nil), rec.ApprovedMemberIDs...)
		}
		out.Records[role] = cp
	}
	return out
}

// RoleStatus is one entry of the ordered per-role projection
type RoleStatus struct {
	Role      RoleKey        `json:"role"`
	Status    DecisionStatus `json:"status"`
	Comment   string         `json:"comment,omitempty"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
}

// PerRoleStatuses projects the records of the required roles in registry order
func (s ApprovalState) PerRoleStatuses(required []RoleKey) []RoleStatus {
	out := make([]RoleStatus, 0, len(required))
	for _, role := range required {
		rec := s.RecordFor(role)
		out = append(out, RoleStatus{
			Role:      role,
			Status:    rec.Status,
			Comment:   rec.Comment,
			DecidedAt: rec.DecidedAt,
		})
	}
	return out
}

// AllApproved reports whether every listed role has an approved record.
// Used for gates whose minimum set is narrower than the entity's required set.
func (s ApprovalState) AllApproved(roles []RoleKey) bool {
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if s.RecordFor(role).Status != StatusApproved {
			return false
		}
	}
	return true
}
