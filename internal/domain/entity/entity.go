package entity

import (
	"strings"
	"time"
)

// ActorIdentity is the resolved caller of an operation
type ActorIdentity struct {
	ID   string  `json:"id"`
	Role RoleKey `json:"role"`
	Name string  `json:"name,omitempty"`
}

// ApprovableEntity is either a club-leader profile or a letter
type ApprovableEntity struct {
	ID                string        `json:"id"`
	Kind              EntityKind    `json:"kind"`
	OwnerActorID      string        `json:"owner_actor_id"`
	RequiredReviewers []RoleKey     `json:"required_reviewers"`
	State             ApprovalState `json:"approval_state"`

	Profile *ProfileDetails `json:"profile,omitempty"`
	Letter  *LetterDetails  `json:"letter,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileDetails is the onboarding application of a club leader
type ProfileDetails struct {
	FullName        string `json:"full_name"`
	RollNumber      string `json:"roll_number"`
	Department      string `json:"department"`
	ClubName        string `json:"club_name"`
	FacultyInCharge string `json:"faculty_in_charge,omitempty"`
	College         string `json:"college,omitempty"`
}

// LetterDetails is an outgoing letter drafted for one collection
type LetterDetails struct {
	ProfileID    string `json:"profile_id"`
	CollectionID string `json:"collection_id"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`

	// MembersByDepartment lists affected club members keyed by department code (e.g. "CSE")
	MembersByDepartment map[string][]string `json:"club_members_by_dept"`
}

// Department returns the department the entity belongs to, for profiles only
func (e *ApprovableEntity) Department() string {
	if e.Profile == nil {
		return ""
	}
	return e.Profile.Department
}

// HasReviewer reports whether role is one of the entity's required reviewers
func (e *ApprovableEntity) HasReviewer(role RoleKey) bool {
	for _, r := range e.RequiredReviewers {
		if r == role {
			return true
		}
	}
	return false
}

// MatchesDepartment reports whether the entity is in scope for a department-scoped reviewer.
// Only profiles are scoped; a letter is in scope for every recipient regardless of listed members.
func (e *ApprovableEntity) MatchesDepartment(dept string) bool {
	if dept == "" || e.Kind != KindProfile {
		return true
	}
	return strings.EqualFold(e.Department(), dept)
}

// MembersFor returns the listed letter members of a department (case-insensitive)
func (l *LetterDetails) MembersFor(dept string) []string {
	if l == nil {
		return nil
	}
	for d, members := range l.MembersByDepartment {
		if strings.EqualFold(d, dept) {
			return members
		}
	}
	return nil
}

// AllMembers returns every listed member across departments
func (l *LetterDetails) AllMembers() []string {
	if l == nil {
		return nil
	}
	var out []string
	for _, members := range l.MembersByDepartment {
		out = append(out, members...)
	}
	return out
}
