package approval

import (
	"fmt"
	"sort"

	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// ValidateMemberSubset checks that every approved member id is listed on the letter.
// Department-scoped reviewers may only bless members of their own department.
func (r *Registry) ValidateMemberSubset(e *entity.ApprovableEntity, role entity.RoleKey, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if e.Kind != entity.KindLetter || e.Letter == nil {
		return nil
	}

	var listed []string
	if dept, ok := r.DepartmentFor(role); ok {
		listed = e.Letter.MembersFor(dept)
	} else {
		listed = e.Letter.AllMembers()
	}

	allowed := make(map[string]bool, len(listed))
	for _, id := range listed {
		allowed[id] = true
	}
	for _, id := range ids {
		if !allowed[id] {
			return fmt.Errorf("%w: %q", ErrInvalidMembers, id)
		}
	}
	return nil
}

// NormalizeMembers sorts and de-duplicates member ids
func NormalizeMembers(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MemberApprovals projects which required roles approved each member.
// Only approved records count. This is a read-only view, not part of the aggregate.
func MemberApprovals(e *entity.ApprovableEntity) map[string][]entity.RoleKey {
	out := make(map[string][]entity.RoleKey)
	if e == nil {
		return out
	}
	for _, role := range e.RequiredReviewers {
		rec := e.State.RecordFor(role)
		if rec.Status != entity.StatusApproved {
			continue
		}
		for _, id := range rec.ApprovedMemberIDs {
			out[id] = append(out[id], role)
		}
	}
	return out
}
