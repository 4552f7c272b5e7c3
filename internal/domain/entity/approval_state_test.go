package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allRoles = []RoleKey{
	RoleHSHOD, RoleCSEHOD, RoleCSMHOD, RoleCSDHOD,
	RoleECEHOD, RoleTPO, RoleDean, RoleDirector,
}

// expected mirrors the aggregation rule independently of Recompute
func expected(records map[RoleKey]DecisionRecord, required []RoleKey) DecisionStatus {
	for _, r := range required {
		if records[r].Status == StatusRejected {
			return StatusRejected
		}
	}
	for _, r := range required {
		if records[r].Status != StatusApproved {
			return StatusPending
		}
	}
	return StatusApproved
}

func TestRecompute_Totality(t *testing.T) {
	statuses := []DecisionStatus{StatusPending, StatusApproved, StatusRejected}
	required := []RoleKey{RoleTPO, RoleDean, RoleDirector}
	outside := RoleCSEHOD

	// every assignment of the three required roles plus one role outside the set
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			for c := 0; c < 3; c++ {
				for o := 0; o < 3; o++ {
					records := map[RoleKey]DecisionRecord{
						RoleTPO:      {Status: statuses[a]},
						RoleDean:     {Status: statuses[b]},
						RoleDirector: {Status: statuses[c]},
						outside:      {Status: statuses[o]},
					}
					got := Recompute(records, required)
					assert.Contains(t, statuses, got)
					assert.Equal(t, expected(records, required), got,
						"tpo=%s dean=%s director=%s outside=%s", statuses[a], statuses[b], statuses[c], statuses[o])
				}
			}
		}
	}
}

func TestRecompute_IgnoresRolesOutsideRequired(t *testing.T) {
	records := map[RoleKey]DecisionRecord{
		RoleTPO:    {Status: StatusApproved},
		RoleDean:   {Status: StatusApproved},
		RoleCSEHOD: {Status: StatusRejected},
	}

	assert.Equal(t, StatusApproved, Recompute(records, []RoleKey{RoleTPO, RoleDean}))
}

func TestRecompute_MissingRecordIsPending(t *testing.T) {
	records := map[RoleKey]DecisionRecord{RoleTPO: {Status: StatusApproved}}

	assert.Equal(t, StatusPending, Recompute(records, []RoleKey{RoleTPO, RoleDean}))
	assert.Equal(t, StatusPending, Recompute(nil, []RoleKey{RoleTPO}))
}

func TestRecompute_EmptyRequiredNeverApproves(t *testing.T) {
	records := map[RoleKey]DecisionRecord{RoleTPO: {Status: StatusApproved}}
	assert.Equal(t, StatusPending, Recompute(records, nil))
}

func TestApprovalState_RejectionDominance(t *testing.T) {
	state := NewApprovalState(allRoles)
	state.Apply(RoleDean, DecisionRecord{Status: StatusRejected, Comment: "budget unclear"}, allRoles)
	require.Equal(t, StatusRejected, state.OverallStatus)

	for _, role := range allRoles {
		if role == RoleDean {
			continue
		}
		state.Apply(role, DecisionRecord{Status: StatusApproved}, allRoles)
		assert.Equal(t, StatusRejected, state.OverallStatus, "after %s approved", role)
	}
}

func TestApprovalState_AllApprovedConvergence(t *testing.T) {
	state := NewApprovalState(allRoles)
	assert.Equal(t, StatusPending, state.OverallStatus)

	for i, role := range allRoles {
		state.Apply(role, DecisionRecord{Status: StatusApproved}, allRoles)
		if i < len(allRoles)-1 {
			assert.Equal(t, StatusPending, state.OverallStatus)
		}
	}
	assert.Equal(t, StatusApproved, state.OverallStatus)

	state.Apply(RoleTPO, PendingRecord(), allRoles)
	assert.Equal(t, StatusPending, state.OverallStatus)

	state.Apply(RoleTPO, DecisionRecord{Status: StatusRejected, Comment: "no"}, allRoles)
	assert.Equal(t, StatusRejected, state.OverallStatus)

	// a reviewer may reconsider their own rejection
	state.Apply(RoleTPO, DecisionRecord{Status: StatusApproved}, allRoles)
	assert.Equal(t, StatusApproved, state.OverallStatus)
}

func TestApprovalState_ApplyOverwritesSlot(t *testing.T) {
	required := []RoleKey{RoleTPO, RoleDean}
	state := NewApprovalState(required)

	state.Apply(RoleTPO, DecisionRecord{Status: StatusApproved, Comment: "first"}, required)
	state.Apply(RoleTPO, DecisionRecord{Status: StatusApproved, Comment: "second"}, required)

	assert.Len(t, state.Records, 2)
	assert.Equal(t, "second", state.Records[RoleTPO].Comment)
	assert.Equal(t, StatusPending, state.OverallStatus)
}

func TestApprovalState_CloneIsDeep(t *testing.T) {
	now := time.Now()
	required := []RoleKey{RoleTPO}
	state := NewApprovalState(required)
	state.Apply(RoleTPO, DecisionRecord{
		Status:            StatusApproved,
		DecidedAt:         &now,
		ApprovedMemberIDs: []string{"m1"},
	}, required)

	clone := state.Clone()
	clone.Records[RoleTPO].ApprovedMemberIDs[0] = "m2"
	clone.Apply(RoleTPO, DecisionRecord{Status: StatusRejected, Comment: "x"}, required)

	assert.Equal(t, StatusApproved, state.Records[RoleTPO].Status)
	assert.Equal(t, []string{"m1"}, state.Records[RoleTPO].ApprovedMemberIDs)
	assert.Equal(t, StatusApproved, state.OverallStatus)
}

func TestApprovalState_PerRoleStatusesKeepsOrder(t *testing.T) {
	required := []RoleKey{RoleDirector, RoleTPO}
	state := ApprovalState{Records: map[RoleKey]DecisionRecord{
		RoleTPO: {Status: StatusApproved},
	}}

	got := state.PerRoleStatuses(required)

	require.Len(t, got, 2)
	assert.Equal(t, RoleDirector, got[0].Role)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, RoleTPO, got[1].Role)
	assert.Equal(t, StatusApproved, got[1].Status)
}

func TestApprovalState_AllApproved(t *testing.T) {
	state := ApprovalState{Records: map[RoleKey]DecisionRecord{
		RoleTPO:      {Status: StatusApproved},
		RoleDean:     {Status: StatusApproved},
		RoleDirector: {Status: StatusApproved},
	}}

	assert.True(t, state.AllApproved([]RoleKey{RoleTPO, RoleDean, RoleDirector}))
	assert.False(t, state.AllApproved(allRoles))
	assert.False(t, state.AllApproved(nil))
}

func TestApprovableEntity_MatchesDepartment(t *testing.T) {
	profile := &ApprovableEntity{Kind: KindProfile, Profile: &ProfileDetails{Department: "CSE"}}
	letter := &ApprovableEntity{Kind: KindLetter, Letter: &LetterDetails{
		MembersByDepartment: map[string][]string{"ECE": {"m1"}, "CSM": {}},
	}}

	assert.True(t, profile.MatchesDepartment("cse"))
	assert.False(t, profile.MatchesDepartment("ECE"))
	assert.True(t, profile.MatchesDepartment(""))

	assert.True(t, letter.MatchesDepartment("ece"))
	assert.True(t, letter.MatchesDepartment("CSM"), "letters are not department scoped")
	assert.True(t, letter.MatchesDepartment("CSE"))
}
