// Package codec maps approvable entities to and from the column layout
// shared by the SQL repositories.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// Row is the flattened storage form of an ApprovableEntity
type Row struct {
	ID                string
	Kind              string
	OwnerActorID      string
	RequiredReviewers []string
	ApprovalState     []byte
	OverallStatus     string
	Version           int64
	ProfileID         *string
	CollectionID      *string
	Department        *string
	Details           []byte
}

// storedState is the JSON document in the approval_state column.
// Version lives in its own column and is not duplicated here.
type storedState struct {
	Records map[entity.RoleKey]entity.DecisionRecord `json:"records"`
}

// EncodeState serializes the per-role records
func EncodeState(s entity.ApprovalState) ([]byte, error) {
	return json.Marshal(storedState{Records: s.Records})
}

// Encode flattens e into a Row
func Encode(e *entity.ApprovableEntity) (*Row, error) {
	state, err := EncodeState(e.State)
	if err != nil {
		return nil, fmt.Errorf("encode approval state: %w", err)
	}

	row := &Row{
		ID:                e.ID,
		Kind:              string(e.Kind),
		OwnerActorID:      e.OwnerActorID,
		RequiredReviewers: RolesToStrings(e.RequiredReviewers),
		ApprovalState:     state,
		OverallStatus:     string(entity.Recompute(e.State.Records, e.RequiredReviewers)),
		Version:           e.State.Version,
	}

	switch e.Kind {
	case entity.KindProfile:
		if e.Profile == nil {
			return nil, fmt.Errorf("profile %s has no details", e.ID)
		}
		dept := strings.ToUpper(e.Profile.Department)
		row.Department = &dept
		row.Details, err = json.Marshal(e.Profile)
	case entity.KindLetter:
		if e.Letter == nil {
			return nil, fmt.Errorf("letter %s has no details", e.ID)
		}
		row.ProfileID = &e.Letter.ProfileID
		row.CollectionID = &e.Letter.CollectionID
		row.Details, err = json.Marshal(e.Letter)
	default:
		return nil, fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	return row, nil
}

// Decode rebuilds an entity from its stored columns. The aggregate is
// recomputed from the records rather than read from overall_status.
func Decode(row *Row, e *entity.ApprovableEntity) error {
	e.ID = row.ID
	e.Kind = entity.EntityKind(row.Kind)
	e.OwnerActorID = row.OwnerActorID
	e.RequiredReviewers = StringsToRoles(row.RequiredReviewers)

	var st storedState
	if err := json.Unmarshal(row.ApprovalState, &st); err != nil {
		return fmt.Errorf("decode approval state: %w", err)
	}
	if st.Records == nil {
		st.Records = make(map[entity.RoleKey]entity.DecisionRecord)
	}
	e.State = entity.ApprovalState{
		Records:       st.Records,
		OverallStatus: entity.Recompute(st.Records, e.RequiredReviewers),
		Version:       row.Version,
	}

	switch e.Kind {
	case entity.KindProfile:
		e.Profile = &entity.ProfileDetails{}
		if err := json.Unmarshal(row.Details, e.Profile); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
	case entity.KindLetter:
		e.Letter = &entity.LetterDetails{}
		if err := json.Unmarshal(row.Details, e.Letter); err != nil {
			return fmt.Errorf("decode letter: %w", err)
		}
	default:
		return fmt.Errorf("unknown entity kind %q", row.Kind)
	}
	return nil
}

// RolesToStrings converts role keys for storage
func RolesToStrings(roles []entity.RoleKey) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// StringsToRoles converts stored role keys back
func StringsToRoles(in []string) []entity.RoleKey {
	out := make([]entity.RoleKey, len(in))
	for i, r := range in {
		out[i] = entity.RoleKey(r)
	}
	return out
}
