package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stringer string

func (s stringer) String() string { return string(s) }

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"entity created", TypeEntityCreated, true},
		{"decision recorded", TypeDecisionRecorded, true},
		{"entity approved", TypeEntityApproved, true},
		{"entity rejected", TypeEntityRejected, true},
		{"entity reopened", TypeEntityReopened, true},
		{"letters deleted", TypeLettersDeleted, true},
		{"unknown", Type("instance.created"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeDecisionRecorded, "entity-1", "letter", map[string]interface{}{
		KeyRole: "tpo",
	})

	assert.NotEmpty(t, evt.ID)
	assert.NotEmpty(t, evt.CorrelationID)
	assert.Equal(t, "entity-1", evt.EntityID)
	assert.Equal(t, "letter", evt.EntityKind)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Equal(t, "tpo", evt.GetPayloadString(KeyRole))
}

func TestNewEvent_NilPayload(t *testing.T) {
	evt := NewEvent(TypeEntityCreated, "entity-1", "profile", nil)
	assert.NotNil(t, evt.Payload)
	assert.Equal(t, "", evt.GetPayloadString("missing"))
}

func TestEvent_Derive(t *testing.T) {
	evt := NewEvent(TypeDecisionRecorded, "entity-1", "profile", map[string]interface{}{
		KeyOverallStatus: "approved",
	})

	derived := evt.Derive(TypeEntityApproved)
	derived.Payload["extra"] = 1

	assert.NotEqual(t, evt.ID, derived.ID)
	assert.Equal(t, evt.CorrelationID, derived.CorrelationID)
	assert.Equal(t, TypeEntityApproved, derived.Type)
	assert.Equal(t, "approved", derived.GetPayloadString(KeyOverallStatus))
	_, leaked := evt.Payload["extra"]
	assert.False(t, leaked)
}

func TestEvent_PayloadAccessors(t *testing.T) {
	evt := NewEvent(TypeLettersDeleted, "p1", "profile", map[string]interface{}{
		"int":      3,
		"int64":    int64(4),
		"float":    5.0,
		"stringer": stringer("tpo"),
	})

	assert.Equal(t, int64(3), evt.GetPayloadInt("int"))
	assert.Equal(t, int64(4), evt.GetPayloadInt("int64"))
	assert.Equal(t, int64(5), evt.GetPayloadInt("float"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("missing"))
	assert.Equal(t, "tpo", evt.GetPayloadString("stringer"))
}
