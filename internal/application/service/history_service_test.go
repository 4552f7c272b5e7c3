package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/domain/event"
)

func TestHistoryRecorder_HandleEvent(t *testing.T) {
	repo := &mockHistoryRepo{}
	h := NewHistoryRecorder(repo, &mockLogger{})
	ctx := context.Background()

	require.NoError(t, h.HandleEvent(ctx, event.NewEvent(event.TypeDecisionRecorded, "e1", "letter", map[string]interface{}{
		event.KeyActorID:        "tpo-1",
		event.KeyRole:           "tpo",
		event.KeyPreviousStatus: "pending",
		event.KeyNewStatus:      "rejected",
		event.KeyOverallStatus:  "rejected",
		event.KeyComment:        "clash",
	})))
	require.NoError(t, h.HandleEvent(ctx, event.NewEvent(event.TypeEntityApproved, "e1", "letter", nil)))

	require.Len(t, repo.created, 1)
	got := repo.created[0]
	assert.Equal(t, entity.HistoryActionDecision, got.ActionType)
	assert.Equal(t, entity.RoleTPO, got.Role)
	assert.Equal(t, entity.StatusPending, got.PreviousStatus)
	assert.Equal(t, entity.StatusRejected, got.NewStatus)
	assert.Equal(t, "clash", got.Comment)
	assert.NotEmpty(t, got.ID)
}

func TestHistoryRecorder_PropagatesStoreErrors(t *testing.T) {
	repo := &mockHistoryRepo{createFunc: func(ctx context.Context, h *entity.DecisionHistory) error {
		return errors.New("locked")
	}}
	h := NewHistoryRecorder(repo, &mockLogger{})

	err := h.HandleEvent(context.Background(), event.NewEvent(event.TypeEntityCreated, "e1", "profile", nil))
	assert.Error(t, err)
}
