package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/garyjia/club-approvals/internal/application/dispatcher"
	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/domain/event"
)

// HistoryRecorder writes the audit trail from published domain events
type HistoryRecorder struct {
	historyRepo port.HistoryRepository
	logger      Logger
}

// NewHistoryRecorder creates a HistoryRecorder
func NewHistoryRecorder(historyRepo port.HistoryRepository, logger Logger) *HistoryRecorder {
	return &HistoryRecorder{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// Register subscribes the recorder to creation and decision events
func (h *HistoryRecorder) Register(d dispatcher.Dispatcher) {
	d.SubscribeMany([]event.Type{event.TypeEntityCreated, event.TypeDecisionRecorded}, "history_recorder", h.HandleEvent)
}

// HandleEvent persists one history row per creation or decision
func (h *HistoryRecorder) HandleEvent(ctx context.Context, evt *event.Event) error {
	record := &entity.DecisionHistory{
		ID:            uuid.NewString(),
		EntityID:      evt.EntityID,
		ActorID:       evt.GetPayloadString(event.KeyActorID),
		OverallStatus: entity.DecisionStatus(evt.GetPayloadString(event.KeyOverallStatus)),
		Timestamp:     evt.Timestamp,
	}

	switch evt.Type {
	case event.TypeEntityCreated:
		record.ActionType = entity.HistoryActionCreate
		record.NewStatus = entity.StatusPending
	case event.TypeDecisionRecorded:
		record.ActionType = entity.HistoryActionDecision
		record.Role = entity.RoleKey(evt.GetPayloadString(event.KeyRole))
		record.PreviousStatus = entity.DecisionStatus(evt.GetPayloadString(event.KeyPreviousStatus))
		record.NewStatus = entity.DecisionStatus(evt.GetPayloadString(event.KeyNewStatus))
		record.Comment = evt.GetPayloadString(event.KeyComment)
	default:
		return nil
	}

	if err := h.historyRepo.Create(ctx, record); err != nil {
		h.logger.Error("Failed to write history", "entity_id", evt.EntityID, "event_type", evt.Type, "error", err)
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}
