package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/pkg/database"
)

// HistoryRepository implements port.HistoryRepository on Postgres
type HistoryRepository struct {
	db     *database.PostgresDB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.PostgresDB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

func (r *HistoryRepository) Create(ctx context.Context, h *entity.DecisionHistory) error {
	_, err := querier(ctx, r.db).Exec(ctx, `
		INSERT INTO decision_history (
			id, entity_id, actor_id, role, action_type,
			previous_status, new_status, overall_status, comment, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		h.ID,
		h.EntityID,
		h.ActorID,
		string(h.Role),
		h.ActionType,
		string(h.PreviousStatus),
		string(h.NewStatus),
		string(h.OverallStatus),
		h.Comment,
		h.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("entity_id", h.EntityID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) GetByEntityID(ctx context.Context, entityID string) ([]*entity.DecisionHistory, error) {
	rows, err := querier(ctx, r.db).Query(ctx, `
		SELECT id, entity_id, actor_id, COALESCE(role, ''), action_type,
			COALESCE(previous_status, ''), new_status, overall_status, COALESCE(comment, ''), timestamp
		FROM decision_history
		WHERE entity_id = $1
		ORDER BY timestamp ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.DecisionHistory, error) {
		var h entity.DecisionHistory
		err := row.Scan(
			&h.ID,
			&h.EntityID,
			&h.ActorID,
			&h.Role,
			&h.ActionType,
			&h.PreviousStatus,
			&h.NewStatus,
			&h.OverallStatus,
			&h.Comment,
			&h.Timestamp,
		)
		return &h, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return records, nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
