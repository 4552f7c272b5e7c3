package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository on SQLite
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, h *entity.DecisionHistory) error {
	query := `
		INSERT INTO decision_history (
			id, entity_id, actor_id, role, action_type,
			previous_status, new_status, overall_status, comment, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		h.ID,
		h.EntityID,
		h.ActorID,
		string(h.Role),
		h.ActionType,
		string(h.PreviousStatus),
		string(h.NewStatus),
		string(h.OverallStatus),
		h.Comment,
		h.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("entity_id", h.EntityID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}
	return nil
}

// GetByEntityID retrieves all history records for an entity, oldest first
func (r *HistoryRepository) GetByEntityID(ctx context.Context, entityID string) ([]*entity.DecisionHistory, error) {
	query := `
		SELECT id, entity_id, actor_id, role, action_type,
			previous_status, new_status, overall_status, comment, timestamp
		FROM decision_history
		WHERE entity_id = ?
		ORDER BY timestamp ASC, rowid ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, entityID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.String("entity_id", entityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.DecisionHistory
	for rows.Next() {
		var (
			h                         entity.DecisionHistory
			role, prev, next, overall sql.NullString
			comment                   sql.NullString
		)
		err := rows.Scan(
			&h.ID,
			&h.EntityID,
			&h.ActorID,
			&role,
			&h.ActionType,
			&prev,
			&next,
			&overall,
			&comment,
			&h.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		h.Role = entity.RoleKey(role.String)
		h.PreviousStatus = entity.DecisionStatus(prev.String)
		h.NewStatus = entity.DecisionStatus(next.String)
		h.OverallStatus = entity.DecisionStatus(overall.String)
		h.Comment = comment.String
		records = append(records, &h)
	}
	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
