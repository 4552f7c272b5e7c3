package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/codec"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/sqlite"
)

const entityColumns = `
	id, kind, owner_actor_id, required_reviewers, approval_state,
	version, details, created_at, updated_at
`

// EntityRepository implements port.EntityRepository on SQLite
type EntityRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *sqlite.DB, logger *zap.Logger) *EntityRepository {
	return &EntityRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new entity with version 1
func (r *EntityRepository) Create(ctx context.Context, e *entity.ApprovableEntity) error {
	if e.State.Version == 0 {
		e.State.Version = 1
	}
	row, err := codec.Encode(e)
	if err != nil {
		return fmt.Errorf("%w: %v", approval.ErrInvalidEntity, err)
	}
	reviewers, err := json.Marshal(row.RequiredReviewers)
	if err != nil {
		return fmt.Errorf("encode reviewers: %w", err)
	}

	query := `
		INSERT INTO entities (
			id, kind, owner_actor_id, required_reviewers, approval_state,
			overall_status, version, profile_id, collection_id, department,
			details, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Executor(ctx).ExecContext(ctx, query,
		row.ID,
		row.Kind,
		row.OwnerActorID,
		string(reviewers),
		string(row.ApprovalState),
		row.OverallStatus,
		row.Version,
		row.ProfileID,
		row.CollectionID,
		row.Department,
		string(row.Details),
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique && e.Kind == entity.KindProfile {
			return approval.ErrDuplicateProfile
		}
		r.logger.Error("Failed to create entity", zap.String("id", e.ID), zap.Error(err))
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// GetByID retrieves an entity by ID
func (r *EntityRepository) GetByID(ctx context.Context, id string) (*entity.ApprovableEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = ?`

	e, err := scanEntity(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", approval.ErrEntityNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get entity", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return e, nil
}

// GetProfileByOwner retrieves the single profile of an owner
func (r *EntityRepository) GetProfileByOwner(ctx context.Context, ownerID string) (*entity.ApprovableEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE kind = 'profile' AND owner_actor_id = ?`

	e, err := scanEntity(r.db.Executor(ctx).QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no profile for owner %s", approval.ErrEntityNotFound, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by owner: %w", err)
	}
	return e, nil
}

// UpdateApprovalState runs mutator inside an immediate transaction and writes
// back only if the version read is still current
func (r *EntityRepository) UpdateApprovalState(ctx context.Context, id string, mutator port.StateMutator) (*entity.ApprovableEntity, error) {
	var updated *entity.ApprovableEntity

	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := r.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		readVersion := current.State.Version

		next := current.State.Clone()
		if err := mutator(current, &next); err != nil {
			return err
		}

		state, err := codec.EncodeState(next)
		if err != nil {
			return fmt.Errorf("encode approval state: %w", err)
		}
		now := time.Now().UTC()
		overall := entity.Recompute(next.Records, current.RequiredReviewers)

		res, err := r.db.Executor(txCtx).ExecContext(txCtx, `
			UPDATE entities
			SET approval_state = ?, overall_status = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?
		`, string(state), string(overall), now, id, readVersion)
		if err != nil {
			return fmt.Errorf("failed to update approval state: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return approval.ErrConcurrentWriteConflict
		}

		next.Version = readVersion + 1
		next.OverallStatus = overall
		next.UpdatedAt = now
		current.State = next
		current.UpdatedAt = now
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListForReviewer returns entities that list q.Role as a required reviewer, newest first
func (r *EntityRepository) ListForReviewer(ctx context.Context, q port.ReviewerQuery) ([]*entity.ApprovableEntity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE EXISTS (SELECT 1 FROM json_each(entities.required_reviewers) WHERE json_each.value = ?)
		  AND (? = '' OR kind = ?)
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, string(q.Role), string(q.Kind), string(q.Kind))
	if err != nil {
		r.logger.Error("Failed to list entities for reviewer", zap.String("role", string(q.Role)), zap.Error(err))
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var out []*entity.ApprovableEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteLettersByCollection removes every letter of one collection
func (r *EntityRepository) DeleteLettersByCollection(ctx context.Context, profileID, collectionID string) (int, error) {
	res, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM entities WHERE kind = 'letter' AND profile_id = ? AND collection_id = ?`,
		profileID, collectionID,
	)
	if err != nil {
		r.logger.Error("Failed to delete letters", zap.String("collection_id", collectionID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete letters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(s rowScanner) (*entity.ApprovableEntity, error) {
	var (
		row       codec.Row
		reviewers string
		state     string
		details   string
		e         entity.ApprovableEntity
	)
	err := s.Scan(
		&row.ID,
		&row.Kind,
		&row.OwnerActorID,
		&reviewers,
		&state,
		&row.Version,
		&details,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reviewers), &row.RequiredReviewers); err != nil {
		return nil, fmt.Errorf("decode reviewers: %w", err)
	}
	row.ApprovalState = []byte(state)
	row.Details = []byte(details)

	if err := codec.Decode(&row, &e); err != nil {
		return nil, err
	}
	e.State.UpdatedAt = e.UpdatedAt
	return &e, nil
}

var _ port.EntityRepository = (*EntityRepository)(nil)
