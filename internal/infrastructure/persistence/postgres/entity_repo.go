package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/codec"
	"github.com/garyjia/club-approvals/pkg/database"
)

const uniqueViolation = "23505"

const entityColumns = `
	id, kind, owner_actor_id, required_reviewers, approval_state,
	version, details, created_at, updated_at
`

// EntityRepository implements port.EntityRepository on Postgres
type EntityRepository struct {
	db     *database.PostgresDB
	tx     *TxManager
	logger *zap.Logger
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *database.PostgresDB, logger *zap.Logger) *EntityRepository {
	return &EntityRepository{
		db:     db,
		tx:     NewTxManager(db),
		logger: logger,
	}
}

func (r *EntityRepository) Create(ctx context.Context, e *entity.ApprovableEntity) error {
	if e.State.Version == 0 {
		e.State.Version = 1
	}
	row, err := codec.Encode(e)
	if err != nil {
		return fmt.Errorf("%w: %v", approval.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO entities (
			id, kind, owner_actor_id, required_reviewers, approval_state,
			overall_status, version, profile_id, collection_id, department,
			details, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = querier(ctx, r.db).Exec(ctx, query,
		row.ID,
		row.Kind,
		row.OwnerActorID,
		row.RequiredReviewers,
		row.ApprovalState,
		row.OverallStatus,
		row.Version,
		row.ProfileID,
		row.CollectionID,
		row.Department,
		row.Details,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && e.Kind == entity.KindProfile {
			return approval.ErrDuplicateProfile
		}
		r.logger.Error("Failed to create entity", zap.String("id", e.ID), zap.Error(err))
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

func (r *EntityRepository) GetByID(ctx context.Context, id string) (*entity.ApprovableEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1`

	e, err := scanEntity(querier(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", approval.ErrEntityNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return e, nil
}

func (r *EntityRepository) GetProfileByOwner(ctx context.Context, ownerID string) (*entity.ApprovableEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE kind = 'profile' AND owner_actor_id = $1`

	e, err := scanEntity(querier(ctx, r.db).QueryRow(ctx, query, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no profile for owner %s", approval.ErrEntityNotFound, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by owner: %w", err)
	}
	return e, nil
}

// UpdateApprovalState locks the row with SELECT ... FOR UPDATE, runs mutator
// and writes back guarded by the version read
func (r *EntityRepository) UpdateApprovalState(ctx context.Context, id string, mutator port.StateMutator) (*entity.ApprovableEntity, error) {
	var updated *entity.ApprovableEntity

	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		q := querier(txCtx, r.db)

		current, err := scanEntity(q.QueryRow(txCtx, `SELECT `+entityColumns+` FROM entities WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", approval.ErrEntityNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock entity: %w", err)
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
		overall := entity.Recompute(next.Records, current.RequiredReviewers)
		now := time.Now()

		tag, err := q.Exec(txCtx, `
			UPDATE entities
			SET approval_state = $1, overall_status = $2, version = version + 1, updated_at = $3
			WHERE id = $4 AND version = $5
		`, state, string(overall), now, id, readVersion)
		if err != nil {
			return fmt.Errorf("failed to update approval state: %w", err)
		}
		if tag.RowsAffected() == 0 {
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

func (r *EntityRepository) ListForReviewer(ctx context.Context, q port.ReviewerQuery) ([]*entity.ApprovableEntity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE $1 = ANY(required_reviewers)
		  AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC, id DESC
	`

	rows, err := querier(ctx, r.db).Query(ctx, query, string(q.Role), string(q.Kind))
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

func (r *EntityRepository) DeleteLettersByCollection(ctx context.Context, profileID, collectionID string) (int, error) {
	tag, err := querier(ctx, r.db).Exec(ctx,
		`DELETE FROM entities WHERE kind = 'letter' AND profile_id = $1 AND collection_id = $2`,
		profileID, collectionID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete letters: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanEntity(row pgx.Row) (*entity.ApprovableEntity, error) {
	var (
		r codec.Row
		e entity.ApprovableEntity
	)
	err := row.Scan(
		&r.ID,
		&r.Kind,
		&r.OwnerActorID,
		&r.RequiredReviewers,
		&r.ApprovalState,
		&r.Version,
		&r.Details,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := codec.Decode(&r, &e); err != nil {
		return nil, err
	}
	e.State.UpdatedAt = e.UpdatedAt
	return &e, nil
}

var _ port.EntityRepository = (*EntityRepository)(nil)
