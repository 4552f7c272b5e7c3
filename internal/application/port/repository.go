package port

import (
	"context"

	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// StateMutator edits a private copy of an entity's approval state.
// Returning an error aborts the write and leaves the stored state untouched.
type StateMutator func(e *entity.ApprovableEntity, state *entity.ApprovalState) error

// ReviewerQuery selects entities a reviewer seat is required on
type ReviewerQuery struct {
	Role entity.RoleKey
	// Kind is optional; empty means both kinds
	Kind entity.EntityKind
}

// EntityRepository defines persistence operations for approvable entities
type EntityRepository interface {
	Create(ctx context.Context, e *entity.ApprovableEntity) error
	GetByID(ctx context.Context, id string) (*entity.ApprovableEntity, error)
	GetProfileByOwner(ctx context.Context, ownerID string) (*entity.ApprovableEntity, error)

	// UpdateApprovalState runs mutator against the freshly read state and
	// persists the result only if the stored version has not moved.
	// Returns approval.ErrConcurrentWriteConflict when it has.
	UpdateApprovalState(ctx context.Context, id string, mutator StateMutator) (*entity.ApprovableEntity, error)

	// ListForReviewer returns entities whose required reviewers include q.Role, newest first
	ListForReviewer(ctx context.Context, q ReviewerQuery) ([]*entity.ApprovableEntity, error)

	DeleteLettersByCollection(ctx context.Context, profileID, collectionID string) (int, error)
}

// HistoryRepository defines persistence operations for DecisionHistory
type HistoryRepository interface {
	Create(ctx context.Context, h *entity.DecisionHistory) error
	GetByEntityID(ctx context.Context, entityID string) ([]*entity.DecisionHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
