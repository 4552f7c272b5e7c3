package port

import (
	"context"
	"io"

	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// IdentityResolver turns a bearer token into a verified actor
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*entity.ActorIdentity, error)
}

// ReviewSheet is one bucket of a reviewer's queue ready for export
type ReviewSheet struct {
	Status   entity.DecisionStatus
	Entities []*entity.ApprovableEntity
}

// ReviewExporter writes a reviewer's categorized queue as a spreadsheet
type ReviewExporter interface {
	Export(ctx context.Context, role entity.RoleKey, sheets []ReviewSheet, w io.Writer) error
}
