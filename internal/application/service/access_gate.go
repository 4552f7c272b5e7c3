package service

import (
	"context"
	"fmt"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// GatedAction names a downstream action that requires profile approvals
type GatedAction string

const (
	GateDraftLetter      GatedAction = "draft_letter"
	GateCreateCollection GatedAction = "create_collection"
	GateManageCollection GatedAction = "manage_collection"
)

// GateConfig maps each gated action to the roles that must have approved
type GateConfig map[GatedAction][]entity.RoleKey

// DefaultGateConfig requires tpo, dean and director for drafting letters
// and every profile reviewer for collection management
func DefaultGateConfig(registry *approval.Registry) GateConfig {
	all := registry.ProfileReviewers()
	return GateConfig{
		GateDraftLetter:      {entity.RoleTPO, entity.RoleDean, entity.RoleDirector},
		GateCreateCollection: all,
		GateManageCollection: append([]entity.RoleKey(nil), all...),
	}
}

// AccessGate answers whether an entity's approvals unlock an action
type AccessGate interface {
	IsFullyApproved(e *entity.ApprovableEntity) bool
	Allows(e *entity.ApprovableEntity, action GatedAction) error
	Check(ctx context.Context, profileID string, action GatedAction) (*entity.ApprovableEntity, error)
}

type accessGateImpl struct {
	repo   port.EntityRepository
	gates  GateConfig
	logger Logger
}

// NewAccessGate creates an AccessGate
func NewAccessGate(repo port.EntityRepository, gates GateConfig, logger Logger) AccessGate {
	copied := make(GateConfig, len(gates))
	for action, roles := range gates {
		copied[action] = append([]entity.RoleKey(nil), roles...)
	}
	return &accessGateImpl{
		repo:   repo,
		gates:  copied,
		logger: logger,
	}
}

// IsFullyApproved recomputes the aggregate instead of trusting the stored one
func (g *accessGateImpl) IsFullyApproved(e *entity.ApprovableEntity) bool {
	if e == nil {
		return false
	}
	return entity.Recompute(e.State.Records, e.RequiredReviewers) == entity.StatusApproved
}

func (g *accessGateImpl) Allows(e *entity.ApprovableEntity, action GatedAction) error {
	roles, ok := g.gates[action]
	if !ok || len(roles) == 0 {
		if g.IsFullyApproved(e) {
			return nil
		}
		return fmt.Errorf("%w: %s requires full approval", approval.ErrAccessDenied, action)
	}

	if e.State.AllApproved(roles) {
		return nil
	}

	var missing []entity.RoleKey
	for _, role := range roles {
		if e.State.RecordFor(role).Status != entity.StatusApproved {
			missing = append(missing, role)
		}
	}
	return fmt.Errorf("%w: %s missing %v", approval.ErrAccessDenied, action, missing)
}

func (g *accessGateImpl) Check(ctx context.Context, profileID string, action GatedAction) (*entity.ApprovableEntity, error) {
	e, err := g.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if e.Kind != entity.KindProfile {
		return nil, fmt.Errorf("%w: %s is not a profile", approval.ErrInvalidEntity, profileID)
	}

	if err := g.Allows(e, action); err != nil {
		g.logger.Info("Access denied", "profile_id", profileID, "action", action, "reason", err.Error())
		return e, err
	}
	return e, nil
}
