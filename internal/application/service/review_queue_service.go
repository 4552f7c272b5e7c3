package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// ReviewFilter selects a reviewer's queue
type ReviewFilter struct {
	Role entity.RoleKey
	// Department narrows profiles for department-scoped roles; empty defaults to the role's own department.
	// Letters are listed for every recipient.
	Department string
	// Kind is optional; empty lists both profiles and letters
	Kind entity.EntityKind
}

// Categorized is a reviewer's queue bucketed by that reviewer's own decision
type Categorized struct {
	Pending  []*entity.ApprovableEntity `json:"pending"`
	Approved []*entity.ApprovableEntity `json:"approved"`
	Rejected []*entity.ApprovableEntity `json:"rejected"`
}

// Sheets returns the buckets in display order
func (c *Categorized) Sheets() []port.ReviewSheet {
	return []port.ReviewSheet{
		{Status: entity.StatusPending, Entities: c.Pending},
		{Status: entity.StatusApproved, Entities: c.Approved},
		{Status: entity.StatusRejected, Entities: c.Rejected},
	}
}

// ReviewQueueService lists entities awaiting or carrying a reviewer's decision
type ReviewQueueService interface {
	ListCategorized(ctx context.Context, filter ReviewFilter) (*Categorized, error)
}

type reviewQueueServiceImpl struct {
	repo     port.EntityRepository
	registry *approval.Registry
	logger   Logger
}

// NewReviewQueueService creates a ReviewQueueService
func NewReviewQueueService(repo port.EntityRepository, registry *approval.Registry, logger Logger) ReviewQueueService {
	return &reviewQueueServiceImpl{
		repo:     repo,
		registry: registry,
		logger:   logger,
	}
}

func (s *reviewQueueServiceImpl) ListCategorized(ctx context.Context, filter ReviewFilter) (*Categorized, error) {
	if !s.registry.IsValidRole(filter.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", approval.ErrInvalidRecipients, filter.Role)
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", approval.ErrInvalidEntity, filter.Kind)
	}

	dept := ""
	if own, scoped := s.registry.DepartmentFor(filter.Role); scoped {
		dept = own
		if d := strings.TrimSpace(filter.Department); d != "" {
			dept = strings.ToUpper(d)
		}
	}

	list, err := s.repo.ListForReviewer(ctx, port.ReviewerQuery{Role: filter.Role, Kind: filter.Kind})
	if err != nil {
		s.logger.Error("Failed to list review queue", "role", filter.Role, "error", err)
		return nil, fmt.Errorf("list for reviewer: %w", err)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	out := &Categorized{
		Pending:  []*entity.ApprovableEntity{},
		Approved: []*entity.ApprovableEntity{},
		Rejected: []*entity.ApprovableEntity{},
	}
	for _, e := range list {
		if !e.HasReviewer(filter.Role) {
			continue
		}
		if dept != "" && !e.MatchesDepartment(dept) {
			continue
		}
		switch e.State.RecordFor(filter.Role).Status {
		case entity.StatusApproved:
			out.Approved = append(out.Approved, e)
		case entity.StatusRejected:
			out.Rejected = append(out.Rejected, e)
		default:
			out.Pending = append(out.Pending, e)
		}
	}
	return out, nil
}
