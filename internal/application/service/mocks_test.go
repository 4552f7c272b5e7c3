package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

type mockEntityRepo struct {
	createFunc                    func(ctx context.Context, e *entity.ApprovableEntity) error
	getByIDFunc                   func(ctx context.Context, id string) (*entity.ApprovableEntity, error)
	getProfileByOwnerFunc         func(ctx context.Context, ownerID string) (*entity.ApprovableEntity, error)
	updateApprovalStateFunc       func(ctx context.Context, id string, mutator port.StateMutator) (*entity.ApprovableEntity, error)
	listForReviewerFunc           func(ctx context.Context, q port.ReviewerQuery) ([]*entity.ApprovableEntity, error)
	deleteLettersByCollectionFunc func(ctx context.Context, profileID, collectionID string) (int, error)
}

func (m *mockEntityRepo) Create(ctx context.Context, e *entity.ApprovableEntity) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, e)
	}
	return nil
}

func (m *mockEntityRepo) GetByID(ctx context.Context, id string) (*entity.ApprovableEntity, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, approval.ErrEntityNotFound
}

func (m *mockEntityRepo) GetProfileByOwner(ctx context.Context, ownerID string) (*entity.ApprovableEntity, error) {
	if m.getProfileByOwnerFunc != nil {
		return m.getProfileByOwnerFunc(ctx, ownerID)
	}
	return nil, approval.ErrEntityNotFound
}

func (m *mockEntityRepo) UpdateApprovalState(ctx context.Context, id string, mutator port.StateMutator) (*entity.ApprovableEntity, error) {
	if m.updateApprovalStateFunc != nil {
		return m.updateApprovalStateFunc(ctx, id, mutator)
	}
	return nil, approval.ErrEntityNotFound
}

func (m *mockEntityRepo) ListForReviewer(ctx context.Context, q port.ReviewerQuery) ([]*entity.ApprovableEntity, error) {
	if m.listForReviewerFunc != nil {
		return m.listForReviewerFunc(ctx, q)
	}
	return nil, nil
}

func (m *mockEntityRepo) DeleteLettersByCollection(ctx context.Context, profileID, collectionID string) (int, error) {
	if m.deleteLettersByCollectionFunc != nil {
		return m.deleteLettersByCollectionFunc(ctx, profileID, collectionID)
	}
	return 0, nil
}

type mockHistoryRepo struct {
	mu         sync.Mutex
	created    []*entity.DecisionHistory
	createFunc func(ctx context.Context, h *entity.DecisionHistory) error
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.DecisionHistory) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, h)
	return nil
}

func (m *mockHistoryRepo) GetByEntityID(ctx context.Context, entityID string) ([]*entity.DecisionHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.DecisionHistory
	for _, h := range m.created {
		if h.EntityID == entityID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

var testRegistry = approval.MustNewRegistry(approval.DefaultRegistryConfig())

func actor(id string, role entity.RoleKey) entity.ActorIdentity {
	return entity.ActorIdentity{ID: id, Role: role}
}

func newTestProfile(id, owner, dept string) *entity.ApprovableEntity {
	required := testRegistry.ProfileReviewers()
	now := time.Now()
	return &entity.ApprovableEntity{
		ID:                id,
		Kind:              entity.KindProfile,
		OwnerActorID:      owner,
		RequiredReviewers: required,
		State:             entity.NewApprovalState(required),
		Profile: &entity.ProfileDetails{
			FullName: "Asha", RollNumber: "21CS001", Department: dept, ClubName: "Robotics",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestLetter(id, profileID string, recipients ...entity.RoleKey) *entity.ApprovableEntity {
	now := time.Now()
	return &entity.ApprovableEntity{
		ID:                id,
		Kind:              entity.KindLetter,
		OwnerActorID:      "leader-1",
		RequiredReviewers: recipients,
		State:             entity.NewApprovalState(recipients),
		Letter: &entity.LetterDetails{
			ProfileID:    profileID,
			CollectionID: "c1",
			Subject:      "Event permission",
			Body:         "Please allow",
			MembersByDepartment: map[string][]string{
				"CSE": {"m1", "m2"},
				"ECE": {"m3"},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// approveAll marks the given roles approved directly on a stored entity
func approveAll(e *entity.ApprovableEntity, roles ...entity.RoleKey) {
	now := time.Now()
	for _, role := range roles {
		e.State.Apply(role, entity.DecisionRecord{Status: entity.StatusApproved, DecidedAt: &now}, e.RequiredReviewers)
	}
}
