// Package memory keeps approvable entities in process memory.
// It backs tests and the "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// EntityRepository implements port.EntityRepository in memory
type EntityRepository struct {
	mu       sync.RWMutex
	entities map[string]*entity.ApprovableEntity

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEntityRepository creates an empty in-memory repository
func NewEntityRepository() *EntityRepository {
	return &EntityRepository{
		entities: make(map[string]*entity.ApprovableEntity),
		locks:    make(map[string]*sync.Mutex),
	}
}

// entityLock returns the mutex serializing writes to one entity
func (r *EntityRepository) entityLock(id string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

func (r *EntityRepository) Create(ctx context.Context, e *entity.ApprovableEntity) error {
	if e.ID == "" {
		return fmt.Errorf("%w: id is required", approval.ErrInvalidEntity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[e.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", approval.ErrInvalidEntity, e.ID)
	}
	if e.Kind == entity.KindProfile {
		for _, other := range r.entities {
			if other.Kind == entity.KindProfile && other.OwnerActorID == e.OwnerActorID {
				return approval.ErrDuplicateProfile
			}
		}
	}
	if e.State.Version == 0 {
		e.State.Version = 1
	}
	r.entities[e.ID] = copyEntity(e)
	return nil
}

func (r *EntityRepository) GetByID(ctx context.Context, id string) (*entity.ApprovableEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", approval.ErrEntityNotFound, id)
	}
	return copyEntity(e), nil
}

func (r *EntityRepository) GetProfileByOwner(ctx context.Context, ownerID string) (*entity.ApprovableEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entities {
		if e.Kind == entity.KindProfile && e.OwnerActorID == ownerID {
			return copyEntity(e), nil
		}
	}
	return nil, fmt.Errorf("%w: no profile for owner %s", approval.ErrEntityNotFound, ownerID)
}

func (r *EntityRepository) UpdateApprovalState(ctx context.Context, id string, mutator port.StateMutator) (*entity.ApprovableEntity, error) {
	lock := r.entityLock(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	readVersion := current.State.Version

	next := current.State.Clone()
	if err := mutator(current, &next); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", approval.ErrEntityNotFound, id)
	}
	if stored.State.Version != readVersion {
		return nil, approval.ErrConcurrentWriteConflict
	}

	now := time.Now()
	next.Version = readVersion + 1
	next.UpdatedAt = now
	stored.State = next.Clone()
	stored.UpdatedAt = now

	return copyEntity(stored), nil
}

func (r *EntityRepository) ListForReviewer(ctx context.Context, q port.ReviewerQuery) ([]*entity.ApprovableEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.ApprovableEntity
	for _, e := range r.entities {
		if q.Kind != "" && e.Kind != q.Kind {
			continue
		}
		if !e.HasReviewer(q.Role) {
			continue
		}
		out = append(out, copyEntity(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *EntityRepository) DeleteLettersByCollection(ctx context.Context, profileID, collectionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entities {
		if e.Kind != entity.KindLetter || e.Letter == nil {
			continue
		}
		if e.Letter.ProfileID == profileID && e.Letter.CollectionID == collectionID {
			delete(r.entities, id)
			n++
		}
	}
	return n, nil
}

func copyEntity(e *entity.ApprovableEntity) *entity.ApprovableEntity {
	c := *e
	c.RequiredReviewers = append([]entity.RoleKey(nil), e.RequiredReviewers...)
	c.State = e.State.Clone()
	if e.Profile != nil {
		p := *e.Profile
		c.Profile = &p
	}
	if e.Letter != nil {
		l := *e.Letter
		l.MembersByDepartment = make(map[string][]string, len(e.Letter.MembersByDepartment))
		for dept, members := range e.Letter.MembersByDepartment {
			l.MembersByDepartment[dept] = append([]string(nil), members...)
		}
		c.Letter = &l
	}
	return &c
}

var _ port.EntityRepository = (*EntityRepository)(nil)
