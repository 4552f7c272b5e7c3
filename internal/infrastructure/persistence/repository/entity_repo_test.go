package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/club-approvals/pkg/database"
)

func setupDB(t *testing.T) *sqlite.DB {
	t.Helper()
	logger := zap.NewNop()
	raw, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "approvals.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	require.NoError(t, database.NewMigrator(raw, logger).Run(database.SQLiteMigrations()))
	return sqlite.NewDB(raw.DB, logger)
}

func newProfile(id, owner string, created time.Time) *entity.ApprovableEntity {
	required := []entity.RoleKey{entity.RoleCSEHOD, entity.RoleTPO, entity.RoleDean}
	return &entity.ApprovableEntity{
		ID: id, Kind: entity.KindProfile, OwnerActorID: owner,
		RequiredReviewers: required,
		State:             entity.NewApprovalState(required),
		Profile:           &entity.ProfileDetails{FullName: "Ravi", RollNumber: "21CS9", Department: "CSE", ClubName: "Chess"},
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func newLetter(id, profileID, collectionID string, created time.Time, recipients ...entity.RoleKey) *entity.ApprovableEntity {
	return &entity.ApprovableEntity{
		ID: id, Kind: entity.KindLetter, OwnerActorID: "owner",
		RequiredReviewers: recipients,
		State:             entity.NewApprovalState(recipients),
		Letter: &entity.LetterDetails{
			ProfileID: profileID, CollectionID: collectionID, Subject: "S", Body: "B",
			MembersByDepartment: map[string][]string{"CSE": {"m1", "m2"}},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func decide(role entity.RoleKey, status entity.DecisionStatus) port.StateMutator {
	return func(e *entity.ApprovableEntity, state *entity.ApprovalState) error {
		now := time.Now().UTC()
		state.Apply(role, entity.DecisionRecord{Status: status, DecidedAt: &now, DeciderActorID: string(role)}, e.RequiredReviewers)
		return nil
	}
}

func TestEntityRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(setupDB(t), zap.NewNop())
	created := time.Now().UTC().Truncate(time.Second)

	p := newProfile("p1", "owner-1", created)
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.KindProfile, got.Kind)
	assert.Equal(t, p.RequiredReviewers, got.RequiredReviewers)
	assert.Equal(t, *p.Profile, *got.Profile)
	assert.Equal(t, int64(1), got.State.Version)
	assert.Equal(t, entity.StatusPending, got.State.OverallStatus)
	assert.True(t, created.Equal(got.CreatedAt))

	byOwner, err := repo.GetProfileByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", byOwner.ID)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, approval.ErrEntityNotFound)

	_, err = repo.GetProfileByOwner(ctx, "nobody")
	assert.ErrorIs(t, err, approval.ErrEntityNotFound)

	err = repo.Create(ctx, newProfile("p2", "owner-1", created))
	assert.ErrorIs(t, err, approval.ErrDuplicateProfile)
}

func TestEntityRepository_UpdateApprovalState(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(setupDB(t), zap.NewNop())
	require.NoError(t, repo.Create(ctx, newLetter("l1", "p1", "c1", time.Now(), entity.RoleTPO, entity.RoleDean)))

	updated, err := repo.UpdateApprovalState(ctx, "l1", decide(entity.RoleTPO, entity.StatusApproved))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.State.Version)

	updated, err = repo.UpdateApprovalState(ctx, "l1", decide(entity.RoleDean, entity.StatusApproved))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, updated.State.OverallStatus)

	got, err := repo.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.State.Version)
	assert.Equal(t, "tpo", got.State.RecordFor(entity.RoleTPO).DeciderActorID)

	t.Run("mutator error rolls back", func(t *testing.T) {
		_, err := repo.UpdateApprovalState(ctx, "l1", func(e *entity.ApprovableEntity, state *entity.ApprovalState) error {
			return approval.ErrCommentRequired
		})
		assert.ErrorIs(t, err, approval.ErrCommentRequired)
		after, _ := repo.GetByID(ctx, "l1")
		assert.Equal(t, int64(3), after.State.Version)
	})

	t.Run("missing entity", func(t *testing.T) {
		_, err := repo.UpdateApprovalState(ctx, "missing", decide(entity.RoleTPO, entity.StatusApproved))
		assert.ErrorIs(t, err, approval.ErrEntityNotFound)
	})
}

func TestEntityRepository_ConcurrentWritersBothLand(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(setupDB(t), zap.NewNop())
	require.NoError(t, repo.Create(ctx, newLetter("l1", "p1", "c1", time.Now(), entity.RoleTPO, entity.RoleDean)))

	var wg sync.WaitGroup
	for _, role := range []entity.RoleKey{entity.RoleTPO, entity.RoleDean} {
		wg.Add(1)
		go func(role entity.RoleKey) {
			defer wg.Done()
			_, err := repo.UpdateApprovalState(ctx, "l1", decide(role, entity.StatusApproved))
			assert.NoError(t, err)
		}(role)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, got.State.OverallStatus)
	assert.Equal(t, int64(3), got.State.Version)
}

func TestEntityRepository_ListForReviewer(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(setupDB(t), zap.NewNop())
	base := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newProfile("p1", "o1", base.Add(-2*time.Hour))))
	require.NoError(t, repo.Create(ctx, newLetter("l1", "p1", "c1", base.Add(-time.Hour), entity.RoleTPO)))
	require.NoError(t, repo.Create(ctx, newLetter("l2", "p1", "c1", base, entity.RoleDirector)))

	list, err := repo.ListForReviewer(ctx, port.ReviewerQuery{Role: entity.RoleTPO})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "l1", list[0].ID)
	assert.Equal(t, "p1", list[1].ID)

	list, err = repo.ListForReviewer(ctx, port.ReviewerQuery{Role: entity.RoleTPO, Kind: entity.KindProfile})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)

	list, err = repo.ListForReviewer(ctx, port.ReviewerQuery{Role: entity.RoleCSDHOD})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEntityRepository_DeleteLettersByCollection(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewEntityRepository(db, zap.NewNop())
	now := time.Now()

	require.NoError(t, repo.Create(ctx, newProfile("p1", "o1", now)))
	require.NoError(t, repo.Create(ctx, newLetter("a", "p1", "c1", now, entity.RoleTPO)))
	require.NoError(t, repo.Create(ctx, newLetter("b", "p1", "c1", now, entity.RoleTPO)))
	require.NoError(t, repo.Create(ctx, newLetter("c", "p1", "c2", now, entity.RoleTPO)))

	var n int
	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		n, err = repo.DeleteLettersByCollection(txCtx, "p1", "c1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.GetByID(ctx, "c")
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, "p1")
	assert.NoError(t, err, "profiles are never deleted")
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(setupDB(t), zap.NewNop())
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &entity.DecisionHistory{
		ID: "h1", EntityID: "e1", ActorID: "u1", ActionType: entity.HistoryActionCreate,
		NewStatus: entity.StatusPending, OverallStatus: entity.StatusPending, Timestamp: now,
	}))
	require.NoError(t, repo.Create(ctx, &entity.DecisionHistory{
		ID: "h2", EntityID: "e1", ActorID: "u2", Role: entity.RoleTPO, ActionType: entity.HistoryActionDecision,
		PreviousStatus: entity.StatusPending, NewStatus: entity.StatusRejected, OverallStatus: entity.StatusRejected,
		Comment: "no", Timestamp: now.Add(time.Second),
	}))

	list, err := repo.GetByEntityID(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "h1", list[0].ID)
	assert.Equal(t, entity.RoleTPO, list[1].Role)
	assert.Equal(t, "no", list[1].Comment)
}
