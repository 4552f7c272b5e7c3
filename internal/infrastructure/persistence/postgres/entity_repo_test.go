package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/pkg/database"
)

// Set CLUB_APPROVALS_TEST_PG_DSN to run these against a disposable database
func setupPostgres(t *testing.T) *database.PostgresDB {
	t.Helper()
	dsn := os.Getenv("CLUB_APPROVALS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CLUB_APPROVALS_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	logger := zap.NewNop()
	db, err := database.NewPostgres(ctx, database.PostgresConfig{DSN: dsn, MaxConns: 4}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.MigratePostgres(ctx, db, database.PostgresMigrations(), logger))
	return db
}

func newLetter(recipients ...entity.RoleKey) *entity.ApprovableEntity {
	now := time.Now()
	return &entity.ApprovableEntity{
		ID: uuid.NewString(), Kind: entity.KindLetter, OwnerActorID: uuid.NewString(),
		RequiredReviewers: recipients,
		State:             entity.NewApprovalState(recipients),
		Letter: &entity.LetterDetails{
			ProfileID: uuid.NewString(), CollectionID: "c1", Subject: "S", Body: "B",
			MembersByDepartment: map[string][]string{"CSE": {"m1"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func approve(role entity.RoleKey) port.StateMutator {
	return func(e *entity.ApprovableEntity, state *entity.ApprovalState) error {
		now := time.Now()
		state.Apply(role, entity.DecisionRecord{Status: entity.StatusApproved, DecidedAt: &now}, e.RequiredReviewers)
		return nil
	}
}

func TestEntityRepository_Postgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewEntityRepository(db, zap.NewNop())

	letter := newLetter(entity.RoleTPO, entity.RoleDean)
	require.NoError(t, repo.Create(ctx, letter))

	var wg sync.WaitGroup
	for _, role := range letter.RequiredReviewers {
		wg.Add(1)
		go func(role entity.RoleKey) {
			defer wg.Done()
			_, err := repo.UpdateApprovalState(ctx, letter.ID, approve(role))
			assert.NoError(t, err)
		}(role)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, letter.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, got.State.OverallStatus)
	assert.Equal(t, int64(3), got.State.Version)

	list, err := repo.ListForReviewer(ctx, port.ReviewerQuery{Role: entity.RoleDean, Kind: entity.KindLetter})
	require.NoError(t, err)
	found := false
	for _, e := range list {
		found = found || e.ID == letter.ID
	}
	assert.True(t, found)

	n, err := repo.DeleteLettersByCollection(ctx, letter.Letter.ProfileID, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetByID(ctx, letter.ID)
	assert.ErrorIs(t, err, approval.ErrEntityNotFound)
}

func TestHistoryRepository_Postgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewHistoryRepository(db, zap.NewNop())
	entityID := uuid.NewString()

	require.NoError(t, repo.Create(ctx, &entity.DecisionHistory{
		ID: uuid.NewString(), EntityID: entityID, ActorID: "u1", ActionType: entity.HistoryActionCreate,
		NewStatus: entity.StatusPending, OverallStatus: entity.StatusPending, Timestamp: time.Now(),
	}))

	list, err := repo.GetByEntityID(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.HistoryActionCreate, list[0].ActionType)
}
