package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/club-approvals/internal/application/dispatcher"
	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/domain/event"
	"github.com/garyjia/club-approvals/pkg/utils"
)

// LetterInput is a club leader's draft letter
type LetterInput struct {
	ProfileID           string              `json:"profile_id"`
	CollectionID        string              `json:"collection_id"`
	Subject             string              `json:"subject"`
	Body                string              `json:"body"`
	Closing             string              `json:"closing"`
	Recipients          []entity.RoleKey    `json:"recipients"`
	MembersByDepartment map[string][]string `json:"club_members_by_dept"`
}

// AggregateStatus is the recomputed verdict of an entity with its per-role breakdown
type AggregateStatus struct {
	EntityID      string                `json:"entity_id"`
	Kind          entity.EntityKind     `json:"kind"`
	OverallStatus entity.DecisionStatus `json:"overall_status"`
	PerRole       []entity.RoleStatus   `json:"per_role"`
	Version       int64                 `json:"version"`
}

// SubmissionService creates and reads approvable entities
type SubmissionService interface {
	SubmitProfile(ctx context.Context, actor entity.ActorIdentity, details entity.ProfileDetails) (*entity.ApprovableEntity, error)
	SubmitLetter(ctx context.Context, actor entity.ActorIdentity, in LetterInput) (*entity.ApprovableEntity, error)
	DeleteCollectionLetters(ctx context.Context, actor entity.ActorIdentity, profileID, collectionID string) (int, error)
	GetEntity(ctx context.Context, id string) (*entity.ApprovableEntity, error)
	GetAggregateStatus(ctx context.Context, id string) (*AggregateStatus, error)
	MemberApprovals(ctx context.Context, letterID string) (map[string][]entity.RoleKey, error)
	History(ctx context.Context, id string) ([]*entity.DecisionHistory, error)
}

type submissionServiceImpl struct {
	repo        port.EntityRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	registry    *approval.Registry
	gate        AccessGate
	dispatcher  dispatcher.Dispatcher
	logger      Logger
}

// NewSubmissionService creates a SubmissionService. dispatcher may be nil.
func NewSubmissionService(
	repo port.EntityRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	registry *approval.Registry,
	gate AccessGate,
	d dispatcher.Dispatcher,
	logger Logger,
) SubmissionService {
	return &submissionServiceImpl{
		repo:        repo,
		historyRepo: historyRepo,
		txManager:   txManager,
		registry:    registry,
		gate:        gate,
		dispatcher:  d,
		logger:      logger,
	}
}

func (s *submissionServiceImpl) SubmitProfile(ctx context.Context, actor entity.ActorIdentity, details entity.ProfileDetails) (*entity.ApprovableEntity, error) {
	details = trimProfile(details)
	if err := validateProfile(details); err != nil {
		return nil, err
	}

	required, err := s.registry.RequiredReviewersFor(entity.KindProfile, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	e := &entity.ApprovableEntity{
		ID:                uuid.NewString(),
		Kind:              entity.KindProfile,
		OwnerActorID:      actor.ID,
		RequiredReviewers: required,
		State:             entity.NewApprovalState(required),
		Profile:           &details,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetProfileByOwner(txCtx, actor.ID)
		if err == nil && existing != nil {
			return approval.ErrDuplicateProfile
		}
		if err != nil && !errors.Is(err, approval.ErrEntityNotFound) {
			return fmt.Errorf("check existing profile: %w", err)
		}
		if err := s.repo.Create(txCtx, e); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit profile", "owner_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Profile submitted", "id", e.ID, "owner_id", actor.ID, "department", details.Department)
	s.publishCreated(ctx, e, actor)
	return e, nil
}

func (s *submissionServiceImpl) SubmitLetter(ctx context.Context, actor entity.ActorIdentity, in LetterInput) (*entity.ApprovableEntity, error) {
	subject := utils.SanitizeLine(in.Subject)
	if subject == "" || utils.SanitizeString(in.Body) == "" {
		return nil, fmt.Errorf("%w: subject and body are required", approval.ErrInvalidEntity)
	}
	if strings.TrimSpace(in.CollectionID) == "" {
		return nil, fmt.Errorf("%w: collection is required", approval.ErrInvalidEntity)
	}

	profile, err := s.ownedProfile(ctx, actor, in.ProfileID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Allows(profile, GateDraftLetter); err != nil {
		return nil, err
	}

	required, err := s.registry.RequiredReviewersFor(entity.KindLetter, in.Recipients)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	e := &entity.ApprovableEntity{
		ID:                uuid.NewString(),
		Kind:              entity.KindLetter,
		OwnerActorID:      actor.ID,
		RequiredReviewers: required,
		State:             entity.NewApprovalState(required),
		Letter: &entity.LetterDetails{
			ProfileID:           profile.ID,
			CollectionID:        strings.TrimSpace(in.CollectionID),
			Subject:             subject,
			Body:                joinLetterBody(in.Body, in.Closing),
			MembersByDepartment: normalizeMemberLists(in.MembersByDepartment),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("Failed to submit letter", "profile_id", profile.ID, "error", err)
		return nil, fmt.Errorf("create letter: %w", err)
	}

	s.logger.Info("Letter submitted", "id", e.ID, "profile_id", profile.ID, "recipients", required)
	s.publishCreated(ctx, e, actor)
	return e, nil
}

func (s *submissionServiceImpl) DeleteCollectionLetters(ctx context.Context, actor entity.ActorIdentity, profileID, collectionID string) (int, error) {
	profile, err := s.ownedProfile(ctx, actor, profileID)
	if err != nil {
		return 0, err
	}
	if err := s.gate.Allows(profile, GateManageCollection); err != nil {
		return 0, err
	}

	var n int
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		n, err = s.repo.DeleteLettersByCollection(txCtx, profile.ID, collectionID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to delete collection letters", "profile_id", profileID, "collection_id", collectionID, "error", err)
		return 0, fmt.Errorf("delete collection letters: %w", err)
	}

	s.logger.Info("Collection letters deleted", "profile_id", profileID, "collection_id", collectionID, "count", n)
	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeLettersDeleted, profile.ID, string(entity.KindProfile), map[string]interface{}{
			event.KeyActorID:      actor.ID,
			event.KeyCollectionID: collectionID,
			event.KeyCount:        n,
		})
		if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
			s.logger.Error("Failed to publish deletion event", "profile_id", profileID, "error", err)
		}
	}
	return n, nil
}

func (s *submissionServiceImpl) GetEntity(ctx context.Context, id string) (*entity.ApprovableEntity, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

// GetAggregateStatus recomputes the verdict from the stored records
func (s *submissionServiceImpl) GetAggregateStatus(ctx context.Context, id string) (*AggregateStatus, error) {
	e, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AggregateStatus{
		EntityID:      e.ID,
		Kind:          e.Kind,
		OverallStatus: entity.Recompute(e.State.Records, e.RequiredReviewers),
		PerRole:       e.State.PerRoleStatuses(e.RequiredReviewers),
		Version:       e.State.Version,
	}, nil
}

func (s *submissionServiceImpl) MemberApprovals(ctx context.Context, letterID string) (map[string][]entity.RoleKey, error) {
	e, err := s.GetEntity(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if e.Kind != entity.KindLetter {
		return nil, fmt.Errorf("%w: %s is not a letter", approval.ErrInvalidEntity, letterID)
	}
	return approval.MemberApprovals(e), nil
}

func (s *submissionServiceImpl) History(ctx context.Context, id string) ([]*entity.DecisionHistory, error) {
	if _, err := s.GetEntity(ctx, id); err != nil {
		return nil, err
	}
	list, err := s.historyRepo.GetByEntityID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return list, nil
}

func (s *submissionServiceImpl) ownedProfile(ctx context.Context, actor entity.ActorIdentity, profileID string) (*entity.ApprovableEntity, error) {
	profile, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.Kind != entity.KindProfile {
		return nil, fmt.Errorf("%w: %s is not a profile", approval.ErrInvalidEntity, profileID)
	}
	if profile.OwnerActorID != actor.ID {
		return nil, fmt.Errorf("%w: profile belongs to another user", approval.ErrAccessDenied)
	}
	return profile, nil
}

func (s *submissionServiceImpl) publishCreated(ctx context.Context, e *entity.ApprovableEntity, actor entity.ActorIdentity) {
	if s.dispatcher == nil {
		return
	}
	evt := event.NewEvent(event.TypeEntityCreated, e.ID, string(e.Kind), map[string]interface{}{
		event.KeyActorID:       actor.ID,
		event.KeyOverallStatus: string(e.State.OverallStatus),
	})
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to publish creation event", "id", e.ID, "error", err)
	}
}

func trimProfile(p entity.ProfileDetails) entity.ProfileDetails {
	p.FullName = utils.SanitizeLine(p.FullName)
	p.RollNumber = utils.SanitizeLine(p.RollNumber)
	p.Department = strings.ToUpper(utils.SanitizeLine(p.Department))
	p.ClubName = utils.SanitizeLine(p.ClubName)
	p.FacultyInCharge = utils.SanitizeLine(p.FacultyInCharge)
	p.College = utils.SanitizeLine(p.College)
	return p
}

func validateProfile(p entity.ProfileDetails) error {
	var missing []string
	if p.FullName == "" {
		missing = append(missing, "full_name")
	}
	if p.RollNumber == "" {
		missing = append(missing, "roll_number")
	}
	if p.Department == "" {
		missing = append(missing, "department")
	}
	if p.ClubName == "" {
		missing = append(missing, "club_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", approval.ErrInvalidEntity, strings.Join(missing, ", "))
	}
	if err := utils.ValidateRollNumber(p.RollNumber); err != nil {
		return fmt.Errorf("%w: %v", approval.ErrInvalidEntity, err)
	}
	return nil
}

// joinLetterBody appends the closing after a blank line
func joinLetterBody(body, closing string) string {
	body = utils.SanitizeString(body)
	closing = utils.SanitizeString(closing)
	if closing == "" {
		return body
	}
	return strings.TrimSpace(body + "\n\n" + closing)
}

// normalizeMemberLists upper-cases department keys and de-duplicates member ids
func normalizeMemberLists(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for dept, members := range in {
		key := strings.ToUpper(strings.TrimSpace(dept))
		if key == "" {
			continue
		}
		merged := approval.NormalizeMembers(append(out[key], members...))
		if len(merged) > 0 {
			out[key] = merged
		}
	}
	return out
}
