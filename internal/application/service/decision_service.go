package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/garyjia/club-approvals/internal/application/dispatcher"
	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/domain/event"
	"github.com/garyjia/club-approvals/internal/domain/workflow"
)

// DecisionRequest is one reviewer's approve or reject on one entity
type DecisionRequest struct {
	EntityID          string
	Actor             entity.ActorIdentity
	ClaimedRole       entity.RoleKey
	Action            entity.DecisionAction
	Comment           string
	ApprovedMemberIDs []string
}

// DecisionRecorder applies reviewer decisions atomically
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, req DecisionRequest) (*entity.ApprovalState, error)
}

// RecorderConfig bounds the optimistic-write retry loop
type RecorderConfig struct {
	MaxWriteRetries int
	RetryBackoff    time.Duration
}

type decisionRecorderImpl struct {
	repo       port.EntityRepository
	registry   *approval.Registry
	dispatcher dispatcher.Dispatcher
	cfg        RecorderConfig
	now        Clock
	logger     Logger
}

// RecorderOption configures the DecisionRecorder
type RecorderOption func(*decisionRecorderImpl)

// WithClock overrides the decision timestamp source
func WithClock(now Clock) RecorderOption {
	return func(r *decisionRecorderImpl) {
		r.now = now
	}
}

// NewDecisionRecorder creates a DecisionRecorder. dispatcher may be nil.
func NewDecisionRecorder(
	repo port.EntityRepository,
	registry *approval.Registry,
	d dispatcher.Dispatcher,
	cfg RecorderConfig,
	logger Logger,
	opts ...RecorderOption,
) DecisionRecorder {
	if cfg.MaxWriteRetries < 0 {
		cfg.MaxWriteRetries = 0
	}
	r := &decisionRecorderImpl{
		repo:       repo,
		registry:   registry,
		dispatcher: d,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// decisionOutcome captures what the last successful mutator run changed
type decisionOutcome struct {
	previousStatus  entity.DecisionStatus
	newStatus       entity.DecisionStatus
	previousOverall entity.DecisionStatus
	overall         entity.DecisionStatus
}

// RecordDecision validates and persists a decision, retrying on version conflicts
func (r *decisionRecorderImpl) RecordDecision(ctx context.Context, req DecisionRequest) (*entity.ApprovalState, error) {
	var out decisionOutcome
	mutator := func(e *entity.ApprovableEntity, state *entity.ApprovalState) error {
		o, err := r.apply(ctx, req, e, state)
		if err != nil {
			return err
		}
		out = o
		return nil
	}

	var (
		updated  *entity.ApprovableEntity
		attempts int
	)
	operation := func() error {
		attempts++
		var err error
		updated, err = r.repo.UpdateApprovalState(ctx, req.EntityID, mutator)
		if err != nil && !errors.Is(err, approval.ErrConcurrentWriteConflict) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: r.cfg.RetryBackoff}, uint64(r.cfg.MaxWriteRetries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		r.logger.Info("Retrying decision after write conflict",
			"entity_id", req.EntityID,
			"role", req.ClaimedRole,
			"attempt", attempts,
			"wait", wait.String(),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		r.logger.Error("Failed to record decision",
			"entity_id", req.EntityID,
			"role", req.ClaimedRole,
			"action", req.Action,
			"attempts", attempts,
			"error", err,
		)
		return nil, fmt.Errorf("record decision: %w", err)
	}

	r.logger.Info("Decision recorded",
		"entity_id", updated.ID,
		"kind", updated.Kind,
		"role", req.ClaimedRole,
		"action", req.Action,
		"status", out.newStatus,
		"overall_status", out.overall,
		"version", updated.State.Version,
	)
	r.publish(ctx, updated, req, out)

	state := updated.State.Clone()
	return &state, nil
}

// apply runs the validation sequence against freshly read state and
// overwrites the caller's slot. It never touches state on failure.
func (r *decisionRecorderImpl) apply(ctx context.Context, req DecisionRequest, e *entity.ApprovableEntity, state *entity.ApprovalState) (decisionOutcome, error) {
	if !e.HasReviewer(req.ClaimedRole) {
		return decisionOutcome{}, approval.ErrNotARecipient
	}
	if req.Actor.Role != req.ClaimedRole {
		return decisionOutcome{}, approval.ErrRoleMismatch
	}
	if !req.Action.IsValid() {
		return decisionOutcome{}, fmt.Errorf("%w: %q", approval.ErrInvalidAction, req.Action)
	}

	comment := strings.TrimSpace(req.Comment)
	if req.Action == entity.ActionReject && comment == "" {
		return decisionOutcome{}, approval.ErrCommentRequired
	}

	previous := state.RecordFor(req.ClaimedRole).Status
	next, err := workflow.NextSeatStatus(ctx, previous, req.Action)
	if err != nil {
		return decisionOutcome{}, fmt.Errorf("seat transition: %w", err)
	}

	var members []string
	if req.Action == entity.ActionApprove && e.Kind == entity.KindLetter {
		members = approval.NormalizeMembers(req.ApprovedMemberIDs)
		if err := r.registry.ValidateMemberSubset(e, req.ClaimedRole, members); err != nil {
			return decisionOutcome{}, err
		}
	}

	now := r.now()
	previousOverall := entity.Recompute(state.Records, e.RequiredReviewers)
	state.Apply(req.ClaimedRole, entity.DecisionRecord{
		Status:            next,
		Comment:           comment,
		DecidedAt:         &now,
		DeciderActorID:    req.Actor.ID,
		ApprovedMemberIDs: members,
	}, e.RequiredReviewers)

	return decisionOutcome{
		previousStatus:  previous,
		newStatus:       next,
		previousOverall: previousOverall,
		overall:         state.OverallStatus,
	}, nil
}

// publish emits decision.recorded and, when the aggregate moved, a follow-up event.
// Subscriber failures are logged; the decision is already durable.
func (r *decisionRecorderImpl) publish(ctx context.Context, e *entity.ApprovableEntity, req DecisionRequest, out decisionOutcome) {
	if r.dispatcher == nil {
		return
	}

	evt := event.NewEvent(event.TypeDecisionRecorded, e.ID, string(e.Kind), map[string]interface{}{
		event.KeyActorID:         req.Actor.ID,
		event.KeyRole:            string(req.ClaimedRole),
		event.KeyAction:          string(req.Action),
		event.KeyComment:         strings.TrimSpace(req.Comment),
		event.KeyPreviousStatus:  string(out.previousStatus),
		event.KeyNewStatus:       string(out.newStatus),
		event.KeyPreviousOverall: string(out.previousOverall),
		event.KeyOverallStatus:   string(out.overall),
	})
	events := []*event.Event{evt}

	if out.overall != out.previousOverall {
		switch out.overall {
		case entity.StatusApproved:
			events = append(events, evt.Derive(event.TypeEntityApproved))
		case entity.StatusRejected:
			events = append(events, evt.Derive(event.TypeEntityRejected))
		default:
			events = append(events, evt.Derive(event.TypeEntityReopened))
		}
	}

	for _, ev := range events {
		if err := r.dispatcher.Dispatch(ctx, ev); err != nil {
			r.logger.Error("Failed to publish decision event",
				"entity_id", e.ID,
				"event_type", ev.Type,
				"error", err,
			)
		}
	}
}
