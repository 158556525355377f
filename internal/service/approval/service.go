package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
)

const dueBatchSize = 100

// Service applies review decisions to queued approvals.
type Service struct {
	store     Store
	committer Committer
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the decision service.
func NewService(store Store, committer Committer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, committer: committer, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns the actor's farm approvals in status (all when empty).
func (s *Service) List(ctx context.Context, actor models.Actor, status models.ApprovalStatus) ([]models.PendingApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	return s.store.ListApprovals(ctx, actor.FarmID, status)
}

// Approve commits the queued payload and marks the approval approved.
func (s *Service) Approve(ctx context.Context, actor models.Actor, id string) (models.PendingApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return models.PendingApproval{}, err
	}
	pending, err := s.store.GetApproval(ctx, actor.FarmID, id)
	if err != nil {
		return models.PendingApproval{}, fmt.Errorf("load approval %s: %w", id, err)
	}
	return s.decideAndCommit(ctx, pending, models.ApprovalApproved, actor.UserID)
}

// Reject closes the approval without writing anything to the ledger.
func (s *Service) Reject(ctx context.Context, actor models.Actor, id, reason string) (models.PendingApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return models.PendingApproval{}, err
	}
	pending, err := s.store.GetApproval(ctx, actor.FarmID, id)
	if err != nil {
		return models.PendingApproval{}, fmt.Errorf("load approval %s: %w", id, err)
	}
	if pending.Status.Terminal() {
		return models.PendingApproval{}, ErrNotPending
	}

	at := s.now().UTC()
	ok, err := s.store.TransitionApproval(ctx, id, models.ApprovalPending, models.ApprovalRejected, actor.UserID, reason, &at)
	if err != nil {
		return models.PendingApproval{}, fmt.Errorf("reject approval %s: %w", id, err)
	}
	if !ok {
		return models.PendingApproval{}, ErrNotPending
	}

	pending.Status = models.ApprovalRejected
	pending.DecidedBy = actor.UserID
	pending.DecidedAt = &at
	pending.Reason = reason
	s.logger.Info("approval rejected", zap.String("approval_id", id), zap.String("decided_by", actor.UserID))
	return pending, nil
}

// AutoApproveDue approves every pending item whose deadline has passed. It returns how many were
// committed; individual failures are logged and left pending for the next run.
func (s *Service) AutoApproveDue(ctx context.Context) (int, error) {
	due, err := s.store.ListDueApprovals(ctx, s.now().UTC(), dueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due approvals: %w", err)
	}

	approved := 0
	for _, pending := range due {
		if _, err := s.decideAndCommit(ctx, pending, models.ApprovalAutoApproved, "system"); err != nil {
			if !errors.Is(err, ErrNotPending) {
				s.logger.Error("auto-approval failed", zap.String("approval_id", pending.ID), zap.Error(err))
			}
			continue
		}
		approved++
	}
	return approved, nil
}

// decideAndCommit claims the approval with a compare-and-set, then commits the payload. If the
// commit fails the claim is released so the item stays pending.
func (s *Service) decideAndCommit(ctx context.Context, pending models.PendingApproval, to models.ApprovalStatus, decidedBy string) (models.PendingApproval, error) {
	if pending.Status.Terminal() {
		return models.PendingApproval{}, ErrNotPending
	}

	at := s.now().UTC()
	ok, err := s.store.TransitionApproval(ctx, pending.ID, models.ApprovalPending, to, decidedBy, "", &at)
	if err != nil {
		return models.PendingApproval{}, fmt.Errorf("claim approval %s: %w", pending.ID, err)
	}
	if !ok {
		return models.PendingApproval{}, ErrNotPending
	}

	if _, err := s.committer.Commit(ctx, pending.Payload, pending.ID); err != nil {
		if _, rerr := s.store.TransitionApproval(ctx, pending.ID, to, models.ApprovalPending, "", "", nil); rerr != nil {
			s.logger.Error("failed to release approval after commit failure", zap.String("approval_id", pending.ID), zap.Error(rerr))
		}
		return models.PendingApproval{}, fmt.Errorf("commit approval %s: %w", pending.ID, err)
	}

	pending.Status = to
	pending.DecidedBy = decidedBy
	pending.DecidedAt = &at
	s.logger.Info("approval committed",
		zap.String("approval_id", pending.ID),
		zap.String("status", string(to)),
		zap.String("decided_by", decidedBy))
	return pending, nil
}

func requireReviewer(actor models.Actor) error {
	if actor.Role.CanReview() {
		return nil
	}
	return errs.New(errs.KindAuthorization, errs.CodeNotReviewer,
		"Seuls les propriétaires et gérants peuvent valider les activités.",
		"Only owners and managers can review activities.")
}
