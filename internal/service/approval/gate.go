// Package approval decides whether a resolved submission is committed immediately or queued for
// manager review, and applies the review decisions (approve, reject, auto-approve at deadline).
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/ledger"
)

// ErrNotPending is returned when a decision targets an approval that was already decided.
var ErrNotPending = errors.New("approval is no longer pending")

// Policy is the farm-level approval policy. The gate only consumes its answer.
type Policy interface {
	RequiresApproval(ctx context.Context, farmID string, actor models.Actor, kind models.ActivityKind) (bool, time.Duration, error)
}

// Store persists the approval queue. TransitionApproval must be a compare-and-set on the status.
type Store interface {
	InsertApproval(ctx context.Context, approval models.PendingApproval) error
	GetApproval(ctx context.Context, farmID, id string) (models.PendingApproval, error)
	TransitionApproval(ctx context.Context, id string, from, to models.ApprovalStatus, decidedBy, reason string, decidedAt *time.Time) (bool, error)
	ListApprovals(ctx context.Context, farmID string, status models.ApprovalStatus) ([]models.PendingApproval, error)
	ListDueApprovals(ctx context.Context, now time.Time, limit int) ([]models.PendingApproval, error)
}

// Committer writes an approved payload to the ledger.
type Committer interface {
	Commit(ctx context.Context, sub models.Submission, approvalID string) (ledger.Receipt, error)
}

// Gate evaluates the approval policy and queues submissions that need review.
type Gate struct {
	policy Policy
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewGate wires a gate.
func NewGate(policy Policy, store Store, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{policy: policy, store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source used for deadlines.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Evaluate asks the policy about (farm, actor, kind) and computes the auto-approval deadline.
func (g *Gate) Evaluate(ctx context.Context, actor models.Actor, kind models.ActivityKind) (models.ApprovalDecision, error) {
	required, after, err := g.policy.RequiresApproval(ctx, actor.FarmID, actor, kind)
	if err != nil {
		return models.ApprovalDecision{}, fmt.Errorf("approval policy lookup: %w", err)
	}
	if !required {
		return models.ApprovalDecision{}, nil
	}
	return models.ApprovalDecision{Required: true, Deadline: g.now().UTC().Add(after)}, nil
}

// Enqueue stores the already-resolved payload as a pending approval.
func (g *Gate) Enqueue(ctx context.Context, actor models.Actor, kind models.ActivityKind, payload models.Submission, deadline time.Time) (models.PendingApproval, error) {
	pending := models.PendingApproval{
		ID:          uuid.NewString(),
		FarmID:      actor.FarmID,
		SubmittedBy: actor.UserID,
		Kind:        kind,
		Payload:     payload,
		Status:      models.ApprovalPending,
		Deadline:    deadline,
		CreatedAt:   g.now().UTC(),
	}
	if err := g.store.InsertApproval(ctx, pending); err != nil {
		return models.PendingApproval{}, fmt.Errorf("queue %s approval: %w", kind, err)
	}

	g.logger.Info("activity queued for approval",
		zap.String("approval_id", pending.ID),
		zap.String("farm_id", pending.FarmID),
		zap.String("kind", string(kind)),
		zap.Time("deadline", deadline))
	return pending, nil
}
