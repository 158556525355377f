package models

import "time"

// ApprovalStatus is the state of a queued submission.
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalAutoApproved ApprovalStatus = "auto_approved"
	ApprovalRejected     ApprovalStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalAutoApproved || s == ApprovalRejected
}

// PendingApproval is a resolved submission of a single activity kind awaiting a manager decision.
type PendingApproval struct {
	ID          string         `bson:"_id" json:"id"`
	FarmID      string         `bson:"farm_id" json:"farm_id"`
	SubmittedBy string         `bson:"submitted_by" json:"submitted_by"`
	Kind        ActivityKind   `bson:"kind" json:"kind"`
	Payload     Submission     `bson:"payload" json:"payload"`
	Status      ApprovalStatus `bson:"status" json:"status"`
	Deadline    time.Time      `bson:"deadline" json:"deadline"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	DecidedBy   string         `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	DecidedAt   *time.Time     `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
	Reason      string         `bson:"reason,omitempty" json:"reason,omitempty"`
}

// ApprovalDecision is the answer of the farm policy for one (farm, actor, kind) triple.
type ApprovalDecision struct {
	Required bool
	Deadline time.Time
}
