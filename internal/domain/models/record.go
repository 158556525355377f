package models

import "time"

// ActivityRecord is the persisted ledger row. Each kind lives in its own table; unused fields stay empty.
type ActivityRecord struct {
	ID             string       `bson:"_id" json:"id"`
	FarmID         string       `bson:"farm_id" json:"farm_id"`
	Kind           ActivityKind `bson:"kind" json:"kind"`
	AnimalID       string       `bson:"animal_id,omitempty" json:"animal_id,omitempty"`
	Date           time.Time    `bson:"date" json:"date"`
	OccurredAt     time.Time    `bson:"occurred_at" json:"occurred_at"`
	RecordedBy     string       `bson:"recorded_by" json:"recorded_by"`
	RecordedAt     time.Time    `bson:"recorded_at" json:"recorded_at"`
	Liters         float64      `bson:"liters,omitempty" json:"liters,omitempty"`
	QuantityKg     float64      `bson:"quantity_kg,omitempty" json:"quantity_kg,omitempty"`
	FeedType       string       `bson:"feed_type,omitempty" json:"feed_type,omitempty"`
	Medicine       string       `bson:"medicine,omitempty" json:"medicine,omitempty"`
	Dosage         string       `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Notes          string       `bson:"notes,omitempty" json:"notes,omitempty"`
	DistributionID string       `bson:"distribution_id,omitempty" json:"distribution_id,omitempty"`
	ApprovalID     string       `bson:"approval_id,omitempty" json:"approval_id,omitempty"`
	Source         string       `bson:"source" json:"source"`
}

// ActivityBatch is the set of records one kind contributes to a commit.
type ActivityBatch struct {
	Kind    ActivityKind
	Records []ActivityRecord
}
