package models

import "time"

// AllocationShare is one animal's portion of a herd distribution.
type AllocationShare struct {
	AnimalID    string  `bson:"animal_id" json:"animal_id"`
	AnimalLabel string  `bson:"animal_label,omitempty" json:"animal_label,omitempty"`
	WeightKg    float64 `bson:"weight_kg" json:"weight_kg"`
	Proportion  float64 `bson:"proportion" json:"proportion"`
	ShareKg     float64 `bson:"share_kg" json:"share_kg"`
}

// DistributionPlan allocates a bulk feed mass across the eligible herd proportionally to body weight.
type DistributionPlan struct {
	ID              string            `bson:"id" json:"id"`
	FeedType        string            `bson:"feed_type" json:"feed_type"`
	TotalKg         float64           `bson:"total_kg" json:"total_kg"`
	UnitCount       float64           `bson:"unit_count,omitempty" json:"unit_count,omitempty"`
	CountUnit       Unit              `bson:"count_unit,omitempty" json:"count_unit,omitempty"`
	WeightPerUnitKg float64           `bson:"weight_per_unit_kg,omitempty" json:"weight_per_unit_kg,omitempty"`
	Date            time.Time         `bson:"date" json:"date"`
	Timestamp       time.Time         `bson:"timestamp" json:"timestamp"`
	Notes           string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Shares          []AllocationShare `bson:"shares" json:"shares"`
}

// AllocatedKg sums the per-animal shares.
func (p DistributionPlan) AllocatedKg() float64 {
	var total float64
	for _, s := range p.Shares {
		total += s.ShareKg
	}
	return total
}
