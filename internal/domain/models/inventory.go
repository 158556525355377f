package models

import "time"

// FeedInventoryEntry is one stocked lot of a feed type. RemainingKg is maintained by inventory flows
// outside ingestion; ingestion only reads it.
type FeedInventoryEntry struct {
	ID              string    `bson:"_id" json:"id"`
	FarmID          string    `bson:"farm_id" json:"farm_id"`
	FeedType        string    `bson:"feed_type" json:"feed_type"`
	Unit            Unit      `bson:"unit" json:"unit"`
	RemainingKg     float64   `bson:"remaining_kg" json:"remaining_kg"`
	WeightPerUnitKg float64   `bson:"weight_per_unit_kg" json:"weight_per_unit_kg"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// InStock reports whether the lot still has feed to consume.
func (e FeedInventoryEntry) InStock() bool {
	return e.RemainingKg > 0
}
