package models

import "time"

// ActivityKind enumerates the activity categories a farmhand can report.
type ActivityKind string

const (
	KindMilking           ActivityKind = "milking"
	KindFeeding           ActivityKind = "feeding"
	KindHealthObservation ActivityKind = "health_observation"
	KindWeightMeasurement ActivityKind = "weight_measurement"
	KindInjection         ActivityKind = "injection"
	KindCleaning          ActivityKind = "cleaning"
)

// ActivityKinds lists every supported kind in a stable order.
var ActivityKinds = []ActivityKind{
	KindMilking,
	KindFeeding,
	KindHealthObservation,
	KindWeightMeasurement,
	KindInjection,
	KindCleaning,
}

// Valid reports whether k is one of the supported kinds.
func (k ActivityKind) Valid() bool {
	for _, known := range ActivityKinds {
		if k == known {
			return true
		}
	}
	return false
}

// RequiresAnimal reports whether an activity of this kind must be bound to one animal.
// Feeding is special-cased by the orchestrator: without an animal it becomes a herd distribution.
func (k ActivityKind) RequiresAnimal() bool {
	switch k {
	case KindMilking, KindHealthObservation, KindWeightMeasurement, KindInjection:
		return true
	default:
		return false
	}
}

// Unit is the unit of measure attached to a reported quantity.
type Unit string

const (
	UnitBales     Unit = "bales"
	UnitBags      Unit = "bags"
	UnitBarrels   Unit = "barrels"
	UnitKilograms Unit = "kg"
	UnitLiters    Unit = "liters"
)

// IsCountBased reports whether the unit counts containers whose weight comes from inventory.
func (u Unit) IsCountBased() bool {
	return u == UnitBales || u == UnitBags || u == UnitBarrels
}

// IsDirect reports whether the unit already expresses mass or volume.
func (u Unit) IsDirect() bool {
	return u == UnitKilograms || u == UnitLiters
}

// Valid reports whether u is a recognized unit.
func (u Unit) Valid() bool {
	return u.IsCountBased() || u.IsDirect()
}

// UnknownFeedType is the explicit marker the extraction oracle uses when the farmhand did not name the feed.
const UnknownFeedType = "unknown"

// ActivityCandidate is the oracle's best-effort guess for one logged action. Every field except
// Kind is optional and untrusted.
type ActivityCandidate struct {
	Kind          ActivityKind `json:"kind"`
	AnimalRef     *string      `json:"animal,omitempty"`
	Quantity      *float64     `json:"quantity,omitempty"`
	Unit          *Unit        `json:"unit,omitempty"`
	FeedType      *string      `json:"feed_type,omitempty"`
	Medicine      *string      `json:"medicine,omitempty"`
	Dosage        *string      `json:"dosage,omitempty"`
	Notes         *string      `json:"notes,omitempty"`
	DateReference *string      `json:"date_reference,omitempty"`
}

// FeedTypeUnspecified reports whether the candidate left the feed type for inventory to decide.
func (c ActivityCandidate) FeedTypeUnspecified() bool {
	return c.FeedType == nil || *c.FeedType == UnknownFeedType
}

// HasAnimalRef reports whether the candidate names an animal.
func (c ActivityCandidate) HasAnimalRef() bool {
	return c.AnimalRef != nil && *c.AnimalRef != ""
}

// ResolvedActivity is a candidate whose references have all been bound. Quantity is expressed in
// kilograms for feeding and weight measurement and in liters for milking.
type ResolvedActivity struct {
	ID              string       `bson:"id" json:"id"`
	Kind            ActivityKind `bson:"kind" json:"kind"`
	AnimalID        string       `bson:"animal_id,omitempty" json:"animal_id,omitempty"`
	AnimalLabel     string       `bson:"animal_label,omitempty" json:"animal_label,omitempty"`
	Quantity        float64      `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Unit            Unit         `bson:"unit,omitempty" json:"unit,omitempty"`
	FeedType        string       `bson:"feed_type,omitempty" json:"feed_type,omitempty"`
	UnitCount       float64      `bson:"unit_count,omitempty" json:"unit_count,omitempty"`
	CountUnit       Unit         `bson:"count_unit,omitempty" json:"count_unit,omitempty"`
	WeightPerUnitKg float64      `bson:"weight_per_unit_kg,omitempty" json:"weight_per_unit_kg,omitempty"`
	Medicine        string       `bson:"medicine,omitempty" json:"medicine,omitempty"`
	Dosage          string       `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Notes           string       `bson:"notes,omitempty" json:"notes,omitempty"`
	Date            time.Time    `bson:"date" json:"date"`
	Timestamp       time.Time    `bson:"timestamp" json:"timestamp"`
}

// Submission is the fully resolved payload of one transcription: single-animal activities plus
// any herd distributions. It is what gets committed or queued for approval.
type Submission struct {
	FarmID        string             `bson:"farm_id" json:"farm_id"`
	ActorID       string             `bson:"actor_id" json:"actor_id"`
	Transcription string             `bson:"transcription,omitempty" json:"transcription,omitempty"`
	Activities    []ResolvedActivity `bson:"activities,omitempty" json:"activities,omitempty"`
	Plans         []DistributionPlan `bson:"plans,omitempty" json:"plans,omitempty"`
}

// Empty reports whether the submission carries nothing to persist.
func (s Submission) Empty() bool {
	return len(s.Activities) == 0 && len(s.Plans) == 0
}

// Kinds returns the distinct activity kinds present, in first-seen order.
func (s Submission) Kinds() []ActivityKind {
	seen := make(map[ActivityKind]bool)
	var kinds []ActivityKind
	add := func(k ActivityKind) {
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	for _, a := range s.Activities {
		add(a.Kind)
	}
	if len(s.Plans) > 0 {
		add(KindFeeding)
	}
	return kinds
}

// OfKind returns the subset of the submission that belongs to kind.
func (s Submission) OfKind(kind ActivityKind) Submission {
	out := Submission{FarmID: s.FarmID, ActorID: s.ActorID, Transcription: s.Transcription}
	for _, a := range s.Activities {
		if a.Kind == kind {
			out.Activities = append(out.Activities, a)
		}
	}
	if kind == KindFeeding {
		out.Plans = append(out.Plans, s.Plans...)
	}
	return out
}
