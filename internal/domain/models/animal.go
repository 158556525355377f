package models

import "time"

// AnimalStatus tracks whether an animal is still part of the herd.
type AnimalStatus string

const (
	AnimalActive   AnimalStatus = "active"
	AnimalSold     AnimalStatus = "sold"
	AnimalDeceased AnimalStatus = "deceased"
)

// Animal is a farm-scoped member of the herd.
type Animal struct {
	ID        string       `bson:"_id" json:"id"`
	FarmID    string       `bson:"farm_id" json:"farm_id"`
	Name      string       `bson:"name,omitempty" json:"name,omitempty"`
	EarTag    string       `bson:"ear_tag,omitempty" json:"ear_tag,omitempty"`
	WeightKg  *float64     `bson:"weight_kg,omitempty" json:"weight_kg,omitempty"`
	EntryDate time.Time    `bson:"entry_date" json:"entry_date"`
	Status    AnimalStatus `bson:"status" json:"status"`
}

// IsActive reports whether the animal can still receive activities. An empty status counts as active.
func (a Animal) IsActive() bool {
	return a.Status == "" || a.Status == AnimalActive
}

// Label returns a human-friendly identifier combining ear tag and name.
func (a Animal) Label() string {
	switch {
	case a.EarTag != "" && a.Name != "":
		return a.EarTag + " " + a.Name
	case a.EarTag != "":
		return a.EarTag
	case a.Name != "":
		return a.Name
	default:
		return a.ID
	}
}
