// Package distribution splits a bulk feed mass across the herd in proportion to body weight.
package distribution

import (
	"time"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
)

// Eligible keeps the animals that can take part in a distribution at the given time: active,
// weighed and already on the farm.
func Eligible(animals []models.Animal, at time.Time) []models.Animal {
	out := make([]models.Animal, 0, len(animals))
	for _, a := range animals {
		if !a.IsActive() || a.WeightKg == nil || *a.WeightKg <= 0 {
			continue
		}
		if !a.EntryDate.IsZero() && a.EntryDate.After(at) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Distribute allocates totalKg across animals: share = total * weight / sum(weights). Animals
// without a positive weight get nothing. Shares keep the input order.
func Distribute(totalKg float64, animals []models.Animal) ([]models.AllocationShare, error) {
	if totalKg <= 0 {
		return nil, errs.New(errs.KindInputValidation, errs.CodeQuantityOutOfRange,
			"La quantité à distribuer doit être positive.",
			"The quantity to distribute must be positive.")
	}

	var sum float64
	eligible := make([]models.Animal, 0, len(animals))
	for _, a := range animals {
		if a.WeightKg == nil || *a.WeightKg <= 0 {
			continue
		}
		sum += *a.WeightKg
		eligible = append(eligible, a)
	}

	if len(eligible) == 0 {
		return nil, errs.New(errs.KindInputValidation, errs.CodeNoEligibleAnimals,
			"Aucun animal avec un poids connu pour répartir l'aliment. Enregistrez d'abord les pesées.",
			"No animal with a known weight to distribute the feed to. Please record weights first.")
	}

	shares := make([]models.AllocationShare, 0, len(eligible))
	for _, a := range eligible {
		proportion := *a.WeightKg / sum
		shares = append(shares, models.AllocationShare{
			AnimalID:    a.ID,
			AnimalLabel: a.Label(),
			WeightKg:    *a.WeightKg,
			Proportion:  proportion,
			ShareKg:     totalKg * proportion,
		})
	}
	return shares, nil
}
