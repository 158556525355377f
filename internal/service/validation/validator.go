// Package validation decodes untrusted extraction results and applies the per-kind structural
// rules every candidate must pass before any resolution or persistence.
package validation

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
)

// Bounds applied to candidates.
const (
	MinMilkingLiters       = 0.1
	MaxMilkingLiters       = 80
	MinFeedQuantity        = 0.01
	MaxFeedQuantity        = 10000
	MinAnimalWeightKg      = 1
	MaxAnimalWeightKg      = 2000
	MinNotesLength         = 5
	MinMedicineLength      = 2
	MaxDosageLength        = 100
	MaxTextLength          = 500
	MaxTranscriptionLength = 4000
)

type rule func(c models.ActivityCandidate) *errs.Error

// rules per kind run in order; the first failure aborts the candidate.
var rules = map[models.ActivityKind][]rule{
	models.KindMilking: {
		requireQuantity("litres de lait", "liters of milk", MinMilkingLiters, MaxMilkingLiters),
		unitOneOf(models.UnitLiters),
	},
	models.KindFeeding: {
		requireQuantity("quantité d'aliment", "feed quantity", MinFeedQuantity, MaxFeedQuantity),
		feedTypeNotBlank,
		unitOneOf(models.UnitBales, models.UnitBags, models.UnitBarrels, models.UnitKilograms, models.UnitLiters),
	},
	models.KindHealthObservation: {
		requireText("observation", "observation", func(c models.ActivityCandidate) *string { return c.Notes }, MinNotesLength),
	},
	models.KindWeightMeasurement: {
		requireQuantity("poids", "weight", MinAnimalWeightKg, MaxAnimalWeightKg),
		unitOneOf(models.UnitKilograms),
	},
	models.KindInjection: {
		requireText("nom du médicament", "medicine name", func(c models.ActivityCandidate) *string { return c.Medicine }, MinMedicineLength),
		maxLength("dosage", "dosage", func(c models.ActivityCandidate) *string { return c.Dosage }, MaxDosageLength),
	},
	models.KindCleaning: {},
}

// Validate checks c against the rules of its kind and the shared text ceiling.
func Validate(c models.ActivityCandidate) error {
	kindRules := rules[c.Kind]
	if !c.Kind.Valid() || kindRules == nil {
		return reject(errs.CodeInvalidCandidate,
			fmt.Sprintf("type d'activité inconnu « %s »", c.Kind),
			fmt.Sprintf("unknown activity type %q", c.Kind))
	}

	for _, field := range []*string{c.AnimalRef, c.FeedType, c.Medicine, c.Dosage, c.Notes, c.DateReference} {
		if field != nil && len([]rune(*field)) > MaxTextLength {
			return reject(errs.CodeTextTooLong,
				fmt.Sprintf("texte trop long (%d caractères maximum)", MaxTextLength),
				fmt.Sprintf("text too long (at most %d characters)", MaxTextLength))
		}
	}

	if c.Unit != nil && !c.Unit.Valid() {
		return reject(errs.CodeInvalidUnit,
			fmt.Sprintf("unité « %s » inconnue", *c.Unit),
			fmt.Sprintf("unknown unit %q", *c.Unit))
	}

	for _, r := range kindRules {
		if err := r(c); err != nil {
			return err
		}
	}
	return nil
}

func requireQuantity(fr, en string, min, max float64) rule {
	return func(c models.ActivityCandidate) *errs.Error {
		if c.Quantity == nil {
			return reject(errs.CodeMissingField,
				fmt.Sprintf("%s manquante", fr),
				fmt.Sprintf("missing %s", en))
		}
		if q := *c.Quantity; q < min || q > max {
			return reject(errs.CodeQuantityOutOfRange,
				fmt.Sprintf("%s hors limites (%g doit être entre %g et %g)", fr, q, min, max),
				fmt.Sprintf("%s out of range (%g must be between %g and %g)", en, q, min, max))
		}
		return nil
	}
}

func requireText(fr, en string, get func(models.ActivityCandidate) *string, minLen int) rule {
	return func(c models.ActivityCandidate) *errs.Error {
		v := get(c)
		if v == nil || *v == "" {
			return reject(errs.CodeMissingField,
				fmt.Sprintf("%s manquant(e)", fr),
				fmt.Sprintf("missing %s", en))
		}
		if len([]rune(strings.TrimSpace(*v))) < minLen {
			return reject(errs.CodeTextTooShort,
				fmt.Sprintf("%s trop court(e) (%d caractères minimum)", fr, minLen),
				fmt.Sprintf("%s too short (at least %d characters)", en, minLen))
		}
		return nil
	}
}

func maxLength(fr, en string, get func(models.ActivityCandidate) *string, maxLen int) rule {
	return func(c models.ActivityCandidate) *errs.Error {
		if v := get(c); v != nil && len([]rune(*v)) > maxLen {
			return reject(errs.CodeTextTooLong,
				fmt.Sprintf("%s trop long (%d caractères maximum)", fr, maxLen),
				fmt.Sprintf("%s too long (at most %d characters)", en, maxLen))
		}
		return nil
	}
}

func unitOneOf(allowed ...models.Unit) rule {
	return func(c models.ActivityCandidate) *errs.Error {
		if c.Unit == nil {
			return nil
		}
		for _, u := range allowed {
			if *c.Unit == u {
				return nil
			}
		}
		return reject(errs.CodeInvalidUnit,
			fmt.Sprintf("unité « %s » non reconnue pour cette activité", *c.Unit),
			fmt.Sprintf("unit %q is not accepted for this activity", *c.Unit))
	}
}

// feedTypeNotBlank allows a missing feed type (inventory decides) but not an empty one.
func feedTypeNotBlank(c models.ActivityCandidate) *errs.Error {
	if c.FeedType != nil && strings.TrimSpace(*c.FeedType) == "" {
		return reject(errs.CodeMissingField, "type d'aliment vide", "empty feed type")
	}
	return nil
}

func reject(code, fr, en string) *errs.Error {
	return errs.New(errs.KindInputValidation, code, "Activité rejetée : "+fr+".", "Activity rejected: "+en+".")
}
