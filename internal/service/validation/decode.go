package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/textnorm"
)

var kindSynonyms = map[string]models.ActivityKind{
	"milking": models.KindMilking, "milk": models.KindMilking, "traite": models.KindMilking, "ordeno": models.KindMilking,
	"feeding": models.KindFeeding, "feed": models.KindFeeding, "alimentation": models.KindFeeding, "alimentacion": models.KindFeeding,
	"health_observation": models.KindHealthObservation, "health": models.KindHealthObservation, "sante": models.KindHealthObservation, "salud": models.KindHealthObservation,
	"weight_measurement": models.KindWeightMeasurement, "weight": models.KindWeightMeasurement, "weighing": models.KindWeightMeasurement, "pesee": models.KindWeightMeasurement, "peso": models.KindWeightMeasurement,
	"injection": models.KindInjection, "vaccination": models.KindInjection, "treatment": models.KindInjection, "inyeccion": models.KindInjection,
	"cleaning": models.KindCleaning, "nettoyage": models.KindCleaning, "limpieza": models.KindCleaning,
}

var unitSynonyms = map[string]models.Unit{
	"bale": models.UnitBales, "bales": models.UnitBales, "botte": models.UnitBales, "bottes": models.UnitBales, "paca": models.UnitBales, "pacas": models.UnitBales,
	"bag": models.UnitBags, "bags": models.UnitBags, "sac": models.UnitBags, "sacs": models.UnitBags, "saco": models.UnitBags, "sacos": models.UnitBags, "bulto": models.UnitBags, "bultos": models.UnitBags,
	"barrel": models.UnitBarrels, "barrels": models.UnitBarrels, "baril": models.UnitBarrels, "barils": models.UnitBarrels, "tonneau": models.UnitBarrels, "tonneaux": models.UnitBarrels, "barril": models.UnitBarrels, "barriles": models.UnitBarrels,
	"kg": models.UnitKilograms, "kgs": models.UnitKilograms, "kilo": models.UnitKilograms, "kilos": models.UnitKilograms, "kilogram": models.UnitKilograms, "kilograms": models.UnitKilograms, "kilogramme": models.UnitKilograms, "kilogrammes": models.UnitKilograms, "kilogramo": models.UnitKilograms, "kilogramos": models.UnitKilograms,
	"l": models.UnitLiters, "liter": models.UnitLiters, "liters": models.UnitLiters, "litre": models.UnitLiters, "litres": models.UnitLiters, "litro": models.UnitLiters, "litros": models.UnitLiters,
}

var unknownMarkers = map[string]bool{
	"unknown": true, "inconnu": true, "desconocido": true, "unspecified": true, "n/a": true, "none": true,
}

// ParseCandidate decodes one untyped oracle result. Field types are checked; values are not
// range-checked here (see Validate).
func ParseCandidate(raw map[string]any) (models.ActivityCandidate, error) {
	var c models.ActivityCandidate

	kindText, err := stringField(raw, "type", "kind", "activity_type")
	if err != nil {
		return c, err
	}
	if kindText == nil {
		return c, invalid("le type d'activité est manquant", "the activity type is missing")
	}
	kind, ok := kindSynonyms[strings.NewReplacer(" ", "_", "-", "_").Replace(textnorm.Fold(*kindText))]
	if !ok {
		return c, invalid(fmt.Sprintf("type d'activité inconnu « %s »", *kindText), fmt.Sprintf("unknown activity type %q", *kindText))
	}
	c.Kind = kind

	if c.AnimalRef, err = stringField(raw, "animal", "animal_ref", "animal_identifier", "ear_tag"); err != nil {
		return c, err
	}
	if c.Quantity, err = numberField(raw, "quantity", "amount"); err != nil {
		return c, err
	}

	unitText, err := stringField(raw, "unit")
	if err != nil {
		return c, err
	}
	if unitText != nil && strings.TrimSpace(*unitText) != "" {
		folded := textnorm.Fold(*unitText)
		unit, ok := unitSynonyms[folded]
		if !ok {
			unit = models.Unit(folded)
		}
		c.Unit = &unit
	}

	if c.FeedType, err = stringField(raw, "feed_type", "feed"); err != nil {
		return c, err
	}
	if c.FeedType != nil && unknownMarkers[textnorm.Fold(*c.FeedType)] {
		marker := models.UnknownFeedType
		c.FeedType = &marker
	}

	if c.Medicine, err = stringField(raw, "medicine", "medication"); err != nil {
		return c, err
	}
	if c.Dosage, err = stringField(raw, "dosage", "dose"); err != nil {
		return c, err
	}
	if c.Notes, err = stringField(raw, "notes", "observation", "description"); err != nil {
		return c, err
	}
	if c.DateReference, err = stringField(raw, "date_reference", "date", "when"); err != nil {
		return c, err
	}

	return c, nil
}

// stringField reads the first present key. Numbers are accepted and formatted, since ear tags and
// dosages are often spoken as bare numbers.
func stringField(raw map[string]any, keys ...string) (*string, error) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return &t, nil
		case float64:
			s := strconv.FormatFloat(t, 'f', -1, 64)
			return &s, nil
		case int:
			s := strconv.Itoa(t)
			return &s, nil
		default:
			return nil, invalid(fmt.Sprintf("le champ « %s » doit être un texte", key),
				fmt.Sprintf("field %q must be text", key))
		}
	}
	return nil, nil
}

func numberField(raw map[string]any, keys ...string) (*float64, error) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		var f float64
		switch t := v.(type) {
		case float64:
			f = t
		case int:
			f = float64(t)
		case string:
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
			if err != nil {
				return nil, invalid(fmt.Sprintf("la quantité « %s » n'est pas un nombre", t),
					fmt.Sprintf("quantity %q is not a number", t))
			}
			f = parsed
		default:
			return nil, invalid(fmt.Sprintf("le champ « %s » doit être un nombre", key),
				fmt.Sprintf("field %q must be a number", key))
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid("quantité invalide", "invalid quantity")
		}
		return &f, nil
	}
	return nil, nil
}

func invalid(fr, en string) *errs.Error {
	return reject(errs.CodeInvalidCandidate, fr, en)
}
