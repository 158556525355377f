// Package identity maps a loose animal reference ("A002 Bessie", "bessie", "002") to one animal of
// the farm roster using scored matching. It never guesses: a weak or tied best match is reported.
package identity

import (
	"sort"
	"strings"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/textnorm"
)

const (
	// MinIdentifierLength is the shortest identifier considered reliable enough to match.
	MinIdentifierLength = 2
	// AcceptanceThreshold is the minimum score a match needs.
	AcceptanceThreshold = 60
	maxOptions          = 10
)

// Scores per strategy. Higher wins.
const (
	ScoreExact          = 100
	ScoreTagInRef       = 90
	ScoreNameInRef      = 80
	ScoreRefInTag       = 75
	ScoreRefInName      = 68
	partialCoverageDiff = 15
)

// scorer rates how well ref (folded) identifies an animal whose folded tag and name are given.
type scorer struct {
	name  string
	score func(ref, tag, name string) int
}

// strategies run in order; each animal keeps the best score any strategy gives it.
var strategies = []scorer{
	{"exact", func(ref, tag, name string) int {
		if ref == tag || ref == name {
			return ScoreExact
		}
		return 0
	}},
	{"tag_in_reference", func(ref, tag, _ string) int {
		if reliable(tag) && strings.Contains(ref, tag) {
			return ScoreTagInRef
		}
		return 0
	}},
	{"name_in_reference", func(ref, _, name string) int {
		if reliable(name) && containsWord(ref, name) {
			return ScoreNameInRef
		}
		return 0
	}},
	{"reference_in_tag", func(ref, tag, _ string) int {
		if tag != "" && strings.Contains(tag, ref) {
			return partialScore(ScoreRefInTag, ref, tag)
		}
		return 0
	}},
	{"reference_in_name", func(ref, _, name string) int {
		if name != "" && strings.Contains(name, ref) {
			return partialScore(ScoreRefInName, ref, name)
		}
		return 0
	}},
}

// Match is the animal chosen for a reference.
type Match struct {
	Animal   models.Animal
	Score    int
	Strategy string
}

type candidate struct {
	animal   models.Animal
	score    int
	strategy string
}

// Resolve picks the single best-matching animal for reference. It returns an ambiguous_reference
// error carrying the roster options when no confident, unique match exists.
func Resolve(reference string, roster []models.Animal) (Match, error) {
	ref := textnorm.Fold(reference)
	if len([]rune(ref)) < MinIdentifierLength {
		return Match{}, noMatch(reference, roster)
	}

	var scored []candidate
	for _, animal := range roster {
		tag := textnorm.Fold(animal.EarTag)
		name := textnorm.Fold(animal.Name)
		if tag == "" && name == "" {
			continue
		}
		best := candidate{animal: animal}
		for _, s := range strategies {
			if v := s.score(ref, tag, name); v > best.score {
				best.score = v
				best.strategy = s.name
			}
		}
		if best.score > 0 {
			scored = append(scored, best)
		}
	}

	if len(scored) == 0 {
		return Match{}, noMatch(reference, roster)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	top := scored[0]
	if top.score < AcceptanceThreshold {
		return Match{}, noMatch(reference, roster)
	}

	if len(scored) > 1 && scored[1].score == top.score {
		tied := make([]models.Animal, 0, len(scored))
		for _, c := range scored {
			if c.score == top.score {
				tied = append(tied, c.animal)
			}
		}
		return Match{}, errs.Newf(errs.KindAmbiguousReference, errs.CodeNeedsAnimalSelection,
			"Plusieurs animaux correspondent à « %s ». Lequel ?",
			"Several animals match %q. Which one?", reference).WithOptions(Options(tied)...)
	}

	return Match{Animal: top.animal, Score: top.score, Strategy: top.strategy}, nil
}

// NeedsSelection builds the clarification returned when an activity needs an animal and none was named.
func NeedsSelection(roster []models.Animal) *errs.Error {
	return errs.New(errs.KindAmbiguousReference, errs.CodeNeedsAnimalSelection,
		"Pour quel animal ? Veuillez choisir l'animal concerné.",
		"Which animal? Please select the animal this activity is for.").WithOptions(Options(roster)...)
}

// Options lists animal labels suitable for a clarification prompt.
func Options(animals []models.Animal) []string {
	out := make([]string, 0, len(animals))
	for _, a := range animals {
		if !a.IsActive() {
			continue
		}
		out = append(out, a.Label())
		if len(out) == maxOptions {
			break
		}
	}
	return out
}

func noMatch(reference string, roster []models.Animal) *errs.Error {
	return errs.Newf(errs.KindAmbiguousReference, errs.CodeNeedsAnimalSelection,
		"Aucun animal ne correspond à « %s ». Veuillez choisir l'animal concerné.",
		"No animal matches %q. Please select the animal this activity is for.", reference).WithOptions(Options(roster)...)
}

func reliable(field string) bool {
	return len([]rune(field)) >= MinIdentifierLength
}

// containsWord avoids matching short names inside unrelated words ("Al" in "alfalfa").
func containsWord(ref, name string) bool {
	for _, w := range strings.Fields(ref) {
		if w == name {
			return true
		}
	}
	if strings.Contains(name, " ") {
		return strings.Contains(ref, name)
	}
	return false
}

// partialScore rewards references that cover more of the field they are found in.
func partialScore(base int, ref, field string) int {
	coverage := float64(len(ref)) / float64(len(field))
	return base - partialCoverageDiff + int(coverage*partialCoverageDiff)
}
