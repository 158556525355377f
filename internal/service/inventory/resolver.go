// Package inventory resolves the feed named in an activity against the farm's feed inventory:
// it canonicalizes the feed type and converts count-based units (bales, bags, barrels) into
// kilograms using the oldest lot still in stock.
package inventory

import (
	"sort"
	"strings"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/textnorm"
)

// Strategy names the rule that produced a feed type.
type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyNormalized Strategy = "normalized"
	StrategySubstring  Strategy = "substring"
	StrategyInventory  Strategy = "inventory"
)

// Request is a feed reference to resolve.
type Request struct {
	FeedType *string
	Unit     models.Unit
	Quantity float64
}

// Resolution is a canonical feed type and the quantity converted to kilograms.
type Resolution struct {
	FeedType        string
	Strategy        Strategy
	Unit            models.Unit
	UnitCount       float64
	WeightPerUnitKg float64
	QuantityKg      float64
	EntryID         string
}

// Renamed reports whether the canonical feed type differs from what the farmhand said.
func (r Resolution) Renamed() bool {
	return r.Strategy == StrategySubstring || r.Strategy == StrategyInventory
}

type feedType struct {
	name string
	key  string
}

type matcher struct {
	strategy Strategy
	match    func(ref feedType, known []feedType) []feedType
}

// matchers run in order; the first one returning anything wins.
var matchers = []matcher{
	{StrategyExact, func(ref feedType, known []feedType) []feedType {
		return filter(known, func(ft feedType) bool { return strings.EqualFold(strings.TrimSpace(ref.name), ft.name) })
	}},
	{StrategyNormalized, func(ref feedType, known []feedType) []feedType {
		return filter(known, func(ft feedType) bool { return ref.key == ft.key })
	}},
	{StrategySubstring, func(ref feedType, known []feedType) []feedType {
		return filter(known, func(ft feedType) bool {
			return strings.Contains(ft.key, ref.key) || strings.Contains(ref.key, ft.key)
		})
	}},
}

// Resolver answers feed questions against one inventory snapshot. It is read-only and safe for
// concurrent use.
type Resolver struct {
	entries []models.FeedInventoryEntry
	types   []feedType
}

// NewResolver snapshots entries ordered oldest first.
func NewResolver(entries []models.FeedInventoryEntry) *Resolver {
	sorted := make([]models.FeedInventoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	return &Resolver{entries: sorted, types: distinctTypes(sorted)}
}

// Resolve canonicalizes the feed type (or infers it from the unit) and computes the mass in kilograms.
func (r *Resolver) Resolve(req Request) (Resolution, error) {
	unit := req.Unit
	if unit == "" {
		unit = models.UnitKilograms
	}

	var (
		name     string
		strategy Strategy
		err      error
	)
	if req.FeedType == nil || strings.EqualFold(strings.TrimSpace(*req.FeedType), models.UnknownFeedType) {
		name, err = r.Infer(unit)
		strategy = StrategyInventory
	} else {
		name, strategy, err = r.Canonicalize(*req.FeedType)
	}
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{FeedType: name, Strategy: strategy, Unit: unit}
	if unit.IsDirect() {
		res.QuantityKg = req.Quantity
		return res, nil
	}

	entry, err := r.OldestInStock(name, unit)
	if err != nil {
		return Resolution{}, err
	}
	res.UnitCount = req.Quantity
	res.WeightPerUnitKg = entry.WeightPerUnitKg
	res.QuantityKg = req.Quantity * entry.WeightPerUnitKg
	res.EntryID = entry.ID
	return res, nil
}

// Canonicalize maps a spoken feed type to the inventory spelling using exact, normalized and
// substring matching in that order.
func (r *Resolver) Canonicalize(spoken string) (string, Strategy, error) {
	ref := feedType{name: spoken, key: textnorm.Key(spoken)}
	if ref.key == "" {
		return "", "", absent(spoken)
	}

	for _, m := range matchers {
		found := m.match(ref, r.types)
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0].name, m.strategy, nil
		default:
			return "", "", errs.Newf(errs.KindAmbiguousReference, errs.CodeAmbiguousFeedType,
				"Plusieurs aliments correspondent à « %s ». Lequel ?",
				"Several feed types match %q. Which one?", spoken).WithOptions(names(found)...)
		}
	}
	return "", "", absent(spoken)
}

// Infer picks the feed type when the farmhand only named a unit. Direct units consider every lot.
func (r *Resolver) Infer(unit models.Unit) (string, error) {
	var candidates []models.FeedInventoryEntry
	for _, e := range r.entries {
		if !e.InStock() {
			continue
		}
		if unit.IsCountBased() && e.Unit != unit {
			continue
		}
		candidates = append(candidates, e)
	}

	found := distinctTypes(candidates)
	switch len(found) {
	case 0:
		return "", errs.Newf(errs.KindInventoryAbsence, errs.CodeFeedNotInInventory,
			"Aucun aliment en stock pour l'unité « %s ». Enregistrez d'abord l'inventaire.",
			"No feed in stock is measured in %s. Please record the inventory first.", unit)
	case 1:
		return found[0].name, nil
	default:
		return "", errs.Newf(errs.KindAmbiguousReference, errs.CodeAmbiguousFeedType,
			"Quel aliment avez-vous donné ? Plusieurs aliments en %s sont en stock.",
			"Which feed did you give? Several feed types in %s are in stock.", unit).WithOptions(names(found)...)
	}
}

// OldestInStock returns the first-in lot of feedType measured in unit with feed remaining.
func (r *Resolver) OldestInStock(name string, unit models.Unit) (models.FeedInventoryEntry, error) {
	key := textnorm.Key(name)
	var otherUnits []string
	for _, e := range r.entries {
		if textnorm.Key(e.FeedType) != key || !e.InStock() {
			continue
		}
		if e.Unit != unit {
			otherUnits = appendUnique(otherUnits, string(e.Unit))
			continue
		}
		if e.WeightPerUnitKg <= 0 {
			continue
		}
		return e, nil
	}
	return models.FeedInventoryEntry{}, errs.Newf(errs.KindInventoryAbsence, errs.CodeFeedNotInInventory,
		"Pas de stock de « %s » en %s. Enregistrez d'abord l'inventaire.",
		"No %q stock measured in %s. Please record the inventory first.", name, unit).WithOptions(otherUnits...)
}

func absent(spoken string) *errs.Error {
	return errs.Newf(errs.KindInventoryAbsence, errs.CodeFeedNotInInventory,
		"L'aliment « %s » n'existe pas dans l'inventaire. Enregistrez-le avant de saisir cette activité.",
		"Feed %q is not in the inventory. Please record it before logging this activity.", spoken)
}

func distinctTypes(entries []models.FeedInventoryEntry) []feedType {
	seen := make(map[string]bool)
	var out []feedType
	for _, e := range entries {
		key := textnorm.Key(e.FeedType)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, feedType{name: strings.TrimSpace(e.FeedType), key: key})
	}
	return out
}

func filter(types []feedType, keep func(feedType) bool) []feedType {
	var out []feedType
	for _, ft := range types {
		if keep(ft) {
			out = append(out, ft)
		}
	}
	return out
}

func names(types []feedType) []string {
	out := make([]string, 0, len(types))
	for _, ft := range types {
		out = append(out, ft.name)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
