// Package temporal turns a spoken date reference ("yesterday", "il y a deux jours", "ayer") into a
// calendar date, rejecting future references and references older than the farm's backdating window.
package temporal

import (
	"time"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/textnorm"
)

// Resolution is a resolved activity date. Date is midnight of the day in the resolver's location;
// Timestamp keeps the current clock time shifted by the offset.
type Resolution struct {
	Date      time.Time
	Timestamp time.Time
	DaysAgo   int
	Language  string
	Matched   bool
}

// Resolver parses temporal references relative to its clock.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver builds a resolver working in loc (UTC when nil).
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, now: time.Now}
}

// WithClock overrides the time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve parses reference and enforces the backdating window. A nil or unrecognized reference
// resolves to now.
func (r *Resolver) Resolve(reference *string, maxBackdateDays int) (Resolution, error) {
	now := r.now().In(r.loc)
	if maxBackdateDays < 0 {
		maxBackdateDays = 0
	}

	res := Resolution{Timestamp: now, Date: startOfDay(now)}
	if reference == nil {
		return res, nil
	}

	text := normalize(*reference)
	if text == "" {
		return res, nil
	}

	if isFuture(text) {
		return Resolution{}, futureDate()
	}

	days, lang, ok := pastOffset(text, res.Date)
	if !ok {
		return res, nil
	}
	if days < 0 {
		return Resolution{}, futureDate()
	}

	if days > maxBackdateDays {
		return Resolution{}, errs.Newf(errs.KindTemporalPolicy, errs.CodeBackdateExceeded,
			"Cette activité date de plus de %d jours. Utilisez la procédure d'import des données historiques.",
			"This activity is older than %d days. Please use the historical data import process instead.",
			maxBackdateDays)
	}

	res.Timestamp = now.AddDate(0, 0, -days)
	if res.Timestamp.After(now) {
		return Resolution{}, futureDate()
	}
	res.Date = startOfDay(res.Timestamp)
	res.DaysAgo = days
	res.Language = lang
	res.Matched = true
	return res, nil
}

// IsFuture reports whether the reference contains forward-looking phrasing in any supported language.
func IsFuture(reference string) bool {
	return isFuture(normalize(reference))
}

func futureDate() *errs.Error {
	return errs.New(errs.KindTemporalPolicy, errs.CodeFutureDate,
		"Impossible d'enregistrer une activité future. Seules les activités passées ou du jour sont acceptées.",
		"Activities cannot be logged for the future. Only past or present activities are accepted.")
}

func normalize(reference string) string {
	text := textnorm.Fold(reference)
	for _, rw := range rewrites {
		text = rw.pattern.ReplaceAllString(text, rw.replacement)
	}
	return text
}

func isFuture(text string) bool {
	for _, rl := range futureRules {
		if rl.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

func pastOffset(text string, today time.Time) (int, string, bool) {
	for _, rl := range pastRules {
		m := rl.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if days, ok := rl.offset(m, today); ok {
			return days, rl.lang, true
		}
	}
	return 0, "", false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
