package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
)

// Wednesday 2026-10-14 09:30 UTC.
var fixedNow = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return NewResolver(time.UTC).WithClock(func() time.Time { return fixedNow })
}

func ref(s string) *string { return &s }

func TestResolveWithoutReferenceIsNow(t *testing.T) {
	res, err := newTestResolver().Resolve(nil, 7)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, res.Timestamp)
	assert.Equal(t, time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC), res.Date)
	assert.False(t, res.Matched)
}

func TestResolvePastPhrases(t *testing.T) {
	tests := []struct {
		reference string
		daysAgo   int
	}{
		{"yesterday evening", 1},
		{"the day before yesterday", 2},
		{"3 days ago", 3},
		{"two days ago", 2},
		{"last Monday", 2},
		{"last Wednesday", 7},
		{"hier soir", 1},
		{"avant-hier", 2},
		{"il y a deux jours", 2},
		{"lundi dernier", 2},
		{"ayer", 1},
		{"anteayer", 2},
		{"hace 4 días", 4},
		{"esta mañana", 0},
		{"today", 0},
	}
	r := newTestResolver()
	for _, tt := range tests {
		t.Run(tt.reference, func(t *testing.T) {
			res, err := r.Resolve(ref(tt.reference), 7)
			require.NoError(t, err)
			assert.Equal(t, tt.daysAgo, res.DaysAgo)
			assert.Equal(t, fixedNow.AddDate(0, 0, -tt.daysAgo).Day(), res.Date.Day())
			assert.True(t, res.Matched)
		})
	}
}

func TestResolveRejectsFuture(t *testing.T) {
	r := newTestResolver()
	for _, reference := range []string{
		"tomorrow",
		"fed the cows tomorrow morning",
		"next week",
		"in 2 days",
		"demain",
		"après-demain",
		"la semaine prochaine",
		"mañana",
		"pasado mañana",
		"dentro de tres días",
	} {
		t.Run(reference, func(t *testing.T) {
			_, err := r.Resolve(ref(reference), 30)
			require.Error(t, err)
			e, ok := errs.As(err)
			require.True(t, ok)
			assert.Equal(t, errs.KindTemporalPolicy, e.Kind)
			assert.Equal(t, errs.CodeFutureDate, e.Code)
			assert.NotEmpty(t, e.Message.FR)
			assert.NotEmpty(t, e.Message.EN)
			assert.True(t, IsFuture(reference))
		})
	}
}

func TestResolveRejectsBeyondBackdateWindow(t *testing.T) {
	_, err := newTestResolver().Resolve(ref("10 days ago"), 7)
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.CodeBackdateExceeded, e.Code)
	assert.Contains(t, e.Message.EN, "historical data import")
}

func TestResolveAcceptsWindowBoundary(t *testing.T) {
	res, err := newTestResolver().Resolve(ref("7 days ago"), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, res.DaysAgo)
}

func TestResolveUnrecognizedFallsBackToNow(t *testing.T) {
	res, err := newTestResolver().Resolve(ref("sometime around milking"), 7)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, res.Timestamp)
	assert.False(t, res.Matched)
}

func TestResolveHugeCountsAreStaleNotFuture(t *testing.T) {
	r := newTestResolver()
	for _, reference := range []string{
		"2635249153387078802 weeks ago",
		"9223372036854775807 days ago",
		"il y a 1317624576693539401 semaines",
	} {
		t.Run(reference, func(t *testing.T) {
			_, err := r.Resolve(ref(reference), 7)
			e, ok := errs.As(err)
			require.True(t, ok, "expected a classified error, got %v", err)
			assert.Equal(t, errs.CodeBackdateExceeded, e.Code)
		})
	}
}

func TestResolveNeverReturnsFutureTimestamp(t *testing.T) {
	res, err := newTestResolver().Resolve(ref("600 weeks ago"), 5000)
	require.NoError(t, err)
	assert.Equal(t, maxCountedDays, res.DaysAgo)
	assert.False(t, res.Timestamp.After(fixedNow))
}

func TestResolveReportsPhraseLanguage(t *testing.T) {
	tests := map[string]string{
		"yesterday":      "en",
		"il y a 3 jours": "fr",
		"hace dos dias":  "es",
	}
	for reference, lang := range tests {
		t.Run(reference, func(t *testing.T) {
			res, err := newTestResolver().Resolve(ref(reference), 7)
			require.NoError(t, err)
			assert.True(t, res.Matched)
			assert.Equal(t, lang, res.Language)
		})
	}
}
