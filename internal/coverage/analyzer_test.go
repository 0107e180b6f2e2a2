package coverage

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-data/internal/index"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func testRules() *Rules {
	return &Rules{
		ShortThreshold:    Duration(30 * time.Minute),
		ModerateThreshold: Duration(4 * time.Hour),
		WeekendCloseHour:  22,
		WeekendOpenHour:   22,
		WeekendTolerance:  Duration(3 * time.Hour),
		Holidays:          []HolidayRule{{Date: "2024-01-01", Name: "New Year's Day"}},
		Timezone:          "America/New_York",
		ExpectedOffsets:   []int{-18000, -14400},
	}
}

func newTestAnalyzer(t *testing.T, rules *Rules) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(rules, testLog)
	require.NoError(t, err)
	return a
}

func span(start, end time.Time) index.Entry {
	return index.Entry{Start: start, End: end}
}

func TestAnalyzeWeekendScenario(t *testing.T) {
	a := newTestAnalyzer(t, testRules())

	// Jan 8 2024 is a Monday, Jan 12 a Friday. Two contiguous files over
	// the week, then the next week's file after the weekend closure.
	mon := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	wed := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	friEnd := time.Date(2024, 1, 12, 23, 59, 0, 0, time.UTC)
	nextMon := time.Date(2024, 1, 15, 0, 5, 0, 0, time.UTC)
	nextFri := time.Date(2024, 1, 19, 23, 59, 0, 0, time.UTC)

	r := a.Analyze("dukascopy", "EURUSD", []index.Entry{
		span(mon, wed),
		span(wed, friEnd),
		span(nextMon, nextFri),
	})

	require.Len(t, r.Gaps, 2)
	assert.Equal(t, Seamless, r.Gaps[0].Category)
	assert.Equal(t, Weekend, r.Gaps[1].Category)
	assert.Equal(t, 1, r.Counts[Weekend])
	assert.Zero(t, r.Counts[Moderate])
	assert.Zero(t, r.Counts[Large])
	assert.False(t, r.HasIssues)
	assert.False(t, r.TimezoneSuspect)
	assert.True(t, r.FirstStart.Equal(mon))
	assert.True(t, r.LastEnd.Equal(nextFri))

	// Calendar cross-check ran: boundaries rendered in local time.
	assert.Contains(t, r.Gaps[1].LocalStart, "EST")
}

func TestClassifyTaxonomy(t *testing.T) {
	a := newTestAnalyzer(t, testRules())
	// Tuesday mid-session, far from any weekend or holiday window.
	base := time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		gap  time.Duration
		want Category
	}{
		{"zero elapsed", 0, Seamless},
		{"overlap", -time.Minute, Seamless},
		{"below short threshold", 10 * time.Minute, Short},
		{"at short threshold", 30 * time.Minute, Moderate},
		{"below moderate threshold", 2 * time.Hour, Moderate},
		{"at moderate threshold", 4 * time.Hour, Large},
		{"midweek two days", 48 * time.Hour, Large},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := a.classify(base, base.Add(c.gap))
			assert.Equal(t, c.want, g.Category)
			assert.NotEmpty(t, g.Reason)
		})
	}
}

func TestClassifyHoliday(t *testing.T) {
	a := newTestAnalyzer(t, testRules())

	start := time.Date(2023, 12, 31, 21, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)
	g := a.classify(start, end)

	assert.Equal(t, Holiday, g.Category)
	assert.Contains(t, g.Reason, "New Year's Day")
	assert.NotEmpty(t, g.LocalStart)
}

func TestClassifyHolidayTooLong(t *testing.T) {
	a := newTestAnalyzer(t, testRules())

	// Midpoint still lands on the holiday, but the closure is far past a
	// one-day window, so it falls through to the duration chain.
	start := time.Date(2023, 12, 30, 12, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	g := a.classify(start, end)
	assert.Equal(t, Large, g.Category)
}

func TestWeekendNotMatchedMidweek(t *testing.T) {
	a := newTestAnalyzer(t, testRules())

	// Same ~49h span as a real weekend closure, anchored to a Tuesday.
	start := time.Date(2024, 1, 9, 22, 0, 0, 0, time.UTC)
	g := a.classify(start, start.Add(49*time.Hour))
	assert.Equal(t, Large, g.Category)
}

func TestWeekendToleranceBounds(t *testing.T) {
	a := newTestAnalyzer(t, testRules())
	friClose := time.Date(2024, 1, 12, 22, 0, 0, 0, time.UTC)
	sunOpen := time.Date(2024, 1, 14, 22, 0, 0, 0, time.UTC)

	assert.Equal(t, Weekend, a.classify(friClose, sunOpen).Category)
	assert.Equal(t, Weekend, a.classify(friClose.Add(3*time.Hour), sunOpen).Category)
	assert.Equal(t, Large, a.classify(friClose.Add(3*time.Hour+time.Minute), sunOpen).Category)
	assert.Equal(t, Large, a.classify(friClose, sunOpen.Add(3*time.Hour+time.Minute)).Category)
}

func TestTimezoneCrossCheck(t *testing.T) {
	rules := testRules()
	rules.ExpectedOffsets = []int{3600} // wrong on purpose
	a := newTestAnalyzer(t, rules)

	friClose := time.Date(2024, 1, 12, 22, 0, 0, 0, time.UTC)
	sunOpen := time.Date(2024, 1, 14, 22, 0, 0, 0, time.UTC)
	r := a.Analyze("dukascopy", "EURUSD", []index.Entry{
		span(friClose.Add(-24*time.Hour), friClose),
		span(sunOpen, sunOpen.Add(24*time.Hour)),
	})

	require.Len(t, r.Gaps, 1)
	assert.Equal(t, Weekend, r.Gaps[0].Category)
	assert.True(t, r.Gaps[0].TimezoneSuspect)
	assert.True(t, r.TimezoneSuspect)
	assert.Contains(t, r.Text(), "TIMEZONE SUSPECT")
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := newTestAnalyzer(t, testRules())
	entries := []index.Entry{
		span(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 12, 23, 59, 0, 0, time.UTC)),
		span(time.Date(2024, 1, 15, 0, 5, 0, 0, time.UTC), time.Date(2024, 1, 19, 23, 59, 0, 0, time.UTC)),
	}

	r1 := a.Analyze("dukascopy", "EURUSD", entries)
	r2 := a.Analyze("dukascopy", "EURUSD", entries)
	require.Equal(t, r1, r2)
	assert.Equal(t, r1.Text(), r2.Text())
}

func TestAnalyzeEmptyAndSingle(t *testing.T) {
	a := newTestAnalyzer(t, testRules())

	empty := a.Analyze("dukascopy", "EURUSD", nil)
	assert.Empty(t, empty.Gaps)
	assert.False(t, empty.HasIssues)
	assert.Contains(t, empty.Text(), "no data indexed")

	one := a.Analyze("dukascopy", "EURUSD", []index.Entry{
		span(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)),
	})
	assert.Empty(t, one.Gaps)
	assert.Contains(t, one.Text(), "no inter-file gaps")
}

func TestHasIssuesOnModerate(t *testing.T) {
	a := newTestAnalyzer(t, testRules())
	base := time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC)
	r := a.Analyze("dukascopy", "EURUSD", []index.Entry{
		span(base.Add(-24*time.Hour), base),
		span(base.Add(2*time.Hour), base.Add(24*time.Hour)),
	})

	assert.Equal(t, 1, r.Counts[Moderate])
	assert.True(t, r.HasIssues)
	assert.Contains(t, r.Text(), "ISSUES FOUND")
	assert.Contains(t, r.Text(), Recommendations[Moderate])
}

func TestSummary(t *testing.T) {
	a := newTestAnalyzer(t, testRules())
	entries := []index.Entry{
		span(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 12, 23, 59, 0, 0, time.UTC)),
		span(time.Date(2024, 1, 15, 0, 5, 0, 0, time.UTC), time.Date(2024, 1, 19, 23, 59, 0, 0, time.UTC)),
	}
	s := a.Analyze("dukascopy", "EURUSD", entries).Summary()

	assert.Equal(t, "dukascopy", s.Source)
	assert.Equal(t, "EURUSD", s.Symbol)
	assert.Equal(t, 2, s.Files)
	assert.Equal(t, 1, s.Counts["weekend"])
	assert.False(t, s.HasIssues)
}
