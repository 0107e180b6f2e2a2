package coverage

import (
	"fmt"
	"log/slog"
	"time"

	"fx-data/internal/index"
)

// Analyzer walks consecutive index entries and emits a classified
// continuity report. Construction fails on invalid rules; analysis
// itself never fails on data availability.
type Analyzer struct {
	rules *Rules
	loc   *time.Location
	log   *slog.Logger
}

// NewAnalyzer validates the rules and resolves the calendar timezone.
func NewAnalyzer(rules *Rules, logger *slog.Logger) (*Analyzer, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(rules.Timezone)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{rules: rules, loc: loc, log: logger}, nil
}

// Analyze builds the coverage report for one sorted (source, symbol)
// index bucket. Identical input yields a byte-identical report.
func (a *Analyzer) Analyze(source, symbol string, entries []index.Entry) *Report {
	r := &Report{
		Source:  source,
		Symbol:  symbol,
		Entries: entries,
		Counts:  map[Category]int{},
	}
	if len(entries) == 0 {
		a.log.Warn("no entries to analyze", "source", source, "symbol", symbol)
		return r
	}
	r.FirstStart = entries[0].Start
	r.LastEnd = entries[len(entries)-1].End

	for i := 1; i < len(entries); i++ {
		g := a.classify(entries[i-1].End, entries[i].Start)
		r.Gaps = append(r.Gaps, g)
		r.Counts[g.Category]++
		if g.TimezoneSuspect {
			r.TimezoneSuspect = true
		}
	}
	r.HasIssues = r.Counts[Moderate]+r.Counts[Large] > 0
	return r
}

// classify maps one inter-entry interval to exactly one category.
// The chain is ordered and ends in a catch-all, which makes the
// taxonomy exhaustive and mutually exclusive by construction.
func (a *Analyzer) classify(start, end time.Time) Gap {
	elapsed := end.Sub(start)
	g := Gap{Start: start.UTC(), End: end.UTC(), Duration: elapsed}

	switch {
	case elapsed <= 0:
		g.Category = Seamless
		g.Reason = "contiguous coverage"
	case a.weekendMatch(start, end):
		g.Category = Weekend
		g.Reason = fmt.Sprintf("market closure %s over the weekend boundary", fmtDur(elapsed))
		a.crossCheck(&g)
	case a.holidayMatch(start, end, &g):
		// Category, Reason set by holidayMatch.
		a.crossCheck(&g)
	case elapsed < a.rules.ShortThreshold.Std():
		g.Category = Short
		g.Reason = fmt.Sprintf("%s silence below short threshold", fmtDur(elapsed))
	case elapsed < a.rules.ModerateThreshold.Std():
		g.Category = Moderate
		g.Reason = fmt.Sprintf("%s of missing data", fmtDur(elapsed))
	default:
		g.Category = Large
		g.Reason = fmt.Sprintf("%s of missing data", fmtDur(elapsed))
	}
	return g
}

// weekendMatch tests the gap against the expected Friday-close to
// Sunday-open closure window, anchored to the Friday of the gap-start
// week, within the configured tolerance on both boundaries.
func (a *Analyzer) weekendMatch(start, end time.Time) bool {
	tol := a.rules.WeekendTolerance.Std()
	if tol <= 0 {
		return false
	}
	d := start.UTC()
	daysSinceFriday := (int(d.Weekday()) - int(time.Friday) + 7) % 7
	fridayClose := time.Date(d.Year(), d.Month(), d.Day(), a.rules.WeekendCloseHour, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceFriday)
	if absDur(start.Sub(fridayClose)) > tol {
		return false
	}
	sundayOpen := time.Date(fridayClose.Year(), fridayClose.Month(), fridayClose.Day(),
		a.rules.WeekendOpenHour, 0, 0, 0, time.UTC).AddDate(0, 0, 2)
	return absDur(end.Sub(sundayOpen)) <= tol
}

// holidayMatch tests whether the gap midpoint lands on a configured
// holiday date and the closure length fits a one-day window.
func (a *Analyzer) holidayMatch(start, end time.Time, g *Gap) bool {
	tol := a.rules.WeekendTolerance.Std()
	elapsed := end.Sub(start)
	if elapsed > 24*time.Hour+2*tol {
		return false
	}
	mid := start.Add(elapsed / 2).UTC()
	for _, h := range a.rules.Holidays {
		dayStart, dayEnd := h.window()
		if !mid.Before(dayStart) && mid.Before(dayEnd) {
			g.Category = Holiday
			g.Reason = fmt.Sprintf("market closure for %s (%s)", h.Name, h.Date)
			return true
		}
	}
	return false
}

// crossCheck renders the gap boundaries in the configured local
// calendar and flags the gap when either boundary's UTC offset matches
// none of the expected standard/DST offsets. This catches systematic
// source-timestamp misconfiguration at the import boundary.
func (a *Analyzer) crossCheck(g *Gap) {
	const layout = "2006-01-02 15:04 MST"
	ls := g.Start.In(a.loc)
	le := g.End.In(a.loc)
	g.LocalStart = ls.Format(layout)
	g.LocalEnd = le.Format(layout)
	if !a.offsetExpected(ls) || !a.offsetExpected(le) {
		g.TimezoneSuspect = true
	}
}

func (a *Analyzer) offsetExpected(t time.Time) bool {
	_, offset := t.Zone()
	for _, want := range a.rules.ExpectedOffsets {
		if offset == want {
			return true
		}
	}
	return false
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func fmtDur(d time.Duration) string {
	return d.Round(time.Minute).String()
}
