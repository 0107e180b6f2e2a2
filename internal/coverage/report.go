package coverage

import (
	"fmt"
	"strings"
	"time"

	"fx-data/internal/index"
)

// Report is the gap-classified continuity summary for one (source,
// symbol) index bucket. Rendering is fully deterministic: identical
// entries produce byte-identical output.
type Report struct {
	Source  string
	Symbol  string
	Entries []index.Entry

	FirstStart time.Time
	LastEnd    time.Time

	Gaps   []Gap
	Counts map[Category]int

	// HasIssues is set when unexplained moderate or large gaps exist.
	HasIssues bool
	// TimezoneSuspect is set when any calendar gap failed the offset
	// cross-check.
	TimezoneSuspect bool
}

// Recommendations keyed by category, surfaced in the rendered report.
var Recommendations = map[Category]string{
	Short:    "short silences are normal in quiet sessions; no action needed",
	Moderate: "verify the import run covering this window completed",
	Large:    "re-import the missing range before scheduling backtests over it",
}

// Summary is the machine-readable rendering for downstream schedulers.
type Summary struct {
	Source          string         `json:"source"`
	Symbol          string         `json:"symbol"`
	Files           int            `json:"files"`
	FirstStart      time.Time      `json:"first_start"`
	LastEnd         time.Time      `json:"last_end"`
	Gaps            []Gap          `json:"gaps"`
	Counts          map[string]int `json:"counts"`
	HasIssues       bool           `json:"has_issues"`
	TimezoneSuspect bool           `json:"timezone_suspect"`
}

// Summary returns the machine-readable form of the report.
func (r *Report) Summary() Summary {
	counts := make(map[string]int, len(r.Counts))
	for c, n := range r.Counts {
		counts[string(c)] = n
	}
	return Summary{
		Source:          r.Source,
		Symbol:          r.Symbol,
		Files:           len(r.Entries),
		FirstStart:      r.FirstStart,
		LastEnd:         r.LastEnd,
		Gaps:            r.Gaps,
		Counts:          counts,
		HasIssues:       r.HasIssues,
		TimezoneSuspect: r.TimezoneSuspect,
	}
}

// Text renders the human-readable multi-section report.
func (r *Report) Text() string {
	const ts = "2006-01-02 15:04:05"
	var b strings.Builder

	fmt.Fprintf(&b, "coverage report: %s / %s\n", r.Source, r.Symbol)
	fmt.Fprintf(&b, "files indexed: %d\n", len(r.Entries))
	if len(r.Entries) == 0 {
		b.WriteString("no data indexed for this symbol\n")
		return b.String()
	}
	fmt.Fprintf(&b, "coverage span: %s .. %s UTC\n\n",
		r.FirstStart.UTC().Format(ts), r.LastEnd.UTC().Format(ts))

	b.WriteString("gaps:\n")
	if len(r.Gaps) == 0 {
		b.WriteString("  (single file, no inter-file gaps)\n")
	}
	for _, g := range r.Gaps {
		fmt.Fprintf(&b, "  %-8s %s .. %s  %s",
			g.Category, g.Start.Format(ts), g.End.Format(ts), g.Reason)
		if g.LocalStart != "" {
			fmt.Fprintf(&b, "  [local %s .. %s]", g.LocalStart, g.LocalEnd)
		}
		if g.TimezoneSuspect {
			b.WriteString("  TIMEZONE SUSPECT")
		}
		b.WriteString("\n")
	}

	b.WriteString("\ncounts:\n")
	for _, c := range Categories {
		if n := r.Counts[c]; n > 0 {
			fmt.Fprintf(&b, "  %-8s %d\n", c, n)
		}
	}

	var recs []string
	for _, c := range Categories {
		if r.Counts[c] > 0 {
			if rec, ok := Recommendations[c]; ok {
				recs = append(recs, fmt.Sprintf("  %s: %s", c, rec))
			}
		}
	}
	if r.TimezoneSuspect {
		recs = append(recs, "  timezone: local offsets do not match the expected calendar; check source timestamp configuration")
	}
	if len(recs) > 0 {
		b.WriteString("\nrecommendations:\n")
		b.WriteString(strings.Join(recs, "\n"))
		b.WriteString("\n")
	}

	if r.HasIssues {
		b.WriteString("\nstatus: ISSUES FOUND (moderate/large gaps present)\n")
	} else {
		b.WriteString("\nstatus: ok\n")
	}
	return b.String()
}
