// Package index maintains persisted metadata indices over on-disk tick
// and bar files, answering time-range file-selection queries without
// opening every file on every query.
package index

import (
	"time"

	"fx-data/internal/timeframe"
)

// Kind selects which file family an index covers.
type Kind string

const (
	KindTicks Kind = "ticks"
	KindBars  Kind = "bars"
)

// SessionHistogram counts sampled ticks per UTC trading session.
type SessionHistogram struct {
	SydneyTokyo int64
	London      int64
	NewYork     int64
	Transition  int64
}

// Entry is the indexed metadata of one data file. Per (source, symbol)
// entry lists are sorted by Start and assumed non-overlapping; origin
// collisions are duplicate-import errors, never merged.
type Entry struct {
	Path      string
	Source    string
	Symbol    string
	Kind      Kind
	Timeframe timeframe.Timeframe // bars only
	Origin    string              // originating import filename
	Start     time.Time
	End       time.Time
	Rows      int64
	SizeBytes int64
	ModTime   time.Time

	// Tick domain stats (sampled above the size threshold).
	SpreadMean float64
	SpreadMax  float64
	Sessions   SessionHistogram

	// Bar domain stats.
	RealBars      int64
	SyntheticBars int64

	Sampled bool
}

// Overlaps reports whether the entry's [Start, End] interval intersects
// [from, to].
func (e Entry) Overlaps(from, to time.Time) bool {
	return !e.Start.After(to) && !e.End.Before(from)
}
