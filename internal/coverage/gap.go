// Package coverage classifies the intervals between indexed data files
// into an exhaustive, mutually exclusive gap taxonomy and renders
// continuity reports for downstream scheduling decisions.
package coverage

import "time"

// Category is one gap classification. The classifier is an ordered
// first-match rule chain ending in a catch-all, so every interval gets
// exactly one category.
type Category string

const (
	Seamless Category = "seamless"
	Weekend  Category = "weekend"
	Holiday  Category = "holiday"
	Short    Category = "short"
	Moderate Category = "moderate"
	Large    Category = "large"
)

// Categories in report order.
var Categories = []Category{Seamless, Weekend, Holiday, Short, Moderate, Large}

// Gap is one classified interval between two consecutive index entries.
type Gap struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	Category Category      `json:"category"`
	Reason   string        `json:"reason"`

	// Boundaries rendered in the configured local calendar timezone;
	// only filled for weekend/holiday gaps where the calendar cross-check
	// applies.
	LocalStart string `json:"local_start,omitempty"`
	LocalEnd   string `json:"local_end,omitempty"`

	// TimezoneSuspect is set when the local offset at a boundary matches
	// neither expected standard nor DST offset, which points at
	// source-timestamp misconfiguration upstream.
	TimezoneSuspect bool `json:"timezone_suspect,omitempty"`
}
