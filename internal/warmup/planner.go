// Package warmup plans the historical lookback needed before a
// scenario's evaluation window so stateful indicators start seeded.
package warmup

import (
	"log/slog"
	"sort"
	"time"

	"fx-data/internal/aggregate"
	"fx-data/internal/model"
	"fx-data/internal/parquetx"
	"fx-data/internal/timeframe"
)

// RequirementProvider is the capability contract a consumer implements
// to declare its bar needs. The planner depends on this interface
// exclusively; no attribute probing.
type RequirementProvider interface {
	RequiredTimeframes() []timeframe.Timeframe
	WarmupRequirements() map[timeframe.Timeframe]int
}

// AggregateRequirements reduces heterogeneous per-consumer requirements
// to minutes needed per timeframe: minutes = tf minutes × bars, taking
// the maximum across duplicate timeframe entries from different
// requesters.
func AggregateRequirements(providers []RequirementProvider) map[timeframe.Timeframe]int {
	maxBars := map[timeframe.Timeframe]int{}
	for _, p := range providers {
		for tf, bars := range p.WarmupRequirements() {
			if !timeframe.Valid(tf) || bars <= 0 {
				continue
			}
			if bars > maxBars[tf] {
				maxBars[tf] = bars
			}
		}
	}
	minutes := make(map[timeframe.Timeframe]int, len(maxBars))
	for tf, bars := range maxBars {
		minutes[tf] = tf.Minutes() * bars
	}
	return minutes
}

// TickSource selects tick file paths for a time range; the tick file
// index satisfies this.
type TickSource interface {
	TickFiles(source, symbol string, from, to time.Time) []string
}

// Planner prepares per-timeframe historical bar slices ahead of a
// scenario start. Insufficient source history degrades to a shorter or
// empty slice plus a warning; availability never raises.
type Planner struct {
	ticks TickSource
	log   *slog.Logger
}

// NewPlanner wires a planner over a tick source.
func NewPlanner(ticks TickSource, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{ticks: ticks, log: logger}
}

// PrepareHistory renders the warmup bars per timeframe for the window
// [scenarioStart − max(requirements), scenarioStart), sliced to the
// requested bar count per timeframe.
func (p *Planner) PrepareHistory(source, symbol string, scenarioStart time.Time, requirements map[timeframe.Timeframe]int) map[timeframe.Timeframe][]model.Bar {
	out := make(map[timeframe.Timeframe][]model.Bar, len(requirements))

	maxMinutes := 0
	for tf, bars := range requirements {
		if m := tf.Minutes() * bars; m > maxMinutes {
			maxMinutes = m
		}
	}
	if maxMinutes == 0 {
		return out
	}

	from := scenarioStart.Add(-time.Duration(maxMinutes) * time.Minute)
	ticks := p.loadTicks(source, symbol, from, scenarioStart)

	for tf, want := range requirements {
		if want <= 0 {
			continue
		}
		bars := aggregate.RenderHistorical(ticks, tf)
		// Keep only buckets fully closed by the scenario boundary; the
		// trailing bucket counts when the boundary itself closes it.
		complete := bars[:0:0]
		for _, b := range bars {
			if timeframe.IsBucketComplete(b.Time(), scenarioStart, tf) {
				b.Complete = true
				complete = append(complete, b)
			}
		}
		if len(complete) > want {
			complete = complete[len(complete)-want:]
		}
		if len(complete) < want {
			p.log.Warn("insufficient warmup history",
				"source", source, "symbol", symbol, "timeframe", tf,
				"requested", want, "available", len(complete))
		}
		out[tf] = complete
	}
	return out
}

// loadTicks reads and merges the relevant tick files, keeping only rows
// inside [from, to) in timestamp order.
func (p *Planner) loadTicks(source, symbol string, from, to time.Time) []model.Tick {
	var all []model.Tick
	for _, path := range p.ticks.TickFiles(source, symbol, from, to) {
		rows, err := parquetx.ReadAll[model.Tick](path)
		if err != nil {
			p.log.Warn("skipping unreadable tick file", "path", path, "error", err)
			continue
		}
		for _, t := range rows {
			ts := t.Time()
			if !ts.Before(from) && ts.Before(to) {
				all = append(all, t)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
	return all
}
