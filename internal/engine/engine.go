// Package engine composes the indexing, aggregation, coverage and cache
// components behind one explicit root object. The engine is constructed
// once at process start and passed by reference; there is no package
// global state.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"fx-data/internal/aggregate"
	"fx-data/internal/app"
	"fx-data/internal/barbuild"
	"fx-data/internal/cache"
	"fx-data/internal/coverage"
	"fx-data/internal/index"
	"fx-data/internal/model"
	"fx-data/internal/parquetx"
	"fx-data/internal/timeframe"
	"fx-data/internal/warmup"
)

// Engine is the composition root over all data-engine components.
type Engine struct {
	Config     *app.Config
	Rules      *coverage.Rules
	Ticks      *index.Index
	Bars       *index.Index
	Aggregator *aggregate.Aggregator
	Analyzer   *coverage.Analyzer
	Coverage   *cache.CoverageCache
	Discovery  *cache.DiscoveryCache
	Planner    *warmup.Planner
	Log        *slog.Logger
}

// NewEngine wires all components over the configured data directory.
func NewEngine(cfg *app.Config, logger *slog.Logger, rules *coverage.Rules, analyzer *coverage.Analyzer) *Engine {
	ticks := index.New(index.Options{
		DataDir:         cfg.DataDir,
		ArtifactPath:    cfg.TickIndexPath(),
		Kind:            index.KindTicks,
		SampleThreshold: cfg.SampleThresholdBytes,
		SampleRows:      cfg.SampleRows,
		Logger:          logger,
	})
	bars := index.New(index.Options{
		DataDir:         cfg.DataDir,
		ArtifactPath:    cfg.BarIndexPath(),
		Kind:            index.KindBars,
		SampleThreshold: cfg.SampleThresholdBytes,
		SampleRows:      cfg.SampleRows,
		Logger:          logger,
	})
	return &Engine{
		Config:     cfg,
		Rules:      rules,
		Ticks:      ticks,
		Bars:       bars,
		Aggregator: aggregate.NewAggregator(cfg.HistoryCap),
		Analyzer:   analyzer,
		Coverage:   cache.NewCoverageCache(cfg.CoverageCacheDir(), cfg.DataDir, ticks, analyzer, logger),
		Discovery:  cache.NewDiscoveryCache(cfg.DiscoveryCacheDir(), cfg.DataDir, logger),
		Planner:    warmup.NewPlanner(tickFiles{ix: ticks}, logger),
		Log:        logger,
	}
}

// IngestTick feeds one live tick into the incremental aggregator and
// returns the updated current bar per timeframe.
func (e *Engine) IngestTick(t model.Tick, tfs []timeframe.Timeframe) map[timeframe.Timeframe]*model.Bar {
	if len(tfs) == 0 {
		tfs = timeframe.All
	}
	return e.Aggregator.IngestTick(t, tfs)
}

// tickFiles adapts the tick index to the planner's TickSource contract.
type tickFiles struct{ ix *index.Index }

func (t tickFiles) TickFiles(source, symbol string, from, to time.Time) []string {
	return t.ix.RelevantFiles(index.Query{Source: source, Symbol: symbol, From: from, To: to})
}

// RebuildIndexes refreshes both indices. A duplicate import aborts with
// the comparative report in the error.
func (e *Engine) RebuildIndexes(force bool) error {
	if err := e.Ticks.Refresh(force); err != nil {
		var dup *index.DuplicateError
		if errors.As(err, &dup) {
			return fmt.Errorf("%w\n%s", err, dup.Report())
		}
		return err
	}
	return e.Bars.Refresh(force)
}

// Status renders a per-source/symbol/kind file summary from the
// discovery cache.
func (e *Engine) Status() (string, error) {
	var b strings.Builder
	sources := e.Ticks.Sources()
	if len(sources) == 0 {
		return "no indexed data\n", nil
	}
	for _, source := range sources {
		fmt.Fprintf(&b, "source %s\n", source)
		for _, symbol := range e.Ticks.Symbols(source) {
			for _, kind := range []index.Kind{index.KindTicks, index.KindBars} {
				files, err := e.Discovery.Get(source, symbol, kind)
				if err != nil {
					fmt.Fprintf(&b, "  %-10s %-5s scan failed: %v\n", symbol, kind, err)
					continue
				}
				var rows, size int64
				for _, f := range files {
					rows += f.Rows
					size += f.SizeBytes
				}
				fmt.Fprintf(&b, "  %-10s %-5s files=%d rows=%d bytes=%d\n", symbol, kind, len(files), rows, size)
			}
		}
	}
	return b.String(), nil
}

// ShowCoverage returns the (cached) coverage report for one symbol of
// the configured source.
func (e *Engine) ShowCoverage(symbol string) (*coverage.Report, error) {
	return e.Coverage.Get(e.Config.Source, symbol)
}

// ValidateCoverage reports every symbol of the configured source,
// sorted; symbols with issues are listed in the returned summary.
func (e *Engine) ValidateCoverage() ([]*coverage.Report, []string, error) {
	symbols := e.Ticks.Symbols(e.Config.Source)
	reports := make([]*coverage.Report, 0, len(symbols))
	var issues []string
	for _, symbol := range symbols {
		r, err := e.Coverage.Get(e.Config.Source, symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("coverage for %s: %w", symbol, err)
		}
		reports = append(reports, r)
		if r.HasIssues || r.TimezoneSuspect {
			issues = append(issues, symbol)
		}
	}
	sort.Strings(issues)
	return reports, issues, nil
}

// RebuildCoverage bulk-populates the coverage cache.
func (e *Engine) RebuildCoverage(force bool) cache.Outcome {
	return e.Coverage.BuildAll(force)
}

// ClearCaches removes all coverage and discovery artifacts.
func (e *Engine) ClearCaches() (int, error) {
	n1, err := e.Coverage.Clear()
	if err != nil {
		return n1, err
	}
	n2, err := e.Discovery.Clear()
	return n1 + n2, err
}

// BuildBars renders bar files for the given symbols and timeframes of
// the configured source, then refreshes the bar index. Empty symbols
// selects every indexed symbol; empty timeframes selects all.
func (e *Engine) BuildBars(symbols []string, tfs []timeframe.Timeframe) (barbuild.RunStats, error) {
	if len(symbols) == 0 {
		symbols = e.Ticks.Symbols(e.Config.Source)
	}
	if len(tfs) == 0 {
		tfs = timeframe.All
	}
	builder := barbuild.NewBuilder(e.Config.DataDir, e.Ticks, e.Config.BuildWorkers, e.Log)
	stats, err := builder.Run(e.Config.Source, symbols, tfs)
	if err != nil {
		return stats, err
	}
	return stats, e.Bars.Refresh(true)
}

// BarSeries loads the bar series for (symbol, timeframe) restricted to
// [from, to). Missing data yields an empty slice plus a warning.
func (e *Engine) BarSeries(symbol string, tf timeframe.Timeframe, from, to time.Time) []model.Bar {
	paths := e.Bars.RelevantFiles(index.Query{
		Source: e.Config.Source, Symbol: symbol, Timeframe: tf, From: from, To: to,
	})
	var out []model.Bar
	for _, p := range paths {
		bars, err := parquetx.ReadAll[model.Bar](p)
		if err != nil {
			e.Log.Warn("skipping unreadable bar file", "path", p, "error", err)
			continue
		}
		for _, b := range bars {
			ts := b.Time()
			if !ts.Before(from) && ts.Before(to) {
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart < out[j].BucketStart })
	return out
}
