package cache

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fx-data/internal/coverage"
	"fx-data/internal/index"
	"fx-data/internal/parquetx"
)

// Version stamps coverage cache artifacts for migration detection.
const Version = "1"

// gapRow is the persisted per-gap payload. Report-level scalars live in
// the artifact's footer metadata so they are not repeated per row.
type gapRow struct {
	StartMs    int64  `parquet:"start_ms"`
	EndMs      int64  `parquet:"end_ms"`
	DurationMs int64  `parquet:"duration_ms"`
	Category   string `parquet:"category,dict"`
	Reason     string `parquet:"reason"`
	LocalStart string `parquet:"local_start"`
	LocalEnd   string `parquet:"local_end"`
	TzSuspect  bool   `parquet:"tz_suspect"`
}

// CoverageCache stores one coverage report artifact per (source, symbol),
// fingerprinted by the max mtime of the symbol's tick files.
type CoverageCache struct {
	dir      string // artifact root
	dataDir  string // source data root
	ticks    *index.Index
	analyzer *coverage.Analyzer
	log      *slog.Logger
}

// NewCoverageCache wires the cache over the tick index and analyzer.
func NewCoverageCache(dir, dataDir string, ticks *index.Index, analyzer *coverage.Analyzer, logger *slog.Logger) *CoverageCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoverageCache{dir: dir, dataDir: dataDir, ticks: ticks, analyzer: analyzer, log: logger}
}

func (c *CoverageCache) artifactPath(source, symbol string) string {
	return filepath.Join(c.dir, source, symbol+".parquet")
}

func (c *CoverageCache) tickDir(source, symbol string) string {
	return filepath.Join(c.dataDir, source, string(index.KindTicks), symbol)
}

// Get returns the cached report when its stored fingerprint is at least
// the current source fingerprint, otherwise recomputes and stores. A
// corrupt or unreadable artifact is a miss.
func (c *CoverageCache) Get(source, symbol string) (*coverage.Report, error) {
	fp := dirFingerprint(c.tickDir(source, symbol))
	if report, ok := c.load(source, symbol, fp); ok {
		return report, nil
	}
	return c.regenerate(source, symbol, fp)
}

// load attempts a cache hit; any failure is reported as a miss.
func (c *CoverageCache) load(source, symbol string, currentFP int64) (*coverage.Report, bool) {
	path := c.artifactPath(source, symbol)
	info, err := parquetx.ReadInfo(path)
	if err != nil {
		return nil, false
	}
	if info.Meta[parquetx.KeyVersion] != Version {
		c.log.Warn("incompatible cache artifact, recomputing", "path", path)
		return nil, false
	}
	stored, err := strconv.ParseInt(info.Meta[parquetx.KeyFingerprint], 10, 64)
	if err != nil || stored < currentFP {
		return nil, false
	}
	rows, err := parquetx.ReadAll[gapRow](path)
	if err != nil {
		c.log.Warn("unreadable cache artifact, recomputing", "path", path, "error", err)
		return nil, false
	}

	entries := c.ticks.Entries(source, symbol)
	r := &coverage.Report{
		Source:  source,
		Symbol:  symbol,
		Entries: entries,
		Counts:  map[coverage.Category]int{},
	}
	if len(entries) > 0 {
		r.FirstStart = entries[0].Start
		r.LastEnd = entries[len(entries)-1].End
	}
	for _, row := range rows {
		g := coverage.Gap{
			Start:           time.UnixMilli(row.StartMs).UTC(),
			End:             time.UnixMilli(row.EndMs).UTC(),
			Duration:        time.Duration(row.DurationMs) * time.Millisecond,
			Category:        coverage.Category(row.Category),
			Reason:          row.Reason,
			LocalStart:      row.LocalStart,
			LocalEnd:        row.LocalEnd,
			TimezoneSuspect: row.TzSuspect,
		}
		r.Gaps = append(r.Gaps, g)
		r.Counts[g.Category]++
		if g.TimezoneSuspect {
			r.TimezoneSuspect = true
		}
	}
	r.HasIssues = r.Counts[coverage.Moderate]+r.Counts[coverage.Large] > 0
	return r, true
}

func (c *CoverageCache) regenerate(source, symbol string, fp int64) (*coverage.Report, error) {
	entries := c.ticks.Entries(source, symbol)
	report := c.analyzer.Analyze(source, symbol, entries)
	if err := c.store(source, symbol, fp, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *CoverageCache) store(source, symbol string, fp int64, r *coverage.Report) error {
	rows := make([]gapRow, 0, len(r.Gaps))
	for _, g := range r.Gaps {
		rows = append(rows, gapRow{
			StartMs:    g.Start.UnixMilli(),
			EndMs:      g.End.UnixMilli(),
			DurationMs: g.Duration.Milliseconds(),
			Category:   string(g.Category),
			Reason:     g.Reason,
			LocalStart: g.LocalStart,
			LocalEnd:   g.LocalEnd,
			TzSuspect:  g.TimezoneSuspect,
		})
	}
	meta := parquetx.Meta{
		parquetx.KeySource:      source,
		parquetx.KeySymbol:      symbol,
		parquetx.KeyKind:        "coverage",
		parquetx.KeyVersion:     Version,
		parquetx.KeySourceDir:   c.tickDir(source, symbol),
		parquetx.KeyFingerprint: strconv.FormatInt(fp, 10),
		parquetx.KeyCreatedAt:   time.Now().UTC().Format(time.RFC3339),
		parquetx.KeyBuildID:     uuid.NewString(),
		"fx:files":              strconv.Itoa(len(r.Entries)),
		"fx:has_issues":         strconv.FormatBool(r.HasIssues),
	}
	for cat, n := range r.Counts {
		meta["fx:count_"+string(cat)] = strconv.Itoa(n)
	}
	return parquetx.WriteAtomic(c.artifactPath(source, symbol), rows, meta)
}

// BuildAll (re)populates artifacts for every indexed (source, symbol).
// force regenerates even fresh artifacts. Failures are recorded per key
// and the batch continues; units are independent, so this loop could be
// parallelized, but sequential processing keeps failure attribution
// deterministic.
func (c *CoverageCache) BuildAll(force bool) Outcome {
	var out Outcome
	for _, source := range c.ticks.Sources() {
		for _, symbol := range c.ticks.Symbols(source) {
			key := source + "/" + symbol
			fp := dirFingerprint(c.tickDir(source, symbol))
			if !force {
				if _, ok := c.load(source, symbol, fp); ok {
					out.Skipped++
					continue
				}
			}
			if _, err := c.regenerate(source, symbol, fp); err != nil {
				out.Failed++
				out.Errors = append(out.Errors, KeyError{Key: key, Err: err})
				c.log.Warn("coverage cache build failed", "key", key, "error", err)
				continue
			}
			out.Generated++
		}
	}
	c.log.Info("coverage cache build", "generated", out.Generated, "skipped", out.Skipped, "failed", out.Failed)
	return out
}

// Clear deletes all coverage artifacts, returning the count.
func (c *CoverageCache) Clear() (int, error) {
	n, err := clearDir(c.dir)
	if err != nil {
		return n, fmt.Errorf("clear coverage cache: %w", err)
	}
	return n, nil
}
