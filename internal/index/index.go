package index

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fx-data/internal/parquetx"
	"fx-data/internal/timeframe"
)

// Version stamps persisted index artifacts for migration detection.
const Version = "1"

// Options configures one file index.
type Options struct {
	// DataDir is the root of the source/kind/symbol layout.
	DataDir string
	// ArtifactPath is where the index itself is persisted.
	ArtifactPath string
	// Kind selects the file family (ticks or bars) this index covers.
	Kind Kind
	// SampleThreshold is the file size in bytes above which domain stats
	// are sampled instead of fully scanned.
	SampleThreshold int64
	// SampleRows caps the rows read when sampling.
	SampleRows int
	Logger     *slog.Logger
}

// Index answers time-range file-selection queries over the data layout.
// It rebuilds itself on read when the persisted artifact is missing or
// older than any matching data file. Deleted data files are not detected
// by the staleness check; a forced rebuild covers that case.
// Safe for concurrent readers; loads and rebuilds are serialized.
type Index struct {
	opts Options
	log  *slog.Logger

	mu sync.RWMutex
	// source → symbol → entries sorted by Start.
	buckets map[string]map[string][]Entry
	loaded  bool
}

// Query selects index entries by identity and interval overlap.
type Query struct {
	Source    string
	Symbol    string
	Timeframe timeframe.Timeframe // optional, bars only
	From, To  time.Time
}

// New creates an index over opts.DataDir. Nothing is read until the
// first query or an explicit Refresh.
func New(opts Options) *Index {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Index{opts: opts, log: log, buckets: map[string]map[string][]Entry{}}
}

// Refresh makes the in-memory index current: loads the persisted
// artifact if fresh, otherwise rebuilds from the data layout and
// persists the result atomically. force skips the staleness check.
func (ix *Index) Refresh(force bool) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.refreshLocked(force)
}

func (ix *Index) refreshLocked(force bool) error {
	if !force && ix.loaded && !ix.stale() {
		return nil
	}
	if !force && ix.artifactFresh() {
		if err := ix.loadArtifactLocked(); err == nil {
			return nil
		} else {
			ix.log.Warn("index artifact unreadable, rebuilding", "path", ix.opts.ArtifactPath, "error", err)
		}
	} else if !force {
		ix.log.Info("stale index detected, rebuilding", "kind", ix.opts.Kind)
	}
	if err := ix.buildLocked(); err != nil {
		return err
	}
	return ix.persistLocked()
}

// Build scans the data layout from scratch. A duplicate origin within a
// (source, symbol) bucket aborts the build with a *DuplicateError.
func (ix *Index) Build() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.buildLocked()
}

func (ix *Index) buildLocked() error {
	buckets := map[string]map[string][]Entry{}

	for _, dir := range ix.symbolDirs() {
		files, err := filepath.Glob(filepath.Join(dir.path, "*.parquet"))
		if err != nil {
			return err
		}
		sort.Strings(files)

		origins := map[string]Entry{}
		for _, f := range files {
			e, err := ix.scanFile(f, dir.source, dir.symbol)
			if err != nil {
				ix.log.Warn("skipping unreadable data file", "path", f, "error", err)
				continue
			}
			if ix.opts.Kind == KindTicks {
				if prev, ok := origins[e.Origin]; ok {
					return &DuplicateError{Origin: e.Origin, A: prev, B: e}
				}
				origins[e.Origin] = e
			}
			if buckets[dir.source] == nil {
				buckets[dir.source] = map[string][]Entry{}
			}
			buckets[dir.source][dir.symbol] = append(buckets[dir.source][dir.symbol], e)
		}
	}

	for _, symbols := range buckets {
		for _, entries := range symbols {
			sort.Slice(entries, func(i, j int) bool { return entries[i].Start.Before(entries[j].Start) })
		}
	}
	ix.buckets = buckets
	ix.loaded = true
	ix.log.Info("built index", "kind", ix.opts.Kind, "entries", ix.lenLocked())
	return nil
}

// Select returns the entries overlapping the query interval, in Start
// order. A linear scan per (source, symbol) bucket is intentional:
// buckets hold tens to low hundreds of files. Unknown identities yield
// an empty result plus a warning, never an error.
func (ix *Index) Select(q Query) []Entry {
	if err := ix.Refresh(false); err != nil {
		ix.log.Warn("index refresh failed", "kind", ix.opts.Kind, "error", err)
		return nil
	}
	ix.mu.RLock()
	entries := ix.bucket(q.Source, q.Symbol)
	ix.mu.RUnlock()
	if entries == nil {
		ix.log.Warn("no indexed data", "kind", ix.opts.Kind, "source", q.Source, "symbol", q.Symbol)
		return nil
	}
	var out []Entry
	for _, e := range entries {
		if q.Timeframe != "" && e.Timeframe != q.Timeframe {
			continue
		}
		if e.Overlaps(q.From, q.To) {
			out = append(out, e)
		}
	}
	return out
}

// RelevantFiles returns just the file paths for Select.
func (ix *Index) RelevantFiles(q Query) []string {
	entries := ix.Select(q)
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

// Entries returns the full sorted bucket for (source, symbol), refreshed.
// Rebuilds replace bucket slices wholesale, so the returned slice is a
// stable snapshot.
func (ix *Index) Entries(source, symbol string) []Entry {
	if err := ix.Refresh(false); err != nil {
		ix.log.Warn("index refresh failed", "kind", ix.opts.Kind, "error", err)
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.bucket(source, symbol)
}

// Sources lists indexed source ids, sorted.
func (ix *Index) Sources() []string {
	if err := ix.Refresh(false); err != nil {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.buckets))
	for s := range ix.buckets {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Symbols lists indexed symbols for a source, sorted.
func (ix *Index) Symbols(source string) []string {
	if err := ix.Refresh(false); err != nil {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	symbols := ix.buckets[source]
	out := make([]string, 0, len(symbols))
	for s := range symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len counts entries across all buckets.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.lenLocked()
}

func (ix *Index) lenLocked() int {
	n := 0
	for _, symbols := range ix.buckets {
		for _, entries := range symbols {
			n += len(entries)
		}
	}
	return n
}

func (ix *Index) bucket(source, symbol string) []Entry {
	if symbols, ok := ix.buckets[source]; ok {
		return symbols[symbol]
	}
	return nil
}

type symbolDir struct {
	path   string
	source string
	symbol string
}

// symbolDirs enumerates <DataDir>/<source>/<kind>/<symbol> directories.
func (ix *Index) symbolDirs() []symbolDir {
	var dirs []symbolDir
	sources, err := os.ReadDir(ix.opts.DataDir)
	if err != nil {
		return nil
	}
	for _, src := range sources {
		if !src.IsDir() || strings.HasPrefix(src.Name(), ".") {
			continue
		}
		kindDir := filepath.Join(ix.opts.DataDir, src.Name(), string(ix.opts.Kind))
		symbols, err := os.ReadDir(kindDir)
		if err != nil {
			continue
		}
		for _, sym := range symbols {
			if !sym.IsDir() {
				continue
			}
			dirs = append(dirs, symbolDir{
				path:   filepath.Join(kindDir, sym.Name()),
				source: src.Name(),
				symbol: sym.Name(),
			})
		}
	}
	return dirs
}

// artifactFresh reports whether the persisted artifact exists and is
// newer than every matching data file.
func (ix *Index) artifactFresh() bool {
	st, err := os.Stat(ix.opts.ArtifactPath)
	if err != nil {
		return false
	}
	return !ix.newerDataThan(st.ModTime())
}

// stale re-checks the already-loaded index against data file mtimes.
func (ix *Index) stale() bool {
	st, err := os.Stat(ix.opts.ArtifactPath)
	if err != nil {
		return true
	}
	return ix.newerDataThan(st.ModTime())
}

func (ix *Index) newerDataThan(t time.Time) bool {
	newer := false
	for _, dir := range ix.symbolDirs() {
		filepath.WalkDir(dir.path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(p, ".parquet") {
				return nil
			}
			if info, err := d.Info(); err == nil && info.ModTime().After(t) {
				newer = true
				return fs.SkipAll
			}
			return nil
		})
		if newer {
			break
		}
	}
	return newer
}

// persistLocked writes the flattened index artifact atomically with
// provenance metadata. Caller holds mu.
func (ix *Index) persistLocked() error {
	var rows []entryRow
	sources := make([]string, 0, len(ix.buckets))
	for s := range ix.buckets {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, source := range sources {
		symbols := make([]string, 0, len(ix.buckets[source]))
		for s := range ix.buckets[source] {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			for _, e := range ix.buckets[source][symbol] {
				rows = append(rows, toRow(e))
			}
		}
	}
	meta := parquetx.Meta{
		parquetx.KeyKind:      string(ix.opts.Kind),
		parquetx.KeyVersion:   Version,
		parquetx.KeySourceDir: ix.opts.DataDir,
		parquetx.KeyCreatedAt: time.Now().UTC().Format(time.RFC3339),
		parquetx.KeyBuildID:   uuid.NewString(),
	}
	if err := parquetx.WriteAtomic(ix.opts.ArtifactPath, rows, meta); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

func (ix *Index) loadArtifactLocked() error {
	info, err := parquetx.ReadInfo(ix.opts.ArtifactPath)
	if err != nil {
		return err
	}
	if v := info.Meta[parquetx.KeyVersion]; v != Version {
		return fmt.Errorf("index artifact version %q, want %q", v, Version)
	}
	rows, err := parquetx.ReadAll[entryRow](ix.opts.ArtifactPath)
	if err != nil {
		return err
	}
	buckets := map[string]map[string][]Entry{}
	for _, r := range rows {
		e := fromRow(r)
		if buckets[e.Source] == nil {
			buckets[e.Source] = map[string][]Entry{}
		}
		buckets[e.Source][e.Symbol] = append(buckets[e.Source][e.Symbol], e)
	}
	ix.buckets = buckets
	ix.loaded = true
	return nil
}
