package cache

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fx-data/internal/index"
	"fx-data/internal/parquetx"
)

// FileMeta is one discovered data file, as cached by DiscoveryCache.
type FileMeta struct {
	Path      string `parquet:"path"`
	SizeBytes int64  `parquet:"size_bytes"`
	ModTimeNs int64  `parquet:"mtime_ns"`
	Rows      int64  `parquet:"rows"`
	StartMs   int64  `parquet:"start_ms"`
	EndMs     int64  `parquet:"end_ms"`
}

// DiscoveryCache caches the per-(source, symbol, kind) file discovery
// scan so status queries avoid re-reading every footer. Same staleness
// contract as CoverageCache: mtime fingerprint, corrupt artifact = miss.
type DiscoveryCache struct {
	dir     string
	dataDir string
	log     *slog.Logger
}

// NewDiscoveryCache wires the cache over the data layout.
func NewDiscoveryCache(dir, dataDir string, logger *slog.Logger) *DiscoveryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoveryCache{dir: dir, dataDir: dataDir, log: logger}
}

func (c *DiscoveryCache) artifactPath(source, symbol string, kind index.Kind) string {
	return filepath.Join(c.dir, source, fmt.Sprintf("%s.%s.parquet", symbol, kind))
}

func (c *DiscoveryCache) scanDir(source, symbol string, kind index.Kind) string {
	return filepath.Join(c.dataDir, source, string(kind), symbol)
}

// Get returns the cached discovery listing, recomputing when the source
// directory changed since the artifact was generated.
func (c *DiscoveryCache) Get(source, symbol string, kind index.Kind) ([]FileMeta, error) {
	dir := c.scanDir(source, symbol, kind)
	fp := dirFingerprint(dir)

	path := c.artifactPath(source, symbol, kind)
	if info, err := parquetx.ReadInfo(path); err == nil && info.Meta[parquetx.KeyVersion] == Version {
		if stored, err := strconv.ParseInt(info.Meta[parquetx.KeyFingerprint], 10, 64); err == nil && stored >= fp {
			if rows, err := parquetx.ReadAll[FileMeta](path); err == nil {
				return rows, nil
			}
			c.log.Warn("unreadable discovery artifact, rescanning", "path", path)
		}
	}

	rows, err := c.scan(dir)
	if err != nil {
		return nil, err
	}
	meta := parquetx.Meta{
		parquetx.KeySource:      source,
		parquetx.KeySymbol:      symbol,
		parquetx.KeyKind:        string(kind),
		parquetx.KeyVersion:     Version,
		parquetx.KeySourceDir:   dir,
		parquetx.KeyFingerprint: strconv.FormatInt(fp, 10),
		parquetx.KeyCreatedAt:   time.Now().UTC().Format(time.RFC3339),
		parquetx.KeyBuildID:     uuid.NewString(),
	}
	if err := parquetx.WriteAtomic(path, rows, meta); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *DiscoveryCache) scan(dir string) ([]FileMeta, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	var out []FileMeta
	for _, f := range files {
		info, err := parquetx.ReadInfo(f)
		if err != nil {
			c.log.Warn("skipping unreadable file in discovery scan", "path", f, "error", err)
			continue
		}
		fm := FileMeta{
			Path:      f,
			SizeBytes: info.Size,
			ModTimeNs: info.ModTime.UnixNano(),
			Rows:      info.Rows,
		}
		if ms, err := strconv.ParseInt(info.Meta[parquetx.KeyStartMs], 10, 64); err == nil {
			fm.StartMs = ms
		}
		if ms, err := strconv.ParseInt(info.Meta[parquetx.KeyEndMs], 10, 64); err == nil {
			fm.EndMs = ms
		}
		out = append(out, fm)
	}
	return out, nil
}

// Clear deletes all discovery artifacts, returning the count.
func (c *DiscoveryCache) Clear() (int, error) {
	n, err := clearDir(c.dir)
	if err != nil {
		return n, fmt.Errorf("clear discovery cache: %w", err)
	}
	return n, nil
}
