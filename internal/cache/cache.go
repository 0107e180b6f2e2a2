// Package cache persists derived artifacts (coverage reports, discovery
// scans) keyed by a source mtime fingerprint. Invalidation is pull-based:
// a changed source is only noticed on the next Get for its key. Any
// failure reading a cache artifact is a miss, never an error.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Outcome summarizes a bulk rebuild. One key's failure never aborts the
// batch; it is recorded here instead.
type Outcome struct {
	Generated int
	Skipped   int
	Failed    int
	Errors    []KeyError
}

// KeyError attributes one failure to its cache key.
type KeyError struct {
	Key string
	Err error
}

func (o Outcome) String() string {
	return fmt.Sprintf("generated=%d skipped=%d failed=%d", o.Generated, o.Skipped, o.Failed)
}

// dirFingerprint returns the max mtime (unix ns) over parquet files
// under dir. Zero when the directory is empty or missing. An mtime
// comparison is deliberately cheap and false-negative-safe; it assumes
// files are never rewritten with an artificially older mtime.
func dirFingerprint(dir string) int64 {
	var max int64
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".parquet") {
			return nil
		}
		if info, err := d.Info(); err == nil {
			if ns := info.ModTime().UnixNano(); ns > max {
				max = ns
			}
		}
		return nil
	})
	return max
}

// clearDir removes every parquet artifact under dir, returning the count.
func clearDir(dir string) (int, error) {
	var paths []string
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".parquet") {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	sort.Strings(paths)
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
