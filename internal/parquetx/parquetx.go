// Package parquetx wraps parquet read/write for every persisted artifact:
// tick files, bar files, index artifacts and cache artifacts. All writers
// go through a temp-file-then-rename swap so concurrent readers never see
// a partially written file.
package parquetx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Well-known footer metadata keys. Every artifact carries provenance
// under these keys; kind-specific aggregates use their own fx: keys.
const (
	KeySymbol        = "fx:symbol"
	KeySource        = "fx:source"
	KeyKind          = "fx:kind"
	KeyTimeframe     = "fx:timeframe"
	KeyOrigin        = "fx:origin"
	KeyStartMs       = "fx:start_ms"
	KeyEndMs         = "fx:end_ms"
	KeyRealBars      = "fx:real_bars"
	KeySyntheticBars = "fx:synthetic_bars"
	KeyCreatedAt     = "fx:created_at"
	KeySourceDir     = "fx:source_dir"
	KeyVersion       = "fx:version"
	KeyBuildID       = "fx:build_id"
	KeyFingerprint   = "fx:source_fingerprint"
)

// Meta is file-level key/value footer metadata.
type Meta map[string]string

// FileInfo is everything a footer read yields without touching row data.
type FileInfo struct {
	Path    string
	Rows    int64
	Size    int64
	ModTime time.Time
	Meta    Meta
}

// WriteAtomic writes rows plus footer metadata to path, creating parent
// directories as needed. The file appears atomically via rename.
func WriteAtomic[T any](path string, rows []T, meta Meta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	opts := make([]parquet.WriterOption, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, parquet.KeyValueMetadata(k, meta[k]))
	}

	w := parquet.NewGenericWriter[T](f, opts...)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadInfo reads size, mtime, row count and footer metadata. Row data is
// never touched, which keeps index builds cheap.
func ReadInfo(path string) (FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return FileInfo{}, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return FileInfo{}, err
	}

	meta := make(Meta)
	for _, kv := range pf.Metadata().KeyValueMetadata {
		meta[kv.Key] = kv.Value
	}
	return FileInfo{
		Path:    path,
		Rows:    pf.NumRows(),
		Size:    st.Size(),
		ModTime: st.ModTime(),
		Meta:    meta,
	}, nil
}

// ReadAll loads every row of the file.
func ReadAll[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// ReadHead reads up to n leading rows. Used for statistical sampling of
// files too large to scan in full during index builds.
func ReadHead[T any](path string, n int) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](f)
	defer r.Close()

	if total := r.NumRows(); int64(n) > total {
		n = int(total)
	}
	rows := make([]T, n)
	read := 0
	for read < n {
		k, err := r.Read(rows[read:])
		read += k
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if k == 0 {
			break
		}
	}
	return rows[:read], nil
}
