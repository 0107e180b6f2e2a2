package cache

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-data/internal/coverage"
	"fx-data/internal/index"
	"fx-data/internal/model"
	"fx-data/internal/parquetx"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func testRules() *coverage.Rules {
	return &coverage.Rules{
		ShortThreshold:    coverage.Duration(30 * time.Minute),
		ModerateThreshold: coverage.Duration(4 * time.Hour),
		WeekendCloseHour:  22,
		WeekendOpenHour:   22,
		WeekendTolerance:  coverage.Duration(3 * time.Hour),
		Timezone:          "America/New_York",
		ExpectedOffsets:   []int{-18000, -14400},
	}
}

func writeTicks(t *testing.T, dataDir, source, symbol, name string, start, end time.Time) string {
	t.Helper()
	ticks := []model.Tick{
		{Symbol: symbol, Timestamp: start.UnixMilli(), Bid: 1.1, Ask: 1.1002, Volume: 1},
		{Symbol: symbol, Timestamp: end.UnixMilli(), Bid: 1.1, Ask: 1.1002, Volume: 1},
	}
	path := filepath.Join(dataDir, source, string(index.KindTicks), symbol, name)
	meta := parquetx.Meta{
		parquetx.KeySource:  source,
		parquetx.KeySymbol:  symbol,
		parquetx.KeyKind:    string(index.KindTicks),
		parquetx.KeyOrigin:  name,
		parquetx.KeyStartMs: strconv.FormatInt(start.UnixMilli(), 10),
		parquetx.KeyEndMs:   strconv.FormatInt(end.UnixMilli(), 10),
	}
	require.NoError(t, parquetx.WriteAtomic(path, ticks, meta))
	return path
}

type coverageFixture struct {
	cache   *CoverageCache
	dataDir string
	eurFile string
}

// setupCoverage lays out EURUSD across a weekend closure plus a second
// symbol with a single file.
func setupCoverage(t *testing.T) coverageFixture {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")

	week1 := writeTicks(t, dataDir, "dukascopy", "EURUSD", "w1.parquet",
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 12, 23, 59, 0, 0, time.UTC))
	writeTicks(t, dataDir, "dukascopy", "EURUSD", "w2.parquet",
		time.Date(2024, 1, 15, 0, 5, 0, 0, time.UTC), time.Date(2024, 1, 19, 23, 59, 0, 0, time.UTC))
	writeTicks(t, dataDir, "dukascopy", "GBPUSD", "w1.parquet",
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 12, 23, 59, 0, 0, time.UTC))

	ticks := index.New(index.Options{
		DataDir:         dataDir,
		ArtifactPath:    filepath.Join(root, "index", "ticks.parquet"),
		Kind:            index.KindTicks,
		SampleThreshold: 1 << 30,
		SampleRows:      100,
		Logger:          testLog,
	})
	analyzer, err := coverage.NewAnalyzer(testRules(), testLog)
	require.NoError(t, err)

	return coverageFixture{
		cache:   NewCoverageCache(filepath.Join(root, "cache", "coverage"), dataDir, ticks, analyzer, testLog),
		dataDir: dataDir,
		eurFile: week1,
	}
}

func TestCoverageCacheGenerateAndHit(t *testing.T) {
	fx := setupCoverage(t)

	r1, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)
	require.Len(t, r1.Gaps, 1)
	assert.Equal(t, coverage.Weekend, r1.Gaps[0].Category)
	assert.False(t, r1.HasIssues)

	// Artifact landed on disk with the fingerprint stamped.
	info, err := parquetx.ReadInfo(fx.cache.artifactPath("dukascopy", "EURUSD"))
	require.NoError(t, err)
	assert.Equal(t, Version, info.Meta[parquetx.KeyVersion])
	assert.NotEmpty(t, info.Meta[parquetx.KeyFingerprint])

	r2, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)
	require.Equal(t, r1, r2, "cached report equals the freshly computed one")
}

// Doctoring the stored artifact proves Get serves from cache when the
// fingerprint is current.
func TestCoverageCacheServesStoredArtifact(t *testing.T) {
	fx := setupCoverage(t)
	_, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)

	path := fx.cache.artifactPath("dukascopy", "EURUSD")
	rows, err := parquetx.ReadAll[gapRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rows[0].Reason = "cached sentinel"
	require.NoError(t, parquetx.WriteAtomic(path, rows, parquetx.Meta{
		parquetx.KeyVersion:     Version,
		parquetx.KeyFingerprint: strconv.FormatInt(math.MaxInt64, 10),
	}))

	r, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)
	require.Len(t, r.Gaps, 1)
	assert.Equal(t, "cached sentinel", r.Gaps[0].Reason)
}

func TestCoverageCacheInvalidatedByMtime(t *testing.T) {
	fx := setupCoverage(t)
	_, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)

	// Pin a sentinel at exactly the current fingerprint: still a hit.
	path := fx.cache.artifactPath("dukascopy", "EURUSD")
	fp := dirFingerprint(filepath.Join(fx.dataDir, "dukascopy", "ticks", "EURUSD"))
	rows, err := parquetx.ReadAll[gapRow](path)
	require.NoError(t, err)
	rows[0].Reason = "cached sentinel"
	require.NoError(t, parquetx.WriteAtomic(path, rows, parquetx.Meta{
		parquetx.KeyVersion:     Version,
		parquetx.KeyFingerprint: strconv.FormatInt(fp, 10),
	}))
	r, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, "cached sentinel", r.Gaps[0].Reason)

	// A touched source file bumps the fingerprint past the stored one.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(fx.eurFile, future, future))

	r, err = fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)
	require.Len(t, r.Gaps, 1)
	assert.NotEqual(t, "cached sentinel", r.Gaps[0].Reason, "stale artifact must be recomputed")
	assert.Equal(t, coverage.Weekend, r.Gaps[0].Category)
}

func TestCoverageCacheCorruptArtifactIsMiss(t *testing.T) {
	fx := setupCoverage(t)
	_, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err)

	path := fx.cache.artifactPath("dukascopy", "EURUSD")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	r, err := fx.cache.Get("dukascopy", "EURUSD")
	require.NoError(t, err, "corruption is a miss, never an error")
	require.Len(t, r.Gaps, 1)
	assert.Equal(t, coverage.Weekend, r.Gaps[0].Category)

	_, err = parquetx.ReadInfo(path)
	assert.NoError(t, err, "artifact was rewritten")
}

func TestCoverageCacheBuildAll(t *testing.T) {
	fx := setupCoverage(t)

	out := fx.cache.BuildAll(false)
	assert.Equal(t, 2, out.Generated)
	assert.Zero(t, out.Skipped)
	assert.Zero(t, out.Failed)

	out = fx.cache.BuildAll(false)
	assert.Zero(t, out.Generated)
	assert.Equal(t, 2, out.Skipped)

	out = fx.cache.BuildAll(true)
	assert.Equal(t, 2, out.Generated)
	assert.Zero(t, out.Skipped)
}

func TestCoverageCacheClear(t *testing.T) {
	fx := setupCoverage(t)
	fx.cache.BuildAll(false)

	n, err := fx.cache.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = fx.cache.Clear()
	require.NoError(t, err)
	assert.Zero(t, n, "clearing an empty cache is a no-op")
}

func TestOutcomeString(t *testing.T) {
	out := Outcome{Generated: 3, Skipped: 1, Failed: 2}
	assert.Equal(t, "generated=3 skipped=1 failed=2", out.String())
}
