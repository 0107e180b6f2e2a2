// Package barbuild renders bar parquet files from indexed tick files in
// bulk, one job per (symbol, timeframe), with a bounded worker pool.
// The tick index is loaded once up front; jobs then only read from it,
// each writing its own bar file.
package barbuild

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"fx-data/internal/aggregate"
	"fx-data/internal/index"
	"fx-data/internal/model"
	"fx-data/internal/parquetx"
	"fx-data/internal/timeframe"
)

// Job is one build unit.
type Job struct {
	Source    string
	Symbol    string
	Timeframe timeframe.Timeframe
}

// JobResult is sent by workers for fan-in.
type JobResult struct {
	Ok        bool
	Symbol    string
	Timeframe timeframe.Timeframe
	Bars      int64
	Synthetic int64
	Path      string
	Reason    string
}

// RunStats summarizes one build run.
type RunStats struct {
	Jobs    int
	Success int
	Failed  int
}

// Builder renders bar files from the tick index.
type Builder struct {
	dataDir string
	ticks   *index.Index
	workers int
	log     *slog.Logger
}

// NewBuilder creates a Builder; workers <= 0 selects 4.
func NewBuilder(dataDir string, ticks *index.Index, workers int, logger *slog.Logger) *Builder {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{dataDir: dataDir, ticks: ticks, workers: workers, log: logger}
}

// Run builds bar files for every symbol × timeframe combination and
// writes a run report next to the bar tree. One job's failure never
// aborts the run.
func (b *Builder) Run(source string, symbols []string, tfs []timeframe.Timeframe) (RunStats, error) {
	// Load the index before fan-out so workers never trigger a lazy
	// rebuild mid-run.
	if err := b.ticks.Refresh(false); err != nil {
		return RunStats{}, err
	}

	jobs := make(chan Job, len(symbols)*len(tfs))
	for _, sym := range symbols {
		for _, tf := range tfs {
			jobs <- Job{Source: source, Symbol: sym, Timeframe: tf}
		}
	}
	close(jobs)

	results := make(chan JobResult, cap(jobs))
	progress := make(chan ProgressUpdate, 256)
	barDir := filepath.Join(b.dataDir, source, string(index.KindBars))

	var progressDone sync.WaitGroup
	progressDone.Add(1)
	go func() {
		defer progressDone.Done()
		RunProgressWriter(filepath.Join(barDir, ".lastbuild.json"), progress)
	}()

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := b.buildOne(job)
				if res.Ok {
					progress <- ProgressUpdate{Key: job.Symbol + "|" + string(job.Timeframe), Date: time.Now().UTC().Format("2006-01-02")}
				}
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)
	close(progress)
	progressDone.Wait()

	stats := RunStats{Jobs: cap(jobs)}
	var successList []string
	var failedList []failedEntry
	for res := range results {
		if res.Ok {
			stats.Success++
			successList = appendUnique(successList, res.Symbol)
			b.log.Info("built bars", "symbol", res.Symbol, "timeframe", res.Timeframe,
				"bars", res.Bars, "synthetic", res.Synthetic, "path", res.Path)
		} else {
			stats.Failed++
			failedList = append(failedList, failedEntry{
				Symbol:    res.Symbol,
				Timeframe: string(res.Timeframe),
				Reason:    res.Reason,
			})
		}
	}
	sort.Strings(successList)
	sort.Slice(failedList, func(i, j int) bool {
		if failedList[i].Symbol != failedList[j].Symbol {
			return failedList[i].Symbol < failedList[j].Symbol
		}
		return failedList[i].Timeframe < failedList[j].Timeframe
	})
	if err := writeRunReport(barDir, successList, failedList); err != nil {
		b.log.Warn("run report write failed", "error", err)
	}
	return stats, nil
}

// buildOne renders and writes the bar file for one (symbol, timeframe).
func (b *Builder) buildOne(job Job) JobResult {
	res := JobResult{Symbol: job.Symbol, Timeframe: job.Timeframe}

	entries := b.ticks.Entries(job.Source, job.Symbol)
	if len(entries) == 0 {
		res.Reason = "no tick files indexed"
		return res
	}

	var ticks []model.Tick
	for _, e := range entries {
		rows, err := parquetx.ReadAll[model.Tick](e.Path)
		if err != nil {
			res.Reason = fmt.Sprintf("read %s: %v", e.Path, err)
			return res
		}
		ticks = append(ticks, rows...)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })

	bars := aggregate.RenderHistorical(ticks, job.Timeframe)
	if len(bars) == 0 {
		res.Reason = "no bars rendered"
		return res
	}
	for i := range bars {
		bars[i].Symbol = job.Symbol
	}
	realBars, synthBars := aggregate.CountBarTypes(bars)

	start := bars[0].Time()
	end := bars[len(bars)-1].Time().Add(job.Timeframe.Duration())
	name := fmt.Sprintf("%s_%s_%s_%s.parquet",
		job.Symbol, job.Timeframe, start.Format("20060102"), end.Format("20060102"))
	path := filepath.Join(b.dataDir, job.Source, string(index.KindBars), job.Symbol, name)

	meta := parquetx.Meta{
		parquetx.KeySource:        job.Source,
		parquetx.KeySymbol:        job.Symbol,
		parquetx.KeyKind:          string(index.KindBars),
		parquetx.KeyTimeframe:     string(job.Timeframe),
		parquetx.KeyOrigin:        name,
		parquetx.KeyStartMs:       strconv.FormatInt(start.UnixMilli(), 10),
		parquetx.KeyEndMs:         strconv.FormatInt(end.UnixMilli(), 10),
		parquetx.KeyRealBars:      strconv.FormatInt(realBars, 10),
		parquetx.KeySyntheticBars: strconv.FormatInt(synthBars, 10),
		parquetx.KeyCreatedAt:     time.Now().UTC().Format(time.RFC3339),
		parquetx.KeyVersion:       index.Version,
	}
	if err := parquetx.WriteAtomic(path, bars, meta); err != nil {
		res.Reason = fmt.Sprintf("write %s: %v", path, err)
		return res
	}

	res.Ok = true
	res.Bars = int64(len(bars))
	res.Synthetic = synthBars
	res.Path = path
	return res
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
