package index

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"fx-data/internal/model"
	"fx-data/internal/parquetx"
	"fx-data/internal/timeframe"
)

// scanFile extracts one Entry from a data file. The footer is always
// read; rows are only read when domain stats or the time range cannot
// come from embedded metadata, and only a head sample is read for files
// above the size threshold.
func (ix *Index) scanFile(path, source, symbol string) (Entry, error) {
	info, err := parquetx.ReadInfo(path)
	if err != nil {
		return Entry{}, fmt.Errorf("read footer %s: %w", path, err)
	}

	e := Entry{
		Path:      path,
		Source:    source,
		Symbol:    symbol,
		Kind:      ix.opts.Kind,
		Origin:    info.Meta[parquetx.KeyOrigin],
		Rows:      info.Rows,
		SizeBytes: info.Size,
		ModTime:   info.ModTime,
	}
	if e.Origin == "" {
		e.Origin = filepath.Base(path)
	}
	e.Start, e.End = rangeFromMeta(info.Meta)

	switch ix.opts.Kind {
	case KindBars:
		if tf, err := timeframe.Parse(info.Meta[parquetx.KeyTimeframe]); err == nil {
			e.Timeframe = tf
		}
		if err := ix.scanBarStats(&e, info); err != nil {
			return Entry{}, err
		}
	default:
		if err := ix.scanTickStats(&e, info); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

// scanTickStats fills spread stats and the session histogram, plus the
// time range when the footer did not carry one.
func (ix *Index) scanTickStats(e *Entry, info parquetx.FileInfo) error {
	sample := info.Size > ix.opts.SampleThreshold
	needRange := e.Start.IsZero() || e.End.IsZero()
	if sample && needRange {
		// An exact range beats a cheap scan; fall back to a full read.
		ix.log.Debug("tick file missing embedded range, full scan", "path", e.Path)
		sample = false
	}

	var (
		ticks []model.Tick
		err   error
	)
	if sample {
		ticks, err = parquetx.ReadHead[model.Tick](e.Path, ix.opts.SampleRows)
	} else {
		ticks, err = parquetx.ReadAll[model.Tick](e.Path)
	}
	if err != nil {
		return fmt.Errorf("scan rows %s: %w", e.Path, err)
	}
	e.Sampled = sample

	var spreadSum float64
	for _, t := range ticks {
		s := t.Spread()
		spreadSum += s
		if s > e.SpreadMax {
			e.SpreadMax = s
		}
		switch timeframe.SessionForHour(t.Time().Hour()) {
		case timeframe.SessionSydneyTokyo:
			e.Sessions.SydneyTokyo++
		case timeframe.SessionLondon:
			e.Sessions.London++
		case timeframe.SessionNewYork:
			e.Sessions.NewYork++
		default:
			e.Sessions.Transition++
		}
	}
	if len(ticks) > 0 {
		e.SpreadMean = spreadSum / float64(len(ticks))
		if needRange {
			e.Start = ticks[0].Time()
			e.End = ticks[len(ticks)-1].Time()
		}
	}
	return nil
}

// scanBarStats prefers the counts stamped by the bar builder; files
// without them get their rows counted directly.
func (ix *Index) scanBarStats(e *Entry, info parquetx.FileInfo) error {
	realBars, okReal := atoi64(info.Meta[parquetx.KeyRealBars])
	synthBars, okSynth := atoi64(info.Meta[parquetx.KeySyntheticBars])
	if okReal && okSynth && !e.Start.IsZero() {
		e.RealBars, e.SyntheticBars = realBars, synthBars
		return nil
	}

	bars, err := parquetx.ReadAll[model.Bar](e.Path)
	if err != nil {
		return fmt.Errorf("scan rows %s: %w", e.Path, err)
	}
	for _, b := range bars {
		if b.Synthetic() {
			e.SyntheticBars++
		} else {
			e.RealBars++
		}
	}
	if len(bars) > 0 && e.Start.IsZero() {
		e.Start = bars[0].Time()
		e.End = bars[len(bars)-1].Time()
		if e.Timeframe == "" {
			e.Timeframe = bars[0].Timeframe
		}
	}
	return nil
}

func rangeFromMeta(meta parquetx.Meta) (start, end time.Time) {
	if ms, ok := atoi64(meta[parquetx.KeyStartMs]); ok {
		start = time.UnixMilli(ms).UTC()
	}
	if ms, ok := atoi64(meta[parquetx.KeyEndMs]); ok {
		end = time.UnixMilli(ms).UTC()
	}
	return start, end
}

func atoi64(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
