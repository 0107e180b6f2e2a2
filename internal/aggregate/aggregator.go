// Package aggregate turns raw ticks into per-(symbol, timeframe) OHLC
// bars, both incrementally (one current bar per key plus a bounded
// completed-bar history) and as a batch render with synthetic gap-fill.
package aggregate

import (
	"fx-data/internal/model"
	"fx-data/internal/timeframe"
)

// DefaultHistoryCap bounds the completed-bar ring per (symbol, timeframe).
const DefaultHistoryCap = 1000

// Aggregator maintains one open bar per (symbol, timeframe) and a
// bounded history of completed bars. Not safe for concurrent use; the
// engine drives it from a single batch goroutine.
type Aggregator struct {
	cap     int
	current map[barKey]*model.Bar
	history map[barKey][]model.Bar
}

type barKey struct {
	symbol string
	tf     timeframe.Timeframe
}

// NewAggregator creates an Aggregator with the given history cap per
// key; cap <= 0 selects DefaultHistoryCap.
func NewAggregator(historyCap int) *Aggregator {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Aggregator{
		cap:     historyCap,
		current: make(map[barKey]*model.Bar),
		history: make(map[barKey][]model.Bar),
	}
}

// IngestTick folds one tick into the current bar of every requested
// timeframe, rolling buckets over as needed. Returns the post-update
// current bar per timeframe. Unknown timeframes are skipped.
func (a *Aggregator) IngestTick(t model.Tick, tfs []timeframe.Timeframe) map[timeframe.Timeframe]*model.Bar {
	out := make(map[timeframe.Timeframe]*model.Bar, len(tfs))
	for _, tf := range tfs {
		if !timeframe.Valid(tf) {
			continue
		}
		out[tf] = a.ingestOne(t, tf)
	}
	return out
}

func (a *Aggregator) ingestOne(t model.Tick, tf timeframe.Timeframe) *model.Bar {
	key := barKey{symbol: t.Symbol, tf: tf}
	bucket := timeframe.BucketStart(t.Time(), tf).UnixMilli()

	cur := a.current[key]
	if cur == nil || cur.BucketStart != bucket {
		if cur != nil {
			a.finalize(key, cur)
		}
		cur = openBar(t, tf, bucket)
		a.current[key] = cur
		return cur
	}

	price := t.Mid()
	if price > cur.High {
		cur.High = price
	}
	if price < cur.Low {
		cur.Low = price
	}
	cur.Close = price
	cur.Volume += t.Volume
	cur.TickCount++
	return cur
}

func (a *Aggregator) finalize(key barKey, bar *model.Bar) {
	bar.Complete = true
	h := append(a.history[key], *bar)
	if len(h) > a.cap {
		h = h[len(h)-a.cap:]
	}
	a.history[key] = h
}

// Current returns the open bar for (symbol, timeframe), or nil.
func (a *Aggregator) Current(symbol string, tf timeframe.Timeframe) *model.Bar {
	return a.current[barKey{symbol: symbol, tf: tf}]
}

// History returns a copy of the completed bars, oldest first, bounded
// by the cap. Callers may mutate the result freely.
func (a *Aggregator) History(symbol string, tf timeframe.Timeframe) []model.Bar {
	h := a.history[barKey{symbol: symbol, tf: tf}]
	if len(h) == 0 {
		return nil
	}
	out := make([]model.Bar, len(h))
	copy(out, h)
	return out
}

func openBar(t model.Tick, tf timeframe.Timeframe, bucket int64) *model.Bar {
	price := t.Mid()
	return &model.Bar{
		Symbol:      t.Symbol,
		Timeframe:   tf,
		BucketStart: bucket,
		Open:        price,
		High:        price,
		Low:         price,
		Close:       price,
		Volume:      t.Volume,
		TickCount:   1,
		BarType:     model.BarTypeReal,
	}
}
