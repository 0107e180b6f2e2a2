package aggregate

import (
	"fx-data/internal/model"
	"fx-data/internal/timeframe"
)

// RenderHistorical aggregates a full tick stream into a dense bar series
// for one timeframe. Every bucket between the first and last observed
// tick gets exactly one bar; buckets that received no ticks are filled
// with synthetic bars carrying the previous close at zero volume, so the
// emitted series has no index gaps. Ticks must be in timestamp order.
// Empty input yields an empty series.
func RenderHistorical(ticks []model.Tick, tf timeframe.Timeframe) []model.Bar {
	if len(ticks) == 0 || !timeframe.Valid(tf) {
		return nil
	}

	step := tf.Duration().Milliseconds()
	var bars []model.Bar
	var cur *model.Bar

	for _, t := range ticks {
		bucket := timeframe.BucketStart(t.Time(), tf).UnixMilli()
		if cur != nil && bucket == cur.BucketStart {
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
			continue
		}
		if cur != nil {
			cur.Complete = true
			bars = append(bars, *cur)
			// Fill the silent buckets between the closed bar and the
			// one this tick opens.
			for b := cur.BucketStart + step; b < bucket; b += step {
				bars = append(bars, syntheticBar(cur.Symbol, tf, b, cur.Close))
			}
		}
		opened := openBar(t, tf, bucket)
		cur = opened
	}

	// Trailing bar: its bucket may still be open, leave Complete false.
	bars = append(bars, *cur)
	return bars
}

func syntheticBar(symbol string, tf timeframe.Timeframe, bucket int64, prevClose float64) model.Bar {
	return model.Bar{
		Symbol:      symbol,
		Timeframe:   tf,
		BucketStart: bucket,
		Open:        prevClose,
		High:        prevClose,
		Low:         prevClose,
		Close:       prevClose,
		BarType:     model.BarTypeSynthetic,
		Complete:    true,
	}
}

// CountBarTypes returns the number of real and synthetic bars in a series.
func CountBarTypes(bars []model.Bar) (real, synthetic int64) {
	for _, b := range bars {
		if b.Synthetic() {
			synthetic++
		} else {
			real++
		}
	}
	return real, synthetic
}
