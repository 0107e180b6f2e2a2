package index

import (
	"time"

	"fx-data/internal/timeframe"
)

// entryRow is the flattened one-row-per-entry form persisted in the
// index artifact. The nested source→symbol map is reconstructed on load.
type entryRow struct {
	Source        string  `parquet:"source,dict"`
	Symbol        string  `parquet:"symbol,dict"`
	Kind          string  `parquet:"kind,dict"`
	Timeframe     string  `parquet:"tf,dict"`
	Path          string  `parquet:"path"`
	Origin        string  `parquet:"origin"`
	StartMs       int64   `parquet:"start_ms"`
	EndMs         int64   `parquet:"end_ms"`
	Rows          int64   `parquet:"rows"`
	SizeBytes     int64   `parquet:"size_bytes"`
	ModTimeNs     int64   `parquet:"mtime_ns"`
	SpreadMean    float64 `parquet:"spread_mean"`
	SpreadMax     float64 `parquet:"spread_max"`
	SessSydTokyo  int64   `parquet:"sess_sydney_tokyo"`
	SessLondon    int64   `parquet:"sess_london"`
	SessNewYork   int64   `parquet:"sess_new_york"`
	SessTransit   int64   `parquet:"sess_transition"`
	RealBars      int64   `parquet:"real_bars"`
	SyntheticBars int64   `parquet:"synthetic_bars"`
	Sampled       bool    `parquet:"sampled"`
}

func toRow(e Entry) entryRow {
	return entryRow{
		Source:        e.Source,
		Symbol:        e.Symbol,
		Kind:          string(e.Kind),
		Timeframe:     string(e.Timeframe),
		Path:          e.Path,
		Origin:        e.Origin,
		StartMs:       e.Start.UnixMilli(),
		EndMs:         e.End.UnixMilli(),
		Rows:          e.Rows,
		SizeBytes:     e.SizeBytes,
		ModTimeNs:     e.ModTime.UnixNano(),
		SpreadMean:    e.SpreadMean,
		SpreadMax:     e.SpreadMax,
		SessSydTokyo:  e.Sessions.SydneyTokyo,
		SessLondon:    e.Sessions.London,
		SessNewYork:   e.Sessions.NewYork,
		SessTransit:   e.Sessions.Transition,
		RealBars:      e.RealBars,
		SyntheticBars: e.SyntheticBars,
		Sampled:       e.Sampled,
	}
}

func fromRow(r entryRow) Entry {
	return Entry{
		Source:     r.Source,
		Symbol:     r.Symbol,
		Kind:       Kind(r.Kind),
		Timeframe:  timeframe.Timeframe(r.Timeframe),
		Path:       r.Path,
		Origin:     r.Origin,
		Start:      time.UnixMilli(r.StartMs).UTC(),
		End:        time.UnixMilli(r.EndMs).UTC(),
		Rows:       r.Rows,
		SizeBytes:  r.SizeBytes,
		ModTime:    time.Unix(0, r.ModTimeNs),
		SpreadMean: r.SpreadMean,
		SpreadMax:  r.SpreadMax,
		Sessions: SessionHistogram{
			SydneyTokyo: r.SessSydTokyo,
			London:      r.SessLondon,
			NewYork:     r.SessNewYork,
			Transition:  r.SessTransit,
		},
		RealBars:      r.RealBars,
		SyntheticBars: r.SyntheticBars,
		Sampled:       r.Sampled,
	}
}
