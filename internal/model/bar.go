package model

import (
	"time"

	"fx-data/internal/timeframe"
)

// Bar type markers. Synthetic bars fill tick-silent buckets so bar
// series stay dense for rolling-window consumers.
const (
	BarTypeReal      = "real"
	BarTypeSynthetic = "synthetic"
)

// Bar represents one OHLCV bar for a (symbol, timeframe) bucket.
// BucketStart is Unix milliseconds, always aligned to the timeframe
// boundary. Shared by aggregation, saving and serialization (json, parquet).
type Bar struct {
	Symbol      string              `json:"s" parquet:"s,dict"`
	Timeframe   timeframe.Timeframe `json:"tf" parquet:"tf,dict"`
	BucketStart int64               `json:"t" parquet:"t"`
	Open        float64             `json:"o" parquet:"o"`
	High        float64             `json:"h" parquet:"h"`
	Low         float64             `json:"l" parquet:"l"`
	Close       float64             `json:"c" parquet:"c"`
	Volume      float64             `json:"v" parquet:"v"`
	TickCount   int64               `json:"n" parquet:"n"`
	BarType     string              `json:"bt" parquet:"bt,dict"`
	Complete    bool                `json:"complete" parquet:"complete"`
}

// Time returns the bucket start as UTC time.
func (b Bar) Time() time.Time { return time.UnixMilli(b.BucketStart).UTC() }

// Synthetic reports whether the bar was gap-filled rather than built from ticks.
func (b Bar) Synthetic() bool { return b.BarType == BarTypeSynthetic }
