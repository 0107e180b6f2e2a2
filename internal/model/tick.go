package model

import "time"

// Tick is one raw quote row as stored in tick parquet files.
// Timestamp is Unix milliseconds UTC. Immutable once written.
type Tick struct {
	Symbol    string  `json:"s" parquet:"s,dict"`
	Timestamp int64   `json:"t" parquet:"t"`
	Bid       float64 `json:"bid" parquet:"bid"`
	Ask       float64 `json:"ask" parquet:"ask"`
	Volume    float64 `json:"v" parquet:"v"`
}

// Time returns the tick timestamp as UTC time.
func (t Tick) Time() time.Time { return time.UnixMilli(t.Timestamp).UTC() }

// Mid is the bid/ask midpoint, the price basis for bar aggregation.
func (t Tick) Mid() float64 { return (t.Bid + t.Ask) / 2 }

// Spread is the quoted ask-bid distance.
func (t Tick) Spread() float64 { return t.Ask - t.Bid }
