package timeframe

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe identifies a fixed bar duration (M1..D1).
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// All supported timeframes, shortest first.
var All = []Timeframe{M1, M5, M15, M30, H1, H4, D1}

var minutesByTimeframe = map[Timeframe]int{
	M1:  1,
	M5:  5,
	M15: 15,
	M30: 30,
	H1:  60,
	H4:  240,
	D1:  1440,
}

// Parse returns the Timeframe for a case-insensitive name like "m5".
func Parse(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := minutesByTimeframe[tf]; !ok {
		return "", fmt.Errorf("unsupported timeframe: %s", s)
	}
	return tf, nil
}

// Valid reports whether tf is a supported timeframe.
func Valid(tf Timeframe) bool {
	_, ok := minutesByTimeframe[tf]
	return ok
}

// Minutes returns the bucket length in minutes (0 for unknown timeframes).
func (tf Timeframe) Minutes() int { return minutesByTimeframe[tf] }

// Duration returns the bucket length as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(minutesByTimeframe[tf]) * time.Minute
}

func (tf Timeframe) String() string { return string(tf) }
