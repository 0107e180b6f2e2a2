package timeframe

import "time"

// BucketStart floors ts to the UTC boundary of the timeframe's bucket.
// Intraday timeframes truncate on the duration; D1 truncates to the
// UTC calendar day so buckets never drift with the epoch.
func BucketStart(ts time.Time, tf Timeframe) time.Time {
	ts = ts.UTC()
	if tf == D1 {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	return ts.Truncate(tf.Duration())
}

// IsBucketComplete reports whether observed has advanced past the end of
// the bucket starting at bucketStart.
func IsBucketComplete(bucketStart, observed time.Time, tf Timeframe) bool {
	return !observed.Before(bucketStart.Add(tf.Duration()))
}

// Session labels one of the fixed UTC trading sessions.
type Session string

const (
	SessionSydneyTokyo Session = "sydney_tokyo"
	SessionLondon      Session = "london"
	SessionNewYork     Session = "new_york"
	SessionTransition  Session = "transition"
)

// SessionForHour maps a UTC hour to its trading session:
//
//	22-07 sydney_tokyo, 08-15 london, 16-20 new_york, 21 transition.
//
// The London/New-York overlap hours belong to london.
func SessionForHour(utcHour int) Session {
	switch {
	case utcHour >= 22 || utcHour <= 7:
		return SessionSydneyTokyo
	case utcHour <= 15:
		return SessionLondon
	case utcHour <= 20:
		return SessionNewYork
	default:
		return SessionTransition
	}
}
