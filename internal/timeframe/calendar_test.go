package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStart(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 37, 42, 123456789, time.UTC)

	cases := []struct {
		tf   Timeframe
		want time.Time
	}{
		{M1, time.Date(2024, 1, 15, 10, 37, 0, 0, time.UTC)},
		{M5, time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC)},
		{M15, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{M30, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{H1, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
		{H4, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)},
		{D1, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BucketStart(ts, c.tf), "timeframe %s", c.tf)
	}
}

func TestBucketStartOnBoundary(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC)
	assert.Equal(t, ts, BucketStart(ts, M5))
}

func TestBucketStartNormalizesToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	local := time.Date(2024, 1, 15, 5, 37, 0, 0, loc) // 10:37 UTC
	assert.Equal(t, time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC), BucketStart(local, M5))
}

func TestIsBucketComplete(t *testing.T) {
	bucket := time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC)

	assert.False(t, IsBucketComplete(bucket, bucket.Add(4*time.Minute+59*time.Second), M5))
	assert.True(t, IsBucketComplete(bucket, bucket.Add(5*time.Minute), M5), "boundary closes the bucket")
	assert.True(t, IsBucketComplete(bucket, bucket.Add(6*time.Minute), M5))
}

func TestParse(t *testing.T) {
	for _, tf := range All {
		got, err := Parse(string(tf))
		require.NoError(t, err)
		assert.Equal(t, tf, got)
	}

	got, err := Parse(" m5 ")
	require.NoError(t, err)
	assert.Equal(t, M5, got)

	_, err = Parse("M7")
	assert.Error(t, err)
	_, err = Parse("")
	assert.Error(t, err)
}

func TestMinutes(t *testing.T) {
	assert.Equal(t, 1, M1.Minutes())
	assert.Equal(t, 240, H4.Minutes())
	assert.Equal(t, 1440, D1.Minutes())
	assert.Equal(t, 0, Timeframe("M7").Minutes())
	assert.Equal(t, 4*time.Hour, H4.Duration())
}

// Every UTC hour must map to exactly one session.
func TestSessionForHourTotality(t *testing.T) {
	counts := map[Session]int{}
	for h := 0; h < 24; h++ {
		counts[SessionForHour(h)]++
	}
	assert.Equal(t, 10, counts[SessionSydneyTokyo]) // 22,23,0..7
	assert.Equal(t, 8, counts[SessionLondon])       // 8..15
	assert.Equal(t, 5, counts[SessionNewYork])      // 16..20
	assert.Equal(t, 1, counts[SessionTransition])   // 21
}

func TestSessionForHourBoundaries(t *testing.T) {
	assert.Equal(t, SessionSydneyTokyo, SessionForHour(22))
	assert.Equal(t, SessionSydneyTokyo, SessionForHour(7))
	assert.Equal(t, SessionLondon, SessionForHour(8))
	assert.Equal(t, SessionLondon, SessionForHour(15))
	assert.Equal(t, SessionNewYork, SessionForHour(16))
	assert.Equal(t, SessionNewYork, SessionForHour(20))
	assert.Equal(t, SessionTransition, SessionForHour(21))
}
