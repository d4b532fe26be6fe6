package market

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSeries(base int64) Series {
	return Series{
		Timestamps: []int64{base, base + 1000},
		Open:       []float64{1, 2},
		High:       []float64{1, 2},
		Low:        []float64{1, 2},
		Close:      []float64{1, 2},
		Volume:     []int64{1, 2},
	}
}

func TestCache_PutGet(t *testing.T) {
	c := NewCache(time.Minute)
	want := map[string]Series{"AAPL": testSeries(1000)}

	c.Put([]string{"AAPL"}, Timeframe1D, want)
	got, ok := c.Get([]string{"AAPL"}, Timeframe1D)
	require.True(t, ok)
	require.Equal(t, want, got)

	_, ok = c.Get([]string{"AAPL"}, Timeframe1M)
	require.False(t, ok, "different timeframe must miss")
}

func TestCache_KeyOrderInsensitive(t *testing.T) {
	c := NewCache(time.Minute)
	val := map[string]Series{"AAPL": testSeries(1000), "MSFT": testSeries(2000)}

	c.Put([]string{"MSFT", "AAPL"}, Timeframe1D, val)
	_, ok := c.Get([]string{"AAPL", "MSFT"}, Timeframe1D)
	require.True(t, ok)
}

func TestCache_ExactSymbolSetMatch(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put([]string{"AAPL", "MSFT"}, Timeframe1D, map[string]Series{
		"AAPL": testSeries(1000),
		"MSFT": testSeries(2000),
	})

	// An overlapping but different symbol set uses a distinct key.
	_, ok := c.Get([]string{"AAPL"}, Timeframe1D)
	require.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put([]string{"AAPL"}, Timeframe1D, map[string]Series{"AAPL": testSeries(1000)})

	now = now.Add(59 * time.Second)
	_, ok := c.Get([]string{"AAPL"}, Timeframe1D)
	require.True(t, ok, "entry within TTL must be served")

	now = now.Add(2 * time.Second)
	_, ok = c.Get([]string{"AAPL"}, Timeframe1D)
	require.False(t, ok, "expired entry must never be returned")
	require.Equal(t, 0, c.Len(), "expired entry evicted on read")
}

func TestCache_SweepExpired(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put([]string{"AAPL"}, Timeframe1D, map[string]Series{"AAPL": testSeries(1000)})
	now = now.Add(30 * time.Second)
	c.Put([]string{"MSFT"}, Timeframe1D, map[string]Series{"MSFT": testSeries(2000)})

	now = now.Add(45 * time.Second)
	require.Equal(t, 1, c.SweepExpired(), "only the older entry expired")
	require.Equal(t, 1, c.Len())
}

func TestCache_OverflowEvictsOldestFirst(t *testing.T) {
	c := NewCache(time.Hour)
	c.maxEntries = 3
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		sym := fmt.Sprintf("SYM%d", i)
		c.Put([]string{sym}, Timeframe1D, map[string]Series{sym: testSeries(1000)})
		now = now.Add(time.Second)
	}

	require.Equal(t, 3, c.Len())
	_, ok := c.Get([]string{"SYM0"}, Timeframe1D)
	require.False(t, ok, "oldest entry evicted on overflow")
	_, ok = c.Get([]string{"SYM3"}, Timeframe1D)
	require.True(t, ok)
}

func TestCache_PutAtBackdatedExpiresEarly(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	// Entry written as if fetched 50s ago: 10s of life left, not a full TTL.
	c.PutAt([]string{"AAPL"}, Timeframe1D, map[string]Series{"AAPL": testSeries(1000)}, now.Add(-50*time.Second))

	_, ok := c.Get([]string{"AAPL"}, Timeframe1D)
	require.True(t, ok)

	now = now.Add(15 * time.Second)
	_, _, ok = c.Lookup([]string{"AAPL"}, Timeframe1D)
	require.False(t, ok, "carried-over data must expire on its original clock")
}

func TestCache_LookupReportsCreationTime(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put([]string{"AAPL"}, Timeframe1D, map[string]Series{"AAPL": testSeries(1000)})
	_, createdAt, ok := c.Lookup([]string{"AAPL"}, Timeframe1D)
	require.True(t, ok)
	require.Equal(t, now, createdAt)
}

func TestCache_PutReplacesEntry(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put([]string{"AAPL"}, Timeframe1D, map[string]Series{"AAPL": testSeries(1000)})
	c.Put([]string{"AAPL"}, Timeframe1D, map[string]Series{"AAPL": testSeries(9000)})

	got, ok := c.Get([]string{"AAPL"}, Timeframe1D)
	require.True(t, ok)
	require.Equal(t, int64(9000), got["AAPL"].Timestamps[0])
	require.Equal(t, 1, c.Len())
}

func TestCache_EmptyValueNotStored(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put([]string{"AAPL"}, Timeframe1D, nil)
	require.Equal(t, 0, c.Len())
}
