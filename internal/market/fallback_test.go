package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSynthesize_Invariants(t *testing.T) {
	for _, tag := range Timeframes() {
		params, err := Resolve(tag)
		require.NoError(t, err)

		s := Synthesize("AAPL", params)
		require.NoError(t, s.Validate())
		require.Equal(t, params.Bars, s.Len())

		for i := 0; i < s.Len(); i++ {
			lo, hi := s.Low[i], s.High[i]
			require.LessOrEqual(t, lo, math.Min(s.Open[i], s.Close[i]), "tag %s bar %d", tag, i)
			require.GreaterOrEqual(t, hi, math.Max(s.Open[i], s.Close[i]), "tag %s bar %d", tag, i)
			require.GreaterOrEqual(t, s.Volume[i], int64(0))
		}
	}
}

func TestSynthesize_DeterministicPerSymbol(t *testing.T) {
	params, err := Resolve(Timeframe1M)
	require.NoError(t, err)

	a := Synthesize("TSLA", params)
	b := Synthesize("TSLA", params)
	// The price path is seeded from the symbol alone; only timestamps track
	// the clock.
	require.Equal(t, a.Open, b.Open)
	require.Equal(t, a.High, b.High)
	require.Equal(t, a.Low, b.Low)
	require.Equal(t, a.Close, b.Close)
	require.Equal(t, a.Volume, b.Volume)

	other := Synthesize("UNKNOWN1", params)
	require.NotEqual(t, a.Close, other.Close)
}

func TestSynthesize_CaseInsensitiveSeed(t *testing.T) {
	params, err := Resolve(Timeframe3M)
	require.NoError(t, err)
	require.Equal(t, Synthesize("aapl", params).Close, Synthesize("AAPL", params).Close)
}

func TestSynthesize_BasePriceBounds(t *testing.T) {
	params, err := Resolve(Timeframe1Y)
	require.NoError(t, err)

	// Unknown symbols derive a base from character codes; the walk stays
	// inside [0.5x, 2x] of it and well inside a plausible equity range.
	s := Synthesize("ZZZZTEST", params)
	for i := 0; i < s.Len(); i++ {
		require.Greater(t, s.Low[i], 0.0)
		require.Less(t, s.High[i], 2000.0)
	}
}

func TestSynthesize_MinimumOneBar(t *testing.T) {
	s := synthesizeAt("AAPL", QueryParams{Bars: 0, Step: time.Minute}, time.Now())
	require.Equal(t, 1, s.Len())
}
