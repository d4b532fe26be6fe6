package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolve_Table(t *testing.T) {
	cases := []struct {
		tag      Timeframe
		rng      string
		interval string
		bars     int
	}{
		{Timeframe1D, "1d", "1m", 390},
		{Timeframe5D, "5d", "5m", 390},
		{Timeframe1W, "5d", "15m", 130},
		{Timeframe1M, "1mo", "1h", 147},
		{Timeframe3M, "3mo", "1d", 63},
		{Timeframe1Y, "1y", "1d", 252},
		{TimeframeMTD, "1mo", "1h", 147},
	}
	for _, tc := range cases {
		t.Run(string(tc.tag), func(t *testing.T) {
			p, err := Resolve(tc.tag)
			require.NoError(t, err)
			require.Equal(t, tc.rng, p.Range)
			require.Equal(t, tc.interval, p.Interval)
			require.Equal(t, tc.bars, p.Bars)
		})
	}
}

func TestResolve_YTD(t *testing.T) {
	p, err := resolveAt(TimeframeYTD, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "ytd", p.Range)
	require.Equal(t, "1d", p.Interval)
	// day 60 of the year -> 60*5/7 trading days
	require.Equal(t, 42, p.Bars)

	// Jan 1 must still synthesize at least one bar.
	p, err = resolveAt(TimeframeYTD, time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, p.Bars)
}

func TestResolve_InvalidTag(t *testing.T) {
	for _, tag := range []Timeframe{"", "2D", "1d", "1m", "ALL"} {
		_, err := Resolve(tag)
		require.ErrorIs(t, err, ErrInvalidTimeframe, "tag %q", tag)
	}
}

func TestTimeframes_AllResolve(t *testing.T) {
	for _, tag := range Timeframes() {
		p, err := Resolve(tag)
		require.NoError(t, err)
		require.NotZero(t, p.Bars)
		require.Positive(t, p.Step)
	}
}
