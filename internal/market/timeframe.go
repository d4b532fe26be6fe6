package market

import (
	"errors"
	"time"
)

// Timeframe is a named lookback-and-resolution preset requested by clients.
type Timeframe string

const (
	Timeframe1D  Timeframe = "1D"
	Timeframe5D  Timeframe = "5D"
	Timeframe1W  Timeframe = "1W"
	Timeframe1M  Timeframe = "1M"
	Timeframe3M  Timeframe = "3M"
	Timeframe1Y  Timeframe = "1Y"
	TimeframeYTD Timeframe = "YTD"
	TimeframeMTD Timeframe = "MTD"
)

// ErrInvalidTimeframe is returned for a tag outside the fixed set.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// QueryParams are the upstream query parameters derived from a Timeframe.
// Range and Interval use the provider's chart-API tokens. Step is the bar
// spacing and Bars the expected sample count, used by the synthesizer to
// size a fallback series.
type QueryParams struct {
	Range    string
	Interval string
	Step     time.Duration
	Bars     int
}

// timeframeTable is the single source of truth mapping tags to query
// parameters. Bar counts approximate US trading sessions: a 6.5h session
// yields 390 one-minute bars, 21 trading days a month, 252 a year.
var timeframeTable = map[Timeframe]QueryParams{
	Timeframe1D:  {Range: "1d", Interval: "1m", Step: time.Minute, Bars: 390},
	Timeframe5D:  {Range: "5d", Interval: "5m", Step: 5 * time.Minute, Bars: 390},
	Timeframe1W:  {Range: "5d", Interval: "15m", Step: 15 * time.Minute, Bars: 130},
	Timeframe1M:  {Range: "1mo", Interval: "1h", Step: time.Hour, Bars: 147},
	Timeframe3M:  {Range: "3mo", Interval: "1d", Step: 24 * time.Hour, Bars: 63},
	Timeframe1Y:  {Range: "1y", Interval: "1d", Step: 24 * time.Hour, Bars: 252},
	TimeframeYTD: {Range: "ytd", Interval: "1d", Step: 24 * time.Hour},
	TimeframeMTD: {Range: "1mo", Interval: "1h", Step: time.Hour, Bars: 147},
}

// Resolve maps a timeframe tag to upstream query parameters. It is the only
// place the tag table lives; every other component consumes its output.
func Resolve(tag Timeframe) (QueryParams, error) {
	return resolveAt(tag, time.Now())
}

func resolveAt(tag Timeframe, now time.Time) (QueryParams, error) {
	p, ok := timeframeTable[tag]
	if !ok {
		return QueryParams{}, ErrInvalidTimeframe
	}
	if p.Bars == 0 {
		// YTD: trading days elapsed this year, roughly 5 of every 7.
		p.Bars = now.YearDay() * 5 / 7
		if p.Bars < 1 {
			p.Bars = 1
		}
	}
	return p, nil
}

// Timeframes returns the fixed set of valid tags.
func Timeframes() []Timeframe {
	return []Timeframe{
		Timeframe1D, Timeframe5D, Timeframe1W, Timeframe1M,
		Timeframe3M, Timeframe1Y, TimeframeYTD, TimeframeMTD,
	}
}
