package market

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"
)

// basePrices anchors synthetic series for well-known tickers so placeholder
// charts look plausible next to real ones.
var basePrices = map[string]float64{
	"AAPL":  175.0,
	"GOOGL": 2800.0,
	"MSFT":  340.0,
	"AMZN":  3200.0,
	"TSLA":  250.0,
	"NVDA":  450.0,
	"META":  320.0,
	"NFLX":  450.0,
	"SPY":   450.0,
	"QQQ":   380.0,
}

// Synthesize produces a deterministic pseudo-random OHLCV series for a
// symbol, sized to the expected sample count for params. It is used when the
// upstream provider yields nothing usable for a symbol, and always succeeds.
//
// The walk is seeded from the symbol alone (FNV-1a, process-independent), so
// repeated fallback calls for the same symbol render the same price path and
// the UI stays stable across refreshes. Only the timestamps move with the
// clock.
func Synthesize(symbol string, params QueryParams) Series {
	return synthesizeAt(symbol, params, time.Now())
}

func synthesizeAt(symbol string, params QueryParams, now time.Time) Series {
	n := params.Bars
	if n < 1 {
		n = 1
	}
	step := params.Step
	if step <= 0 {
		step = 24 * time.Hour
	}

	sym := strings.ToUpper(strings.TrimSpace(symbol))
	rng := rand.New(rand.NewSource(seed(sym)))
	base := basePrice(sym)

	s := Series{
		Timestamps: make([]int64, 0, n),
		Open:       make([]float64, 0, n),
		High:       make([]float64, 0, n),
		Low:        make([]float64, 0, n),
		Close:      make([]float64, 0, n),
		Volume:     make([]int64, 0, n),
	}

	start := now.Add(-time.Duration(n-1) * step)
	price := base
	for i := 0; i < n; i++ {
		// Random walk with a slight upward drift, bounded to [0.5x, 2x] base.
		change := rng.NormFloat64()*0.02 + 0.001
		price *= 1 + change
		if price < base*0.5 {
			price = base * 0.5
		}
		if price > base*2.0 {
			price = base * 2.0
		}

		const volatility = 0.005 // intraday spread around the close
		open := price * (1 + rng.NormFloat64()*volatility)
		high := math.Max(open, price) * (1 + math.Abs(rng.NormFloat64())*volatility)
		low := math.Min(open, price) * (1 - math.Abs(rng.NormFloat64())*volatility)

		volume := 1_000_000 + rng.Int63n(5_000_000)
		volume = int64(float64(volume) * (1 + math.Abs(change)*10))

		s.Timestamps = append(s.Timestamps, start.Add(time.Duration(i)*step).UnixMilli())
		s.Open = append(s.Open, roundCents(open))
		s.High = append(s.High, roundCents(high))
		s.Low = append(s.Low, roundCents(low))
		s.Close = append(s.Close, roundCents(price))
		s.Volume = append(s.Volume, volume)
	}
	return s
}

func seed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}

// basePrice returns the anchor price for a symbol: the fixed table for known
// tickers, otherwise a value derived from the symbol's character codes
// clamped to a typical equity range.
func basePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	var sum int
	for _, r := range symbol {
		sum += int(r)
	}
	return float64(20 + sum%731) // [20, 750]
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
