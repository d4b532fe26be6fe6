package market

import "fmt"

// Series is the canonical OHLCV layout served to clients: five parallel
// columns aligned index-for-index with the timestamps column. All producers
// (provider normalization and the synthesizer) emit this shape so the
// response schema is uniform regardless of where the data came from.
type Series struct {
	Timestamps []int64   `json:"timestamps"` // epoch milliseconds, strictly increasing
	Open       []float64 `json:"open"`
	High       []float64 `json:"high"`
	Low        []float64 `json:"low"`
	Close      []float64 `json:"close"`
	Volume     []int64   `json:"volume"`
}

// Len returns the number of samples in the series.
func (s Series) Len() int { return len(s.Timestamps) }

// Validate checks the column invariants: equal lengths across all six
// columns and strictly increasing timestamps.
func (s Series) Validate() error {
	n := len(s.Timestamps)
	if len(s.Open) != n || len(s.High) != n || len(s.Low) != n || len(s.Close) != n || len(s.Volume) != n {
		return fmt.Errorf("series columns misaligned: ts=%d open=%d high=%d low=%d close=%d volume=%d",
			n, len(s.Open), len(s.High), len(s.Low), len(s.Close), len(s.Volume))
	}
	for i := 1; i < n; i++ {
		if s.Timestamps[i] <= s.Timestamps[i-1] {
			return fmt.Errorf("timestamps not strictly increasing at index %d: %d <= %d", i, s.Timestamps[i], s.Timestamps[i-1])
		}
	}
	return nil
}
