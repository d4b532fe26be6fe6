package provider

import (
	"context"

	"github.com/Rishi329/stock-analytics-backend/internal/market"
)

// Status classifies a single fetch attempt.
type Status int

const (
	// StatusSuccess means the upstream returned at least one valid row.
	StatusSuccess Status = iota
	// StatusEmpty means the upstream responded but had no usable rows.
	StatusEmpty
	// StatusError means transport failure, rate limiting, timeout, or a
	// malformed response.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the per-symbol result of one fetch attempt. Failures are values
// here, not errors propagated up: the caller decides whether to substitute a
// fallback series. Err is set only when Status is StatusError.
type Outcome struct {
	Status Status
	Series market.Series
	Err    error
}

// HistoryProvider issues one upstream historical-data query per call and
// normalizes the response into the canonical series shape. Implementations
// never retry within a single call.
type HistoryProvider interface {
	Name() string
	History(ctx context.Context, symbol string, params market.QueryParams) Outcome
}
