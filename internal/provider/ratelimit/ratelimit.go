package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between upstream
// calls. Concurrent calls wait until the interval has elapsed since the last
// call, or bail out as a provider error when the context is canceled.
type MinInterval struct {
	P        provider.HistoryProvider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) History(ctx context.Context, symbol string, params market.QueryParams) provider.Outcome {
	if m.Interval > 0 {
		// simple gate: ensure at least Interval since last
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return provider.Outcome{Status: provider.StatusError, Err: ctx.Err()}
			case <-t.C:
			}
		}
	}
	out := m.P.History(ctx, symbol, params)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return out
}
