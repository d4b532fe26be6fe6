package stocks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/provider"
)

// ErrNoSymbols is returned when a request carries no usable symbols.
var ErrNoSymbols = errors.New("no symbols requested")

// SymbolSeries pairs a series with its provenance. IsFallback marks
// synthetic data so the UI can flag degraded symbols.
type SymbolSeries struct {
	market.Series
	IsFallback bool `json:"isFallback"`
}

// Service orchestrates series retrieval for multi-symbol requests: timeframe
// resolution, cache lookup, bounded concurrent fetching, per-symbol fallback
// substitution, and cache repopulation.
type Service struct {
	provider     provider.HistoryProvider
	cache        *market.Cache
	log          zerolog.Logger
	maxInFlight  int
	fetchTimeout time.Duration

	sf singleflight.Group
}

// Config bundles Service dependencies.
type Config struct {
	Provider provider.HistoryProvider
	Cache    *market.Cache
	Log      zerolog.Logger
	// MaxInFlight caps concurrent upstream calls per request batch.
	MaxInFlight int
	// FetchTimeout bounds each upstream call; an elapsed timeout is a
	// provider error for that symbol only.
	FetchTimeout time.Duration
}

func NewService(cfg Config) *Service {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	return &Service{
		provider:     cfg.Provider,
		cache:        cfg.Cache,
		log:          cfg.Log.With().Str("component", "stocks").Logger(),
		maxInFlight:  cfg.MaxInFlight,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// GetSeries returns one series per requested symbol for the given timeframe.
// The only request-level failures are an invalid timeframe or an empty
// symbol list; every per-symbol provider failure is absorbed into a
// synthetic series flagged IsFallback.
func (s *Service) GetSeries(ctx context.Context, symbols []string, tag market.Timeframe) (map[string]SymbolSeries, error) {
	params, err := market.Resolve(tag)
	if err != nil {
		return nil, err
	}
	syms := NormalizeSymbols(symbols)
	if len(syms) == 0 {
		return nil, ErrNoSymbols
	}

	if out, ok := s.fromCache(syms, tag); ok {
		return out, nil
	}

	// Collapse concurrent identical requests into one fetch batch. The batch
	// runs detached from the leader's cancellation so one client's disconnect
	// cannot turn a joined client's data into fallback; the per-fetch timeout
	// still bounds the work.
	key := strings.Join(syms, ",") + "|" + string(tag)
	fetchCtx := context.WithoutCancel(ctx)
	v, _, shared := s.sf.Do(key, func() (any, error) {
		if out, ok := s.fromCache(syms, tag); ok {
			return out, nil
		}
		return s.fetchAll(fetchCtx, syms, tag, params), nil
	})
	if shared {
		s.log.Debug().Str("key", key).Msg("request joined in-flight fetch")
	}
	return v.(map[string]SymbolSeries), nil
}

// fromCache serves a request entirely from the cache. Cached entries hold
// real data only, so every hit is IsFallback=false.
func (s *Service) fromCache(syms []string, tag market.Timeframe) (map[string]SymbolSeries, bool) {
	cached, ok := s.cache.Get(syms, tag)
	if !ok || len(cached) < len(syms) {
		// A partial entry means some symbols were fallback when it was
		// written; give those a fresh shot at the live provider.
		return nil, false
	}
	out := make(map[string]SymbolSeries, len(syms))
	for _, sym := range syms {
		ser, ok := cached[sym]
		if !ok {
			return nil, false
		}
		out[sym] = SymbolSeries{Series: ser}
	}
	return out, true
}

// fetchAll fans out one fetch per symbol with bounded concurrency, waits for
// every outcome, substitutes fallback series, and caches the real subset.
func (s *Service) fetchAll(ctx context.Context, syms []string, tag market.Timeframe, params market.QueryParams) map[string]SymbolSeries {
	cached, cachedAt, _ := s.cache.Lookup(syms, tag)

	missing := make([]string, 0, len(syms))
	for _, sym := range syms {
		if _, ok := cached[sym]; !ok {
			missing = append(missing, sym)
		}
	}

	outcomes := make([]provider.Outcome, len(missing))
	g := &errgroup.Group{}
	g.SetLimit(s.maxInFlight)
	for i, sym := range missing {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()
			outcomes[i] = s.provider.History(fctx, sym, params)
			return nil
		})
	}
	// Fetches report outcomes, never errors: one slow or failed symbol
	// cannot cancel the rest of the batch.
	_ = g.Wait()

	out := make(map[string]SymbolSeries, len(syms))
	real := make(map[string]market.Series, len(syms))
	for sym, ser := range cached {
		out[sym] = SymbolSeries{Series: ser}
		real[sym] = ser
	}
	for i, sym := range missing {
		oc := outcomes[i]
		switch oc.Status {
		case provider.StatusSuccess:
			out[sym] = SymbolSeries{Series: oc.Series}
			real[sym] = oc.Series
		case provider.StatusEmpty:
			s.log.Warn().Str("symbol", sym).Str("timeframe", string(tag)).
				Msg("provider returned no rows, serving synthetic series")
			out[sym] = SymbolSeries{Series: market.Synthesize(sym, params), IsFallback: true}
		default:
			s.log.Warn().Err(oc.Err).Str("symbol", sym).Str("timeframe", string(tag)).
				Msg("provider fetch failed, serving synthetic series")
			out[sym] = SymbolSeries{Series: market.Synthesize(sym, params), IsFallback: true}
		}
	}

	// Fallback results are never cached; only the real subset is written so
	// the next request retries the live provider for failed symbols. A reused
	// cached subset keeps its original creation time, so data carried across
	// rewrites still expires one TTL after it was fetched.
	if len(real) > 0 {
		if len(cached) > 0 {
			s.cache.PutAt(syms, tag, real, cachedAt)
		} else {
			s.cache.Put(syms, tag, real)
		}
	}
	return out
}

// NormalizeSymbols upper-cases, trims, dedupes, and lexicographically sorts
// a symbol list, producing the deterministic ordering used for cache keys.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
