package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Rishi329/stock-analytics-backend/internal/httpx"
	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/provider"
)

// Config configures the Yahoo Finance chart client.
type Config struct {
	Name    string
	BaseURL string
	Headers map[string]string
	// SymbolMap rewrites internal symbols to Yahoo tickers (e.g. SPX -> ^GSPC).
	SymbolMap map[string]string
}

// Client fetches historical bars from the Yahoo Finance v8 chart API and
// normalizes them into the canonical series shape.
type Client struct {
	cfg    Config
	client *httpx.Client

	reachable atomic.Bool
}

func New(cfg Config, hc *httpx.Client) *Client {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.SymbolMap == nil {
		cfg.SymbolMap = map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		}
	}
	c := &Client{cfg: cfg, client: hc}
	c.reachable.Store(true)
	return c
}

func (c *Client) Name() string { return c.cfg.Name }

// Reachable reports whether the most recent upstream call got any HTTP
// response at all. It is a derived health signal, not part of the fetch
// contract.
func (c *Client) Reachable() bool { return c.reachable.Load() }

func (c *Client) ticker(symbol string) string {
	if mapped, ok := c.cfg.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// chartResponse is the subset of the Yahoo chart payload we consume. Price
// columns arrive with JSON nulls for holiday/halted bars, hence pointers.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History issues a single chart query for one symbol. Transport and HTTP
// failures classify as StatusError; a well-formed response with zero valid
// rows classifies as StatusEmpty.
func (c *Client) History(ctx context.Context, symbol string, params market.QueryParams) provider.Outcome {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.ticker(symbol)),
		url.QueryEscape(params.Interval),
		url.QueryEscape(params.Range))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errOutcome(fmt.Errorf("yahoo request: %w", err))
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		c.reachable.Store(false)
		return errOutcome(fmt.Errorf("yahoo fetch %s: %w", symbol, err))
	}
	defer resp.Body.Close()
	c.reachable.Store(true)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return errOutcome(fmt.Errorf("yahoo %s: status %d: %s", symbol, resp.StatusCode, string(b)))
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return errOutcome(fmt.Errorf("yahoo decode %s: %w", symbol, err))
	}
	if chart.Chart.Error != nil {
		return errOutcome(fmt.Errorf("yahoo api error for %s: %s", symbol, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return provider.Outcome{Status: provider.StatusEmpty}
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	series := normalize(result.Timestamp, quote.Open, quote.High, quote.Low, quote.Close, quote.Volume)
	if series.Len() == 0 {
		return provider.Outcome{Status: provider.StatusEmpty}
	}
	if err := series.Validate(); err != nil {
		return errOutcome(fmt.Errorf("yahoo %s: %w", symbol, err))
	}
	return provider.Outcome{Status: provider.StatusSuccess, Series: series}
}

type bar struct {
	ts         int64
	o, h, l, c float64
	v          int64
}

// normalize converts raw chart columns into the canonical series: seconds to
// epoch milliseconds, null/NaN price rows dropped with their volume entry,
// bars sorted by timestamp, duplicate timestamps collapsed to the last row.
func normalize(ts []int64, open, high, low, closep, volume []*float64) market.Series {
	bars := make([]bar, 0, len(ts))
	for i, t := range ts {
		o, okO := deref(open, i)
		h, okH := deref(high, i)
		l, okL := deref(low, i)
		cl, okC := deref(closep, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		v, okV := deref(volume, i)
		if !okV || v < 0 {
			v = 0
		}
		bars = append(bars, bar{ts: t * 1000, o: o, h: h, l: l, c: cl, v: int64(v)})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].ts < bars[j].ts })

	s := market.Series{
		Timestamps: make([]int64, 0, len(bars)),
		Open:       make([]float64, 0, len(bars)),
		High:       make([]float64, 0, len(bars)),
		Low:        make([]float64, 0, len(bars)),
		Close:      make([]float64, 0, len(bars)),
		Volume:     make([]int64, 0, len(bars)),
	}
	for _, b := range bars {
		if n := s.Len(); n > 0 && s.Timestamps[n-1] == b.ts {
			s.Open[n-1], s.High[n-1], s.Low[n-1], s.Close[n-1], s.Volume[n-1] = b.o, b.h, b.l, b.c, b.v
			continue
		}
		s.Timestamps = append(s.Timestamps, b.ts)
		s.Open = append(s.Open, b.o)
		s.High = append(s.High, b.h)
		s.Low = append(s.Low, b.l)
		s.Close = append(s.Close, b.c)
		s.Volume = append(s.Volume, b.v)
	}
	return s
}

func deref(col []*float64, i int) (float64, bool) {
	if i >= len(col) || col[i] == nil {
		return 0, false
	}
	v := *col[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func errOutcome(err error) provider.Outcome {
	return provider.Outcome{Status: provider.StatusError, Err: err}
}
