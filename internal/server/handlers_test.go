package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Rishi329/stock-analytics-backend/internal/auth"
	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/stocks"
)

// stubStocks returns a canned result per request.
type stubStocks struct {
	result map[string]stocks.SymbolSeries
	err    error

	gotSymbols []string
	gotTag     market.Timeframe
}

func (s *stubStocks) GetSeries(_ context.Context, symbols []string, tag market.Timeframe) (map[string]stocks.SymbolSeries, error) {
	s.gotSymbols = symbols
	s.gotTag = tag
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestServer(t *testing.T, svc StockService) *Server {
	t.Helper()
	return New(Config{
		Host:        "127.0.0.1",
		Port:        0,
		Log:         zerolog.New(nil).Level(zerolog.Disabled),
		Environment: "test",
		Stocks:      svc,
		Verifier:    auth.NewStaticVerifier(map[string]string{"good-token": "user-1"}),
	})
}

func doRequest(t *testing.T, s *Server, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestStocks_RequiresAuth(t *testing.T) {
	s := newTestServer(t, &stubStocks{})

	rr := doRequest(t, s, http.MethodGet, "/api/stocks?symbols=AAPL", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/stocks?symbols=AAPL", "wrong-token")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Contains(t, body["detail"], "token")
}

func TestStocks_MissingSymbols(t *testing.T) {
	s := newTestServer(t, &stubStocks{})
	rr := doRequest(t, s, http.MethodGet, "/api/stocks", "good-token")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStocks_InvalidRange(t *testing.T) {
	s := newTestServer(t, &stubStocks{err: market.ErrInvalidTimeframe})
	rr := doRequest(t, s, http.MethodGet, "/api/stocks?symbols=AAPL&range=2D", "good-token")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStocks_HappyPath(t *testing.T) {
	stub := &stubStocks{result: map[string]stocks.SymbolSeries{
		"AAPL": {
			Series: market.Series{
				Timestamps: []int64{1700000000000},
				Open:       []float64{189.1},
				High:       []float64{189.5},
				Low:        []float64{188.9},
				Close:      []float64{189.3},
				Volume:     []int64{120000},
			},
		},
		"BADSYM": {Series: market.Synthesize("BADSYM", market.QueryParams{Bars: 2}), IsFallback: true},
	}}
	s := newTestServer(t, stub)

	rr := doRequest(t, s, http.MethodGet, "/api/stocks?symbols=AAPL,BADSYM&range=1D", "good-token")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"AAPL", "BADSYM"}, stub.gotSymbols)
	require.Equal(t, market.Timeframe1D, stub.gotTag)

	var body map[string]struct {
		Timestamps []int64   `json:"timestamps"`
		Close      []float64 `json:"close"`
		IsFallback bool      `json:"isFallback"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 2)
	require.False(t, body["AAPL"].IsFallback)
	require.Equal(t, []float64{189.3}, body["AAPL"].Close)
	require.True(t, body["BADSYM"].IsFallback)
}

func TestStocks_DefaultRange(t *testing.T) {
	stub := &stubStocks{result: map[string]stocks.SymbolSeries{}}
	s := newTestServer(t, stub)

	rr := doRequest(t, s, http.MethodGet, "/api/stocks?symbols=AAPL", "good-token")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, market.Timeframe1M, stub.gotTag)
}

func TestStocks_TooManySymbols(t *testing.T) {
	s := newTestServer(t, &stubStocks{})
	// The cap applies to the raw CSV, before dedupe.
	csv := strings.TrimSuffix(strings.Repeat("AAPL,", maxSymbolsPerRequest+1), ",")
	rr := doRequest(t, s, http.MethodGet, "/api/stocks?symbols="+csv, "good-token")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfile_DevModeWithoutStore(t *testing.T) {
	s := newTestServer(t, &stubStocks{})

	rr := doRequest(t, s, http.MethodGet, "/api/profile", "good-token")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "user-1", body["uid"])
	require.Equal(t, "Development User", body["displayName"])
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newTestServer(t, &stubStocks{})

	rr := doRequest(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, true, body["provider_reachable"])
	require.Equal(t, "disabled", body["store"])
}
