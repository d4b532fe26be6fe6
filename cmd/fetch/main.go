package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Rishi329/stock-analytics-backend/internal/httpx"
	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/provider"
	"github.com/Rishi329/stock-analytics-backend/internal/provider/yahoo"
)

// Debug tool: fetch one symbol's series straight from the provider and print
// the normalized JSON for inspection, bypassing cache and fallback.
func main() {
	var symbol string
	var rangeTag string
	var endpoint string
	var timeout int

	flag.StringVar(&symbol, "symbol", getenv("SYMBOL", "AAPL"), "ticker symbol")
	flag.StringVar(&rangeTag, "range", getenv("RANGE", "1M"), "timeframe tag (1D,5D,1W,1M,3M,1Y,YTD,MTD)")
	flag.StringVar(&endpoint, "endpoint", getenv("PROVIDER_ENDPOINT", "https://query1.finance.yahoo.com"), "provider base URL")
	flag.IntVar(&timeout, "timeout", 15, "request timeout seconds")
	flag.Parse()

	params, err := market.Resolve(market.Timeframe(rangeTag))
	if err != nil {
		log.Fatalf("range: %v", err)
	}

	httpClient := httpx.New(time.Duration(timeout) * time.Second)
	client := yahoo.New(yahoo.Config{
		BaseURL: endpoint,
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
	}, httpClient)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	outcome := client.History(ctx, symbol, params)
	switch outcome.Status {
	case provider.StatusError:
		log.Fatalf("fetch: %v", outcome.Err)
	case provider.StatusEmpty:
		log.Fatalf("no usable rows for %s", symbol)
	}

	log.Printf("%s: %d bars (%s @ %s)", symbol, outcome.Series.Len(), params.Range, params.Interval)
	b, _ := json.MarshalIndent(outcome.Series, "", "  ")
	fmt.Println(string(b))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
