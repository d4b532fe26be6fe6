package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rishi329/stock-analytics-backend/internal/auth"
	"github.com/Rishi329/stock-analytics-backend/internal/config"
	"github.com/Rishi329/stock-analytics-backend/internal/httpx"
	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/provider"
	"github.com/Rishi329/stock-analytics-backend/internal/provider/ratelimit"
	"github.com/Rishi329/stock-analytics-backend/internal/provider/yahoo"
	"github.com/Rishi329/stock-analytics-backend/internal/scheduler"
	"github.com/Rishi329/stock-analytics-backend/internal/server"
	"github.com/Rishi329/stock-analytics-backend/internal/stocks"
	"github.com/Rishi329/stock-analytics-backend/internal/store"
	"github.com/Rishi329/stock-analytics-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Debug})
	log.Info().Str("environment", cfg.Environment).Msg("starting stock analytics backend")

	// User store is optional: without it the profile endpoints run in
	// development mode and stock data still flows.
	var users *store.Store
	if cfg.DatabasePath != "" {
		users, err = store.Open(cfg.DatabasePath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.DatabasePath).Msg("user store unavailable, continuing without it")
			users = nil
		} else {
			defer users.Close()
			if err := users.Migrate(); err != nil {
				log.Fatal().Err(err).Msg("failed to run migrations")
			}
		}
	}

	httpClient := httpx.New(cfg.FetchTimeout + 2*time.Second)

	yc := yahoo.New(yahoo.Config{
		BaseURL: cfg.ProviderEndpoint,
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
	}, httpClient)

	// Prefer token bucket with burst if RPM is set, otherwise min-interval.
	var p provider.HistoryProvider = yc
	if cfg.MaxRequestsPerMinute > 0 {
		rate := float64(cfg.MaxRequestsPerMinute) / 60.0
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(rate, burst)}
	} else if cfg.MinRequestIntervalSec > 0 {
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.MinRequestIntervalSec) * time.Second}
	}

	cache := market.NewCache(cfg.CacheTTL)
	cache.SetMaxEntries(cfg.CacheMaxEntries)

	svc := stocks.NewService(stocks.Config{
		Provider:     p,
		Cache:        cache,
		Log:          log,
		MaxInFlight:  cfg.MaxConcurrentFetches,
		FetchTimeout: cfg.FetchTimeout,
	})

	var verifier auth.Verifier
	if cfg.DevMode() {
		log.Warn().Msg("no API tokens configured, token verification bypassed")
		verifier = auth.DevVerifier{}
	} else {
		verifier = auth.NewStaticVerifier(cfg.APITokens)
	}

	sched := scheduler.New(log)
	if err := sched.AddJob("@every 60s", cacheSweepJob{cache: cache, log: log}); err != nil {
		log.Fatal().Err(err).Msg("failed to register cache sweep job")
	}
	sched.Start()
	defer sched.Stop()

	var userStore server.UserStore
	if users != nil {
		userStore = users
	}
	srv := server.New(server.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		Log:               log,
		CORSOrigins:       cfg.CORSOrigins,
		Environment:       cfg.Environment,
		Stocks:            svc,
		Users:             userStore,
		Verifier:          verifier,
		ProviderReachable: yc.Reachable,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}

// cacheSweepJob reclaims expired series entries; Get already refuses them,
// so the sweep is purely housekeeping.
type cacheSweepJob struct {
	cache *market.Cache
	log   zerolog.Logger
}

func (j cacheSweepJob) Name() string { return "cache-sweep" }

func (j cacheSweepJob) Run() error {
	if n := j.cache.SweepExpired(); n > 0 {
		j.log.Debug().Int("evicted", n).Msg("swept expired cache entries")
	}
	return nil
}
