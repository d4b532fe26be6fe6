package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Rishi329/stock-analytics-backend/internal/auth"
	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/stocks"
	"github.com/Rishi329/stock-analytics-backend/internal/store"
)

// StockService is the data core's exposed surface, the sole entry point the
// route layer calls to answer a stock-data request.
type StockService interface {
	GetSeries(ctx context.Context, symbols []string, tag market.Timeframe) (map[string]stocks.SymbolSeries, error)
}

// UserStore is the profile/favorites/activity persistence boundary.
type UserStore interface {
	GetOrCreateProfile(ctx context.Context, uid, email, displayName string) (store.Profile, error)
	UpdateProfile(ctx context.Context, uid string, upd store.ProfileUpdate) error
	AddFavorite(ctx context.Context, uid, symbol string) error
	RemoveFavorite(ctx context.Context, uid, symbol string) error
	LogActivity(ctx context.Context, uid, action string, metadata map[string]any) error
	Ping(ctx context.Context) error
}

// Config holds server configuration and dependencies.
type Config struct {
	Host        string
	Port        int
	Log         zerolog.Logger
	CORSOrigins []string
	Environment string

	Stocks   StockService
	Users    UserStore // nil runs profile endpoints in development mode
	Verifier auth.Verifier
	// ProviderReachable reports upstream health for /health; nil means
	// always reachable.
	ProviderReachable func() bool
}

// Server is the HTTP front of the service.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	stocks      StockService
	users       UserStore
	verifier    auth.Verifier
	reachable   func() bool
	environment string
}

// New builds the router, middleware stack, and routes.
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		stocks:      cfg.Stocks,
		users:       cfg.Users,
		verifier:    cfg.Verifier,
		reachable:   cfg.ProviderReachable,
		environment: cfg.Environment,
	}
	if s.reachable == nil {
		s.reachable = func() bool { return true }
	}

	s.setupMiddleware(cfg.CORSOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(corsOrigins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/stocks", s.handleStocks)
		r.Get("/profile", s.handleGetProfile)
		r.Post("/profile", s.handleUpdateProfile)
		r.Post("/favorites", s.handleAddFavorite)
		r.Delete("/favorites/{symbol}", s.handleRemoveFavorite)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
