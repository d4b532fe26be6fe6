package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Rishi329/stock-analytics-backend/internal/market"
	"github.com/Rishi329/stock-analytics-backend/internal/stocks"
	"github.com/Rishi329/stock-analytics-backend/internal/store"
)

const maxSymbolsPerRequest = 50

// handleStocks answers GET /api/stocks?symbols=AAPL,MSFT&range=1M with a
// per-symbol series map.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	symbolsParam := r.URL.Query().Get("symbols")
	if strings.TrimSpace(symbolsParam) == "" {
		writeError(w, http.StatusBadRequest, "missing symbols query param")
		return
	}
	symbols := splitCSV(symbolsParam)
	if len(symbols) > maxSymbolsPerRequest {
		writeError(w, http.StatusBadRequest, "too many symbols (max 50)")
		return
	}

	tag := market.Timeframe(r.URL.Query().Get("range"))
	if tag == "" {
		tag = market.Timeframe1M
	}

	result, err := s.stocks.GetSeries(r.Context(), symbols, tag)
	switch {
	case errors.Is(err, market.ErrInvalidTimeframe):
		writeError(w, http.StatusBadRequest, "invalid range: "+string(tag))
		return
	case errors.Is(err, stocks.ErrNoSymbols):
		writeError(w, http.StatusBadRequest, "no valid symbols")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to fetch stock data")
		return
	}

	s.logActivity(identityFrom(r.Context()).UserID, "stock_data_fetch", map[string]any{
		"symbols": symbolsParam,
		"range":   string(tag),
	})

	writeJSON(w, http.StatusOK, result)
}

// logActivity records a user action without blocking or failing the request.
func (s *Server) logActivity(uid, action string, metadata map[string]any) {
	if s.users == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.users.LogActivity(ctx, uid, action, metadata); err != nil {
			s.log.Error().Err(err).Str("action", action).Msg("failed to log user activity")
		}
	}()
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if s.users == nil {
		writeJSON(w, http.StatusOK, store.Profile{
			UID:         id.UserID,
			Email:       id.Email,
			DisplayName: "Development User",
			Favorites:   []string{},
			Preferences: store.Preferences{DefaultTimeRange: "1M", DefaultSymbols: "AAPL,MSFT,GOOGL"},
		})
		return
	}

	profile, err := s.users.GetOrCreateProfile(r.Context(), id.UserID, id.Email, "")
	if err != nil {
		s.log.Error().Err(err).Str("uid", id.UserID).Msg("failed to fetch user profile")
		writeError(w, http.StatusInternalServerError, "failed to fetch user profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd store.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if s.users == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "profile updated (development mode)"})
		return
	}

	id := identityFrom(r.Context())
	if err := s.users.UpdateProfile(r.Context(), id.UserID, upd); err != nil {
		s.log.Error().Err(err).Str("uid", id.UserID).Msg("failed to update user profile")
		writeError(w, http.StatusInternalServerError, "failed to update user profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "profile updated successfully"})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	symbol = strings.ToUpper(symbol)

	if s.users == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "added " + symbol + " to favorites (development mode)"})
		return
	}

	id := identityFrom(r.Context())
	if err := s.users.AddFavorite(r.Context(), id.UserID, symbol); err != nil {
		s.log.Error().Err(err).Str("uid", id.UserID).Msg("failed to add favorite")
		writeError(w, http.StatusInternalServerError, "failed to add favorite")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "added " + symbol + " to favorites"})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	if s.users == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "removed " + symbol + " from favorites (development mode)"})
		return
	}

	id := identityFrom(r.Context())
	if err := s.users.RemoveFavorite(r.Context(), id.UserID, symbol); err != nil {
		s.log.Error().Err(err).Str("uid", id.UserID).Msg("failed to remove favorite")
		writeError(w, http.StatusInternalServerError, "failed to remove favorite")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed " + symbol + " from favorites"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeStatus := "disabled"
	if s.users != nil {
		storeStatus = "ok"
		if err := s.users.Ping(r.Context()); err != nil {
			storeStatus = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"provider_reachable": s.reachable(),
		"store":              storeStatus,
		"environment":        s.environment,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError mirrors the {"detail": ...} error shape the dashboard already
// consumes.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
