package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rickgao/ashare-data/internal/model"
	"github.com/rickgao/ashare-data/internal/ratelimit"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	s.writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":        "ok",
		"cache_enabled": s.cache.Enabled(),
		"time":          time.Now().UTC(),
	}

	// Data freshness: the newest stored trade date, if any bars exist.
	latest, err := s.store.LatestTradeDate(r.Context())
	switch {
	case err != nil:
		resp["status"] = "degraded"
		resp["error"] = "storage unavailable"
	case !latest.IsZero():
		resp["latest_trade_date"] = latest.Format(dateLayout)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "stocks:all"

	var stocks []model.Stock
	if s.cache.GetJSON(r.Context(), cacheKey, &stocks) {
		s.writeJSON(w, http.StatusOK, stocks)
		return
	}

	stocks, err := s.store.ListStocks(r.Context())
	if err != nil {
		s.logger.Error("list stocks failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if stocks == nil {
		stocks = []model.Stock{}
	}

	s.cache.SetJSON(r.Context(), cacheKey, stocks)
	s.writeJSON(w, http.StatusOK, stocks)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if _, _, err := model.ParseSymbol(symbol); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid symbol %q", symbol)
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	cacheKey := fmt.Sprintf("daily:%s:%s:%s:%d", symbol, from.Format(dateLayout), to.Format(dateLayout), limit)

	var bars []model.DailyBar
	if s.cache.GetJSON(r.Context(), cacheKey, &bars) {
		s.writeJSON(w, http.StatusOK, bars)
		return
	}

	bars, err = s.store.QueryDailyBars(r.Context(), symbol, from, to)
	if err != nil {
		s.logger.Error("query daily bars failed", "symbol", symbol, "error", err)
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if bars == nil {
		bars = []model.DailyBar{}
	}
	// Bars are oldest first; a limit keeps the most recent ones.
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	s.cache.SetJSON(r.Context(), cacheKey, bars)
	s.writeJSON(w, http.StatusOK, bars)
}

func (s *Server) handleRateLimitStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeJSON(w, http.StatusOK, []ratelimit.DetectorStats{})
		return
	}
	stats := s.stats.AllStats()
	if stats == nil {
		stats = []ratelimit.DetectorStats{}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// parseLimit reads the optional limit query param. Zero means unlimited.
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

// parseDateRange reads start/end query params, defaulting to the last year.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	from := now.AddDate(-1, 0, 0)
	to := now

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", v)
		}
		from = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", v)
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date")
	}
	return from, to, nil
}
