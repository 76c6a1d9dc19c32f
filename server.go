// FILE: server.go
// Package main – Admin control surface and health/metrics endpoints.
//
// Routes:
//   GET  /healthz              – unauthenticated: paper flag + current time
//   GET  /metrics              – Prometheus exposition
//   GET  /api/status           – risk config, balances, recent orders
//   POST /api/orders/paper     – place a simulated order
//   POST /api/orders/live      – place a real order (refused while paper
//                                trading is on)
//   POST /api/strategy/enable  – force the enabled flag on/off, or null to
//                                restore the env default
//   POST /api/strategy/tick    – run one strategy tick now; reports the
//                                outcome or the failure
//
// Everything under /api/ requires `Authorization: Bearer <ADMIN_TOKEN>`.

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the admin API over the wired components.
type Server struct {
	cfg    Config
	exec   OrderPlacer
	engine *StrategyEngine
	ledger *Ledger
	olog   *OrderLog
}

func NewServer(cfg Config, exec OrderPlacer, engine *StrategyEngine, ledger *Ledger, olog *OrderLog) *Server {
	return &Server{cfg: cfg, exec: exec, engine: engine, ledger: ledger, olog: olog}
}

// Response is the uniform JSON envelope for every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OrderRequest is the body for both order endpoints.
type OrderRequest struct {
	ProductID string  `json:"product_id"`
	Side      string  `json:"side"`
	QuoteUSD  float64 `json:"quote_usd"`
}

// Routes builds the full mux, auth applied to the /api/ subtree.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/status", s.withAuth(s.handleStatus))
	mux.HandleFunc("/api/orders/paper", s.withAuth(s.handleOrder(ModePaper)))
	mux.HandleFunc("/api/orders/live", s.withAuth(s.handleOrder(ModeLive)))
	mux.HandleFunc("/api/strategy/enable", s.withAuth(s.handleEnable))
	mux.HandleFunc("/api/strategy/tick", s.withAuth(s.handleTick))
	return mux
}

// withAuth wraps a handler with the bearer-equality admin check.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			s.sendError(w, "admin token not configured", http.StatusServiceUnavailable)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token != s.cfg.AdminToken {
			s.sendError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sendSuccess(w, map[string]any{
		"paper_trading": s.cfg.PaperTrading,
		"time":          time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	base, quote := s.ledger.Balances()
	s.sendSuccess(w, map[string]any{
		"paper_trading":     s.cfg.PaperTrading,
		"strategy_enabled":  s.engine.Enabled(),
		"strategy_override": s.engine.OverrideState(),
		"allowed_pairs":     s.cfg.AllowedPairs,
		"max_trade_usd":     s.cfg.MaxTradeUSD,
		"ledger": map[string]float64{
			"base":  base,
			"quote": quote,
		},
		"recent_orders": s.olog.Recent(),
	})
}

// handleOrder places a manual order in the given mode.
func (s *Server) handleOrder(mode TradeMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		side := OrderSide(strings.ToUpper(strings.TrimSpace(req.Side)))
		if side != SideBuy && side != SideSell {
			s.sendError(w, "side must be BUY or SELL", http.StatusBadRequest)
			return
		}
		rec, err := s.exec.Execute(r.Context(), req.ProductID, side, req.QuoteUSD, mode)
		if err != nil {
			s.sendError(w, err.Error(), statusFor(err))
			return
		}
		s.sendSuccess(w, rec)
	}
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"` // null restores the env default
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.engine.SetOverride(req.Enabled)
	s.sendSuccess(w, map[string]any{
		"strategy_enabled":  s.engine.Enabled(),
		"strategy_override": s.engine.OverrideState(),
	})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	outcome, err := s.engine.Tick(r.Context(), "manual")
	if err != nil {
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	s.sendSuccess(w, map[string]any{"outcome": outcome})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	var riskErr *RiskError
	var gwErr *GatewayError
	switch {
	case errors.As(err, &riskErr), errors.Is(err, ErrLiveBlocked):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoCredentials):
		return http.StatusServiceUnavailable
	case errors.As(err, &gwErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func (s *Server) sendError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: msg})
}
