package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *fakePlacer, *Ledger, *OrderLog) {
	t.Helper()
	cfg := strategyConfig()
	cfg.AdminToken = "secret"
	placer := &fakePlacer{}
	ledger := NewLedger()
	olog := NewOrderLog()
	feed := &fakeFeed{price: 50000, avg: 50000, atr: 1000}
	engine := NewStrategyEngine(cfg, feed, placer, ledger)
	return NewServer(cfg, placer, engine, ledger, olog), placer, ledger, olog
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	w := do(t, s.Routes(), http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	require.Equal(t, true, data["paper_trading"])
	require.NotEmpty(t, data["time"])
}

func TestAdminEndpointsRequireBearerToken(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	mux := s.Routes()

	w := do(t, mux, http.MethodGet, "/api/status", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, mux, http.MethodGet, "/api/status", "wrong", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, mux, http.MethodGet, "/api/status", "secret", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRefusedWithoutConfiguredToken(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	s.cfg.AdminToken = ""
	w := do(t, s.Routes(), http.MethodGet, "/api/status", "anything", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusReportsEngineState(t *testing.T) {
	s, _, ledger, _ := newTestServer(t)
	ledger.Buy(100, 50000)

	w := do(t, s.Routes(), http.MethodGet, "/api/status", "secret", "")
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	require.Equal(t, true, data["paper_trading"])
	require.Equal(t, true, data["strategy_enabled"])
	require.Equal(t, "default", data["strategy_override"])
	require.Equal(t, 250.0, data["max_trade_usd"])

	balances := data["ledger"].(map[string]any)
	require.Equal(t, 0.002, balances["base"])
}

func TestPaperOrderEndpointPlacesOrder(t *testing.T) {
	s, placer, _, _ := newTestServer(t)
	w := do(t, s.Routes(), http.MethodPost, "/api/orders/paper", "secret",
		`{"product_id":"BTC-USD","side":"buy","quote_usd":100}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, placer.calls, 1)
	require.Equal(t, ModePaper, placer.calls[0].mode)
	require.Equal(t, SideBuy, placer.calls[0].side)
	require.Equal(t, 100.0, placer.calls[0].quoteUSD)
}

func TestLiveOrderEndpointSurfacesStructuredRefusal(t *testing.T) {
	s, placer, _, _ := newTestServer(t)
	placer.err = ErrLiveBlocked

	w := do(t, s.Routes(), http.MethodPost, "/api/orders/live", "secret",
		`{"product_id":"BTC-USD","side":"buy","quote_usd":100}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeResponse(t, w)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "paper trading is active")
}

func TestOrderEndpointRejectsBadSide(t *testing.T) {
	s, placer, _, _ := newTestServer(t)
	w := do(t, s.Routes(), http.MethodPost, "/api/orders/paper", "secret",
		`{"product_id":"BTC-USD","side":"hold","quote_usd":100}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, placer.calls)
}

func TestStrategyEnableOverride(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	mux := s.Routes()

	w := do(t, mux, http.MethodPost, "/api/strategy/enable", "secret", `{"enabled":false}`)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	require.Equal(t, false, data["strategy_enabled"])
	require.Equal(t, "off", data["strategy_override"])

	// null restores the env default
	w = do(t, mux, http.MethodPost, "/api/strategy/enable", "secret", `{"enabled":null}`)
	resp = decodeResponse(t, w)
	data = resp.Data.(map[string]any)
	require.Equal(t, true, data["strategy_enabled"])
	require.Equal(t, "default", data["strategy_override"])
}

func TestManualTickEndpoint(t *testing.T) {
	s, placer, _, _ := newTestServer(t)

	// fakeFeed price 50000 sits inside the band; tick holds, no order.
	w := do(t, s.Routes(), http.MethodPost, "/api/strategy/tick", "secret", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, placer.calls)

	resp := decodeResponse(t, w)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	require.Equal(t, "hold", data["outcome"])
}

func TestManualTickSurfacesFailure(t *testing.T) {
	cfg := strategyConfig()
	cfg.AdminToken = "secret"
	placer := &fakePlacer{}
	ledger := NewLedger()
	engine := NewStrategyEngine(cfg, &fakeFeed{price: 0}, placer, ledger) // feed errors
	s := NewServer(cfg, placer, engine, ledger, NewOrderLog())

	w := do(t, s.Routes(), http.MethodPost, "/api/strategy/tick", "secret", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeResponse(t, w)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "feed down")
}

func TestRiskViolationMapsToBadRequest(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(riskErrf("nope")))
	require.Equal(t, http.StatusBadRequest, statusFor(ErrLiveBlocked))
	require.Equal(t, http.StatusServiceUnavailable, statusFor(ErrNoCredentials))
	require.Equal(t, http.StatusBadGateway, statusFor(&GatewayError{StatusCode: 400, Body: "x"}))
}
