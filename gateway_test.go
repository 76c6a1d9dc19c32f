package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func gatewayConfig(base string) Config {
	return Config{APIBase: base}
}

func TestSubmitOrderSignsAndParsesAck(t *testing.T) {
	var gotAuth, gotKey string
	var gotBody OrderBody
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, ordersPath, r.URL.Path)
		gotAuth = r.Header.Get("CB-ACCESS-SIGN")
		gotKey = r.Header.Get("CB-ACCESS-KEY")
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		_, _ = w.Write([]byte(`{"success_response":{"order_id":"ord-42"}}`))
	}))
	defer ts.Close()

	g := NewCoinbaseGateway(gatewayConfig(ts.URL), NewHMACSigner("key-id", "shh"))
	ack, err := g.SubmitOrder(context.Background(), buildOrderBody("BTC-USD", SideBuy, 100, 50000))
	require.NoError(t, err)
	require.Equal(t, "ord-42", ack.OrderID)
	require.NotEmpty(t, gotAuth)
	require.Equal(t, "key-id", gotKey)
	require.Equal(t, "BTC-USD", gotBody.ProductID)
}

func TestSubmitOrderPreservesRejectionBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"INSUFFICIENT_FUND"}`))
	}))
	defer ts.Close()

	g := NewCoinbaseGateway(gatewayConfig(ts.URL), NewHMACSigner("key-id", "shh"))
	_, err := g.SubmitOrder(context.Background(), buildOrderBody("BTC-USD", SideBuy, 100, 50000))

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	require.Contains(t, gwErr.Body, "INSUFFICIENT_FUND")
}

func TestSubmitOrderTransportFailureIsGatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // dead address: every dial fails

	g := NewCoinbaseGateway(gatewayConfig(ts.URL), NewHMACSigner("key-id", "shh"))
	_, err := g.SubmitOrder(context.Background(), buildOrderBody("BTC-USD", SideBuy, 100, 50000))

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Zero(t, gwErr.StatusCode)
	require.NotEmpty(t, gwErr.Body)
}

func TestSubmitOrderWithoutCredentialsFailsBeforeNetwork(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer ts.Close()

	g := NewCoinbaseGateway(gatewayConfig(ts.URL), nil)
	_, err := g.SubmitOrder(context.Background(), buildOrderBody("BTC-USD", SideBuy, 100, 50000))
	require.ErrorIs(t, err, ErrNoCredentials)
	require.Zero(t, hits)
}

func TestSubmitOrderFallsBackToClientOrderID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	g := NewCoinbaseGateway(gatewayConfig(ts.URL), NewHMACSigner("key-id", "shh"))
	body := buildOrderBody("BTC-USD", SideBuy, 100, 50000)
	ack, err := g.SubmitOrder(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, body.ClientOrderID, ack.OrderID)
}
