// FILE: gateway.go
// Package main – Authenticated HTTP gateway to the brokerage.
//
// CoinbaseGateway owns the HTTP client and the CredentialSigner and exposes
// a single capability: SubmitOrder. Every outbound request is signed fresh
// (see signer.go); non-2xx answers and transport failures surface as
// GatewayError with the raw response body preserved for operator diagnosis.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const ordersPath = "/api/v3/brokerage/orders"

// OrderBody is the brokerage market-order request. Buys size in quote
// currency, sells in base; exactly one of the two size fields is set.
type OrderBody struct {
	ClientOrderID      string             `json:"client_order_id"`
	ProductID          string             `json:"product_id"`
	Side               string             `json:"side"`
	OrderConfiguration OrderConfiguration `json:"order_configuration"`
}

type OrderConfiguration struct {
	MarketIOC MarketIOC `json:"market_market_ioc"`
}

type MarketIOC struct {
	QuoteSize string `json:"quote_size,omitempty"`
	BaseSize  string `json:"base_size,omitempty"`
}

// OrderAck is the normalized success answer from the brokerage.
type OrderAck struct {
	OrderID string
	Raw     map[string]any
}

// OrderGateway submits orders to the brokerage.
type OrderGateway interface {
	SubmitOrder(ctx context.Context, body OrderBody) (*OrderAck, error)
}

// CoinbaseGateway implements OrderGateway over the Advanced Trade REST API.
type CoinbaseGateway struct {
	apiBase string
	hc      *http.Client
	signer  CredentialSigner
}

// NewCoinbaseGateway wires the gateway. A nil signer (no credentials
// configured) is tolerated here and rejected on first submit, so paper-only
// deployments boot without key material.
func NewCoinbaseGateway(cfg Config, signer CredentialSigner) *CoinbaseGateway {
	return &CoinbaseGateway{
		apiBase: cfg.APIBase,
		hc:      &http.Client{Timeout: 15 * time.Second},
		signer:  signer,
	}
}

func (g *CoinbaseGateway) SubmitOrder(ctx context.Context, body OrderBody) (*OrderAck, error) {
	if g.signer == nil {
		return nil, ErrNoCredentials
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	headers, err := g.signer.Credentials(http.MethodPost, ordersPath, bs)
	if err != nil {
		return nil, fmt.Errorf("order auth: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+ordersPath, bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "rangebot/gateway")
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	res, err := g.hc.Do(req)
	if err != nil {
		// Transport failures carry StatusCode 0 so operators can tell a
		// brokerage problem from a programming error.
		return nil, &GatewayError{StatusCode: 0, Body: err.Error()}
	}
	defer res.Body.Close()
	rb, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, &GatewayError{StatusCode: res.StatusCode, Body: string(rb)}
	}

	// Parse flexible response shapes: bare order_id or wrapped like
	// {"success_response":{"order_id":"..."}, ...}
	var generic map[string]any
	_ = json.Unmarshal(rb, &generic)
	orderID := firstString(generic["order_id"], nested(generic, "success_response", "order_id"))
	if orderID == "" {
		orderID = body.ClientOrderID
	}
	return &OrderAck{OrderID: orderID, Raw: generic}, nil
}

// nested walks a decoded JSON object along keys and returns the leaf value.
func nested(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}
