// FILE: feed.go
// Package main – Price feed over the Coinbase public market-data endpoints.
//
// PriceSource is the capability the strategy and executor consume:
//   • GetTicker(ctx, pair)               – current price/bid/ask snapshot
//   • HistoricalAverage(ctx, pair, hrs)  – mean hourly close over the window
//   • AverageTrueRange(ctx, pair, hrs)   – ATR over the same window
//
// Fallback policy: when the candle window cannot be fetched, the average
// degrades to the current price and the ATR to 0 rather than failing the
// caller's tick.
//
// Pair conventions: some pairs are ordered on a stablecoin quote but priced
// via the nearest liquid proxy. pricingPair handles that mapping and is kept
// separate from the pair used for order placement (see config.normalizePair).

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Candle is the normalized OHLCV row used everywhere.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Ticker is the current market snapshot; Price is authoritative for sizing.
type Ticker struct {
	Price float64
	Bid   float64
	Ask   float64
}

// PriceSource supplies current and historical prices for a trading pair.
type PriceSource interface {
	GetTicker(ctx context.Context, pair string) (Ticker, error)
	HistoricalAverage(ctx context.Context, pair string, hours int) (float64, error)
	AverageTrueRange(ctx context.Context, pair string, hours int) float64
}

// pricingPair maps an order pair to the pair used for pricing. Stablecoin
// quotes trade thinly on some venues; their candles come from the USD book.
func pricingPair(pair string) string {
	p := normalizePair(pair)
	for _, q := range []string{"USDC", "USDT"} {
		if strings.HasSuffix(p, "-"+q) {
			return strings.TrimSuffix(p, "-"+q) + "-USD"
		}
	}
	return p
}

// CoinbaseFeed implements PriceSource over the Advanced Trade REST API.
type CoinbaseFeed struct {
	apiBase string
	hc      *http.Client
}

func NewCoinbaseFeed(cfg Config) *CoinbaseFeed {
	return &CoinbaseFeed{
		apiBase: cfg.APIBase,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

// ---------- Ticker ----------

func (f *CoinbaseFeed) GetTicker(ctx context.Context, pair string) (Ticker, error) {
	u := fmt.Sprintf("%s/api/v3/brokerage/products/%s", f.apiBase, url.PathEscape(normalizePair(pair)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Ticker{}, err
	}
	req.Header.Set("User-Agent", "rangebot/feed")

	res, err := f.hc.Do(req)
	if err != nil {
		return Ticker{}, fmt.Errorf("ticker %s: %w", pair, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return Ticker{}, fmt.Errorf("ticker %s %d: %s", pair, res.StatusCode, string(b))
	}
	var j map[string]any
	if err := json.NewDecoder(res.Body).Decode(&j); err != nil {
		return Ticker{}, fmt.Errorf("ticker %s: %w", pair, err)
	}
	t := Ticker{
		Price: parseFloat(firstString(j["price"], j["mid_market_price"])),
		Bid:   parseFloat(firstString(j["best_bid"])),
		Ask:   parseFloat(firstString(j["best_ask"])),
	}
	if t.Price <= 0 {
		// Some payloads omit price; fall back to the book midpoint.
		if t.Bid > 0 && t.Ask > 0 {
			t.Price = (t.Bid + t.Ask) / 2
		}
	}
	if t.Price <= 0 {
		return Ticker{}, errors.New("no usable price in product payload")
	}
	return t, nil
}

// ---------- Historical average & ATR ----------

// HistoricalAverage returns the mean hourly close over the lookback window.
// On candle failure it degrades to the current price (logged, not fatal).
func (f *CoinbaseFeed) HistoricalAverage(ctx context.Context, pair string, hours int) (float64, error) {
	cs, err := f.hourlyCandles(ctx, pair, hours)
	if err == nil && len(cs) >= hours {
		return CloseAverage(cs, hours), nil
	}
	if err != nil {
		log.Printf("[FEED] candles %s unavailable (%v); using current price", pair, err)
	}
	t, terr := f.GetTicker(ctx, pair)
	if terr != nil {
		return 0, fmt.Errorf("historical average %s: %w", pair, terr)
	}
	return t.Price, nil
}

// AverageTrueRange returns the ATR over the lookback window, or 0 when the
// candle window is unavailable or too short. It never fails the caller.
func (f *CoinbaseFeed) AverageTrueRange(ctx context.Context, pair string, hours int) float64 {
	cs, err := f.hourlyCandles(ctx, pair, hours+1)
	if err != nil {
		log.Printf("[FEED] ATR %s unavailable (%v); using 0", pair, err)
		return 0
	}
	return ATR(cs, hours)
}

// hourlyCandles fetches `limit` hourly candles ending now, oldest first.
func (f *CoinbaseFeed) hourlyCandles(ctx context.Context, pair string, limit int) ([]Candle, error) {
	if limit <= 0 {
		limit = 24
	}
	end := time.Now().UTC()
	start := end.Add(-time.Duration(limit+2) * time.Hour)

	qs := url.Values{
		"granularity": []string{"ONE_HOUR"},
		"start":       []string{strconv.FormatInt(start.Unix(), 10)},
		"end":         []string{strconv.FormatInt(end.Unix(), 10)},
		"limit":       []string{strconv.Itoa(limit)},
	}
	u := fmt.Sprintf("%s/api/v3/brokerage/products/%s/candles?%s",
		f.apiBase, url.PathEscape(normalizePair(pair)), qs.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "rangebot/feed")

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("candles %d: %s", res.StatusCode, string(b))
	}

	var raw any
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}
	rows := normalizeCandleRows(raw)

	out := make([]Candle, 0, len(rows))
	for _, r := range rows {
		ts, _ := strconv.ParseInt(strings.TrimSpace(r.Start), 10, 64)
		if ts <= 0 {
			continue
		}
		o, _ := strconv.ParseFloat(r.Open, 64)
		h, _ := strconv.ParseFloat(r.High, 64)
		l, _ := strconv.ParseFloat(r.Low, 64)
		c, _ := strconv.ParseFloat(r.Close, 64)
		v, _ := strconv.ParseFloat(r.Volume, 64)
		out = append(out, Candle{
			Time: time.Unix(ts, 0).UTC(),
			Open: o, High: h, Low: l, Close: c, Volume: v,
		})
	}
	// ensure ascending
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Time.Before(out[j-1].Time); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ---------- payload normalization ----------

type candleRow struct {
	Start  string `json:"start"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// normalizeCandleRows accepts both bare arrays and {"candles":[...]} shapes.
func normalizeCandleRows(raw any) []candleRow {
	switch v := raw.(type) {
	case []any:
		return toCandleRows(v)
	case map[string]any:
		if c, ok := v["candles"]; ok {
			if arr, ok := c.([]any); ok {
				return toCandleRows(arr)
			}
		}
	}
	return nil
}

func toCandleRows(arr []any) []candleRow {
	out := make([]candleRow, 0, len(arr))
	for _, it := range arr {
		switch m := it.(type) {
		case map[string]any:
			out = append(out, candleRow{
				Start:  asStr(m["start"]),
				Open:   asStr(m["open"]),
				High:   asStr(m["high"]),
				Low:    asStr(m["low"]),
				Close:  asStr(m["close"]),
				Volume: asStr(m["volume"]),
			})
		case []any:
			if len(m) >= 6 {
				out = append(out, candleRow{
					Start:  asStr(m[0]),
					Open:   asStr(m[1]),
					High:   asStr(m[2]),
					Low:    asStr(m[3]),
					Close:  asStr(m[4]),
					Volume: asStr(m[5]),
				})
			}
		}
	}
	return out
}

// ---------- small utils ----------

func asStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func firstString(vals ...any) string {
	for _, v := range vals {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case fmt.Stringer:
			if s := strings.TrimSpace(t.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

func parseFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}
