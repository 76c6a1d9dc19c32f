// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// This file defines the Config struct (all the knobs the assistant uses)
// and a helper to populate it from environment variables. The .env file is
// read by loadBotEnv() (see env.go), so you can tune behavior without
// exports.
//
// Typical flow (see main.go):
//   loadBotEnv()
//   cfg := loadConfigFromEnv()

package main

import "strings"

// Config holds all runtime knobs for trading and operations.
type Config struct {
	// Safety & sizing
	PaperTrading bool    // hard switch: live orders are refused while true
	MaxTradeUSD  float64 // per-trade cap applied to every order
	AllowedPairs []string

	// Strategy tunables
	StrategyEnabled  bool    // compiled default; admin override wins at runtime
	ProductID        string  // pair orders are placed on, e.g. "BTC-USD"
	BuyUSD           float64 // quote amount per strategy buy
	LookbackHours    int     // hourly candle window for reference price and ATR
	ATRMultiplier    float64 // scales atrPct into the band percent
	MinBandPct       float64
	MaxBandPct       float64
	CooldownSec      int
	SellEnabled      bool
	MaxSellFraction  float64 // fraction of held base sold per signal
	ExtraSellBandPct float64 // extra margin above the upper bound
	MinSellBase      float64 // dust threshold; below this, sells are skipped

	// Brokerage
	APIBase       string
	KeyName       string // CDP key id for the ES256 JWT scheme
	PrivateKeyPEM string // EC private key for the ES256 JWT scheme
	APIKey        string // key id for the HMAC scheme
	APISecret     string // shared secret for the HMAC scheme

	// Ops
	Port            int
	AdminToken      string
	TickIntervalSec int
	SlackWebhook    string
}

// loadConfigFromEnv reads the process env (already hydrated by loadBotEnv())
// and returns a Config with sane defaults if keys are missing.
func loadConfigFromEnv() Config {
	return Config{
		PaperTrading: getEnvBool("PAPER_TRADING", true),
		MaxTradeUSD:  getEnvFloat("MAX_TRADE_USD", 250.0),
		AllowedPairs: splitPairs(getEnv("ALLOWED_PAIRS", "BTC-USD,ETH-USD")),

		StrategyEnabled:  getEnvBool("STRATEGY_ENABLED", true),
		ProductID:        normalizePair(getEnv("PRODUCT_ID", "BTC-USD")),
		BuyUSD:           getEnvFloat("BUY_USD", 100.0),
		LookbackHours:    getEnvInt("LOOKBACK_HOURS", 24),
		ATRMultiplier:    getEnvFloat("ATR_MULTIPLIER", 1.2),
		MinBandPct:       getEnvFloat("MIN_BAND_PCT", 1.0),
		MaxBandPct:       getEnvFloat("MAX_BAND_PCT", 5.0),
		CooldownSec:      getEnvInt("COOLDOWN_SEC", 3600),
		SellEnabled:      getEnvBool("SELL_ENABLED", false),
		MaxSellFraction:  getEnvFloat("MAX_SELL_FRACTION", 0.5),
		ExtraSellBandPct: getEnvFloat("EXTRA_SELL_BAND_PCT", 0.5),
		MinSellBase:      getEnvFloat("MIN_SELL_BASE", 0.0001),

		APIBase:       strings.TrimRight(getEnv("COINBASE_API_BASE", "https://api.coinbase.com"), "/"),
		KeyName:       getEnv("COINBASE_API_KEY_NAME", ""),
		PrivateKeyPEM: normalizeMultiline(getEnv("COINBASE_API_PRIVATE_KEY", "")),
		APIKey:        getEnv("COINBASE_API_KEY", ""),
		APISecret:     getEnv("COINBASE_API_SECRET", ""),

		Port:            getEnvInt("PORT", 8080),
		AdminToken:      getEnv("ADMIN_TOKEN", ""),
		TickIntervalSec: getEnvInt("TICK_INTERVAL_SEC", 900),
		SlackWebhook:    getEnv("SLACK_WEBHOOK", ""),
	}
}

// PairAllowed reports whether the pair belongs to the configured allow-set.
// Comparison is case-insensitive; both sides are normalized.
func (c *Config) PairAllowed(pair string) bool {
	p := normalizePair(pair)
	for _, a := range c.AllowedPairs {
		if a == p {
			return true
		}
	}
	return false
}

// normalizePair upper-cases and trims a pair symbol like "btc-usd".
func normalizePair(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}

func splitPairs(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if n := normalizePair(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// normalizeMultiline turns literal "\n" sequences (common when a PEM key is
// pasted into a single env line) back into real newlines.
func normalizeMultiline(s string) string {
	if strings.Contains(s, `\n`) {
		return strings.ReplaceAll(s, `\n`, "\n")
	}
	return s
}
