// FILE: strategy.go
// Package main – Range-accumulation decision loop.
//
// The engine converts a price history into at most one order per tick:
//   1) resolve the effective enabled flag (admin override beats the env
//      default),
//   2) fetch the reference price (mean hourly close over the lookback) and
//      the ATR for the pricing pair,
//   3) derive the volatility-adjusted band: bandPct = clamp(atrPct ×
//      multiplier, min, max); bounds = reference × (1 ∓ bandPct/100),
//   4) BUY when price ≤ lower bound, gated by the cooldown since the last
//      buy; a tick that reaches the buy rule never evaluates the sell rule,
//   5) SELL a fraction of the held base when price ≥ upper bound plus the
//      extra sell margin, the held balance clears the dust threshold, and
//      selling is enabled.
//
// Tick failures are logged and swallowed; the periodic timer must survive
// any single bad tick. Orders go out in live mode unless PAPER_TRADING is
// on, in which case they fill against the simulated ledger.

package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// Band is the symmetric percentage envelope around the reference price.
type Band struct {
	Pct   float64
	Lower float64
	Upper float64
}

// computeBand derives the clamped volatility band. The min clamp keeps the
// band from degenerating to zero width in calm regimes; the max clamp keeps
// it from running away in volatile ones.
func computeBand(reference, atr, multiplier, minPct, maxPct float64) Band {
	atrPct := 0.0
	if reference > 0 {
		atrPct = atr / reference * 100
	}
	pct := atrPct * multiplier
	if pct < minPct {
		pct = minPct
	}
	if pct > maxPct {
		pct = maxPct
	}
	return Band{
		Pct:   pct,
		Lower: reference * (1 - pct/100),
		Upper: reference * (1 + pct/100),
	}
}

// StrategyEngine drives the periodic buy/sell decision.
type StrategyEngine struct {
	cfg    Config
	feed   PriceSource
	exec   OrderPlacer
	ledger *Ledger

	mu       sync.Mutex
	lastBuy  time.Time
	override *bool // nil = env default, else forced on/off

	now func() time.Time
}

func NewStrategyEngine(cfg Config, feed PriceSource, exec OrderPlacer, ledger *Ledger) *StrategyEngine {
	return &StrategyEngine{
		cfg:    cfg,
		feed:   feed,
		exec:   exec,
		ledger: ledger,
		now:    time.Now,
	}
}

// Enabled resolves the effective strategy flag: override if set, else the
// compiled default.
func (s *StrategyEngine) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override != nil {
		return *s.override
	}
	return s.cfg.StrategyEnabled
}

// SetOverride force-sets the enabled flag; nil restores the env default.
// The override lasts until process restart.
func (s *StrategyEngine) SetOverride(v *bool) {
	s.mu.Lock()
	s.override = v
	s.mu.Unlock()
}

// OverrideState reports the toggle as "default", "on" or "off".
func (s *StrategyEngine) OverrideState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.override == nil:
		return "default"
	case *s.override:
		return "on"
	default:
		return "off"
	}
}

// Tick runs one decision cycle. Safe to call repeatedly; produces at most
// one order. Failures are logged and returned: the timer loop discards the
// return and retries on the next period, while the admin tick endpoint
// reports it to the caller.
func (s *StrategyEngine) Tick(ctx context.Context, trigger string) (string, error) {
	outcome, err := s.evaluate(ctx)
	if err != nil {
		IncTickError()
		log.Printf("[TICK] trigger=%s error: %v", trigger, err)
		return "", err
	}
	IncDecision(outcome)
	log.Printf("[TICK] trigger=%s outcome=%s", trigger, outcome)
	return outcome, nil
}

func (s *StrategyEngine) evaluate(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "disabled", nil
	}

	pricing := pricingPair(s.cfg.ProductID)
	tkr, err := s.feed.GetTicker(ctx, pricing)
	if err != nil {
		return "", err
	}
	reference, err := s.feed.HistoricalAverage(ctx, pricing, s.cfg.LookbackHours)
	if err != nil {
		return "", err
	}
	if math.IsNaN(reference) || math.IsInf(reference, 0) || reference <= 0 {
		return "", fmt.Errorf("unusable reference price %v for %s", reference, pricing)
	}
	atr := s.feed.AverageTrueRange(ctx, pricing, s.cfg.LookbackHours)

	band := computeBand(reference, atr, s.cfg.ATRMultiplier, s.cfg.MinBandPct, s.cfg.MaxBandPct)
	SetBandMetric(band.Pct)
	log.Printf("[BAND] ref=%.2f atr=%.2f pct=%.2f lower=%.2f upper=%.2f price=%.2f",
		reference, atr, band.Pct, band.Lower, band.Upper, tkr.Price)

	mode := ModeLive
	if s.cfg.PaperTrading {
		mode = ModePaper
	}

	// ---------- BUY rule ----------
	// Buy and sell are mutually exclusive per tick: once the price is at or
	// below the lower bound, the sell rule is never evaluated.
	if tkr.Price <= band.Lower {
		now := s.now()
		cooldown := time.Duration(s.cfg.CooldownSec) * time.Second

		// Claim the cooldown slot in the same critical section as the check:
		// a concurrent tick arriving while this order is in flight sees the
		// claim and skips. The claim is rolled back if the order fails.
		s.mu.Lock()
		remaining := cooldown - now.Sub(s.lastBuy)
		if !s.lastBuy.IsZero() && remaining > 0 {
			s.mu.Unlock()
			log.Printf("[TICK] buy signal suppressed, cooldown %s remaining", remaining.Round(time.Second))
			return "cooldown", nil
		}
		prevBuy := s.lastBuy
		s.lastBuy = now
		s.mu.Unlock()

		if _, err := s.exec.Execute(ctx, s.cfg.ProductID, SideBuy, s.cfg.BuyUSD, mode); err != nil {
			s.mu.Lock()
			s.lastBuy = prevBuy
			s.mu.Unlock()
			return "", err
		}
		return "buy", nil
	}

	// ---------- SELL rule ----------
	if s.cfg.SellEnabled {
		held, _ := s.ledger.Balances()
		sellTrigger := band.Upper * (1 + s.cfg.ExtraSellBandPct/100)
		if held > s.cfg.MinSellBase && tkr.Price >= sellTrigger {
			quoteAmount := held * s.cfg.MaxSellFraction * tkr.Price
			if quoteAmount <= 0 {
				return "hold", nil
			}
			if _, err := s.exec.Execute(ctx, s.cfg.ProductID, SideSell, quoteAmount, mode); err != nil {
				return "", err
			}
			return "sell", nil
		}
	}

	return "hold", nil
}
