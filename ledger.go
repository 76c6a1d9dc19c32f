// FILE: ledger.go
// Package main – Simulated balances for paper trading.
//
// The ledger is the process-wide pair of base/quote balances that paper
// fills mutate. It starts at zero on boot and is never persisted; restart
// resets it. All mutations go through the mutex so a strategy tick and a
// concurrent manual order cannot interleave a read-modify-write.
//
// Sizing rules:
//   • buy  – base += round(quoteUSD/price, 6 dp), quote -= quoteUSD
//   • sell – qty = min(target, held); base -= qty, quote += qty*price
// Sells are best-effort: a target above the held balance silently clamps.

package main

import (
	"math"
	"sync"
)

// baseQtyDecimals matches the brokerage lot convention for base assets.
const baseQtyDecimals = 6

// roundBase rounds a base-asset quantity to the fixed lot precision.
func roundBase(q float64) float64 {
	p := math.Pow10(baseQtyDecimals)
	return math.Round(q*p) / p
}

// Ledger holds the simulated base/quote balances.
type Ledger struct {
	mu    sync.Mutex
	base  float64
	quote float64
}

func NewLedger() *Ledger { return &Ledger{} }

// Buy converts quoteUSD at price into base units and returns the quantity
// credited.
func (l *Ledger) Buy(quoteUSD, price float64) float64 {
	qty := roundBase(quoteUSD / price)
	l.mu.Lock()
	l.base += qty
	l.quote -= quoteUSD
	l.mu.Unlock()
	return qty
}

// Sell debits up to targetQty base units at price and returns the executed
// quantity and the quote proceeds. The quantity never exceeds the held
// balance.
func (l *Ledger) Sell(targetQty, price float64) (qty, proceeds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	qty = roundBase(math.Min(targetQty, l.base))
	if qty <= 0 {
		return 0, 0
	}
	proceeds = qty * price
	l.base -= qty
	l.quote += proceeds
	return qty, proceeds
}

// Balances returns a consistent snapshot of (base, quote).
func (l *Ledger) Balances() (base, quote float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.base, l.quote
}
