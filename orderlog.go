// FILE: orderlog.go
// Package main – Bounded audit log of recent orders.
//
// The log exists for operational visibility only; balances never derive
// from it. Capacity is fixed at 50, oldest entry evicted first.

package main

import (
	"sync"
	"time"
)

const orderLogCapacity = 50

// TradeMode says whether an order was simulated or sent to the brokerage.
type TradeMode string

const (
	ModePaper TradeMode = "paper"
	ModeLive  TradeMode = "live"
)

// OrderSide is the side of a trade.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderRecord is a normalized view of one executed order. Immutable once
// appended.
type OrderRecord struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Side      OrderSide `json:"side"`
	QuoteUSD  float64   `json:"quote_usd"`
	Mode      TradeMode `json:"mode"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Time      time.Time `json:"time"`
}

// OrderLog is a FIFO ring of the most recent orders.
type OrderLog struct {
	mu      sync.Mutex
	entries []OrderRecord
}

func NewOrderLog() *OrderLog {
	return &OrderLog{entries: make([]OrderRecord, 0, orderLogCapacity)}
}

// Append records one order, evicting the oldest entry at capacity.
func (l *OrderLog) Append(r OrderRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == orderLogCapacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:orderLogCapacity-1]
	}
	l.entries = append(l.entries, r)
}

// Recent returns a copy of the log, oldest first.
func (l *OrderLog) Recent() []OrderRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]OrderRecord, len(l.entries))
	copy(out, l.entries)
	return out
}
