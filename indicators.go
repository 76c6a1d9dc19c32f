// FILE: indicators.go
// Package main – Technical indicators for the trading assistant.
//
// This file implements the lightweight TA helpers the strategy consumes:
//   • CloseAverage(c, n) – arithmetic mean of the last n closes
//   • TrueRanges(c)      – per-period true range series
//   • ATR(c, n)          – mean true range over the last n periods
//
// Notes
//   - All functions accept a slice of Candle (defined in feed.go).
//   - Insufficient lookbacks return 0; callers treat 0 as "no signal".
//   - Keep these fast and allocation-light; they run on every tick.
package main

import "math"

// CloseAverage returns the mean of the last n closes, or 0 when fewer than
// n candles are available.
func CloseAverage(c []Candle, n int) float64 {
	if n <= 0 || len(c) < n {
		return 0
	}
	var sum float64
	for i := len(c) - n; i < len(c); i++ {
		sum += c[i].Close
	}
	return sum / float64(n)
}

// TrueRanges returns the true-range series aligned to c[1:]:
// max(high-low, |high-prevClose|, |low-prevClose|) per period.
func TrueRanges(c []Candle) []float64 {
	if len(c) < 2 {
		return nil
	}
	out := make([]float64, 0, len(c)-1)
	for i := 1; i < len(c); i++ {
		hl := c[i].High - c[i].Low
		hc := math.Abs(c[i].High - c[i-1].Close)
		lc := math.Abs(c[i].Low - c[i-1].Close)
		out = append(out, math.Max(hl, math.Max(hc, lc)))
	}
	return out
}

// ATR returns the mean true range over the last n periods, or 0 when the
// series is too short. n+1 candles are required for n true ranges.
func ATR(c []Candle, n int) float64 {
	tr := TrueRanges(c)
	if n <= 0 || len(tr) < n {
		return 0
	}
	var sum float64
	for i := len(tr) - n; i < len(tr); i++ {
		sum += tr[i]
	}
	return sum / float64(n)
}
