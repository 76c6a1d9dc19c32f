// FILE: errors.go
// Package main – Error taxonomy shared across the engine.
//
// Four failure families exist:
//   • configuration errors  – missing credentials/config; fatal to the one
//     operation, never to the process (ErrNoCredentials)
//   • risk violations       – rejected before any network call (RiskError)
//   • upstream failures     – price feed / brokerage transport errors,
//     surfaced as wrapped errors by the callers
//   • gateway rejections    – brokerage said no; the response body is kept
//     verbatim for operator diagnosis (GatewayError)

package main

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials is returned when an authenticated call is attempted
	// without any signing material configured.
	ErrNoCredentials = errors.New("brokerage credentials not configured")

	// ErrLiveBlocked is returned for live orders while PAPER_TRADING is on.
	ErrLiveBlocked = errors.New("live orders blocked: paper trading is active")
)

// RiskError is a pre-trade rejection: disallowed pair, non-positive amount,
// or an amount above the per-trade cap.
type RiskError struct {
	Reason string
}

func (e *RiskError) Error() string { return "risk check failed: " + e.Reason }

func riskErrf(format string, args ...any) *RiskError {
	return &RiskError{Reason: fmt.Sprintf(format, args...)}
}

// GatewayError is a non-2xx answer from the brokerage, or a transport
// failure reaching it (StatusCode 0).
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return "gateway transport: " + e.Body
	}
	return fmt.Sprintf("gateway %d: %s", e.StatusCode, e.Body)
}
