// FILE: notify.go
// Package main – Optional Slack pings for executed orders.
//
// When SLACK_WEBHOOK is set, every executed order posts a one-line message
// to the webhook. Delivery is fire-and-forget: failures are logged and
// never affect trading.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// SlackNotifier posts order summaries to a webhook. A nil notifier (or an
// empty webhook) is a no-op.
type SlackNotifier struct {
	webhook string
	hc      *http.Client
}

func NewSlackNotifier(webhook string) *SlackNotifier {
	if webhook == "" {
		return nil
	}
	return &SlackNotifier{
		webhook: webhook,
		hc:      &http.Client{Timeout: 5 * time.Second},
	}
}

// OrderExecuted pings the webhook in the background.
func (n *SlackNotifier) OrderExecuted(rec OrderRecord) {
	if n == nil {
		return
	}
	go func() {
		text := fmt.Sprintf("%s %s %s %.2f USD @ %.2f (qty %.6f)",
			rec.Mode, rec.Side, rec.ProductID, rec.QuoteUSD, rec.Price, rec.Quantity)
		body, _ := json.Marshal(map[string]string{"text": text})
		res, err := n.hc.Post(n.webhook, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("[NOTIFY] slack: %v", err)
			return
		}
		_ = res.Body.Close()
	}()
}
