// FILE: main.go
// Package main – Program entrypoint, wiring, and the periodic tick loop.
//
// Boot sequence:
//   1) loadBotEnv()               – read .env (no shell exports required)
//   2) cfg := loadConfigFromEnv() – build runtime Config
//   3) wire feed/signer/gateway/ledger/executor/engine
//   4) start the admin/metrics HTTP server on cfg.Port
//   5) drive StrategyEngine.Tick on a fixed period until SIGINT/SIGTERM
//
// Flags:
//   -interval <sec>   Tick period in seconds (default TICK_INTERVAL_SEC, 900)
//
// Example:
//   go run . -interval 60

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// ---- Flags ----
	var intervalSec int
	flag.IntVar(&intervalSec, "interval", 0, "Tick period in seconds (0 = TICK_INTERVAL_SEC)")
	flag.Parse()

	// ---- Environment & Config ----
	loadBotEnv()
	cfg := loadConfigFromEnv()
	if intervalSec <= 0 {
		intervalSec = cfg.TickIntervalSec
	}

	// Safety banner for operators
	log.Printf("[SAFETY] PAPER_TRADING=%v | MAX_TRADE_USD=%.2f | ALLOWED_PAIRS=%v | BUY_USD=%.2f | COOLDOWN_SEC=%d | SELL_ENABLED=%v",
		cfg.PaperTrading, cfg.MaxTradeUSD, cfg.AllowedPairs, cfg.BuyUSD, cfg.CooldownSec, cfg.SellEnabled)

	// ---- Wiring ----
	signer, err := signerFromConfig(cfg)
	if err != nil {
		// Paper-only deployments run without credentials; live submits will
		// be refused with a configuration error.
		log.Printf("[BOOT] no brokerage credentials: %v", err)
	}
	feed := NewCoinbaseFeed(cfg)
	gateway := NewCoinbaseGateway(cfg, signer)
	ledger := NewLedger()
	olog := NewOrderLog()
	notifier := NewSlackNotifier(cfg.SlackWebhook)
	exec := NewOrderExecutor(cfg, feed, ledger, gateway, olog, notifier)
	engine := NewStrategyEngine(cfg, feed, exec, ledger)
	server := NewServer(cfg, exec, engine, ledger, olog)

	// ---- HTTP admin/metrics ----
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Printf("serving admin API on :%d (metrics on /metrics)", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// ---- Periodic tick loop ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("Starting strategy loop: product=%s interval=%ds enabled=%v",
		cfg.ProductID, intervalSec, engine.Enabled())

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("shutdown")
			shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			c()
			return
		case <-ticker.C:
			engine.Tick(ctx, "timer")
		}
	}
}
