// FILE: executor.go
// Package main – Order execution with risk gating.
//
// OrderExecutor is the single entry point for placing orders, whether they
// come from the strategy tick or from the admin API. Per request it:
//   1) validates pair/amount against the risk config (no network before
//      this passes),
//   2) dispatches to the simulated ledger (paper) or the brokerage gateway
//      (live) — live is categorically refused while PAPER_TRADING is on,
//   3) appends exactly one entry to the bounded order log.
// Paper fills mutate the ledger; live calls never touch it.

package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// OrderPlacer is the capability the strategy and the admin API consume.
type OrderPlacer interface {
	Execute(ctx context.Context, pair string, side OrderSide, quoteUSD float64, mode TradeMode) (*OrderRecord, error)
}

type OrderExecutor struct {
	cfg     Config
	feed    PriceSource
	ledger  *Ledger
	gateway OrderGateway
	olog    *OrderLog
	notify  *SlackNotifier
}

func NewOrderExecutor(cfg Config, feed PriceSource, ledger *Ledger, gateway OrderGateway, olog *OrderLog, notify *SlackNotifier) *OrderExecutor {
	return &OrderExecutor{
		cfg:     cfg,
		feed:    feed,
		ledger:  ledger,
		gateway: gateway,
		olog:    olog,
		notify:  notify,
	}
}

// Execute places one order. quoteUSD is the quote-denominated size for both
// sides; sells convert it to a base quantity at the current price.
func (x *OrderExecutor) Execute(ctx context.Context, pair string, side OrderSide, quoteUSD float64, mode TradeMode) (*OrderRecord, error) {
	pair = normalizePair(pair)

	// Hard safety switch: checked before anything else so a live order can
	// never slip past on a validation quirk.
	if mode == ModeLive && x.cfg.PaperTrading {
		return nil, ErrLiveBlocked
	}

	// ---------- Risk checks (before any network call) ----------
	if !x.cfg.PairAllowed(pair) {
		return nil, riskErrf("pair %s not in allow-list", pair)
	}
	if quoteUSD <= 0 {
		return nil, riskErrf("amount must be > 0, got %.2f", quoteUSD)
	}
	if quoteUSD > x.cfg.MaxTradeUSD {
		return nil, riskErrf("amount %.2f exceeds per-trade cap %.2f", quoteUSD, x.cfg.MaxTradeUSD)
	}

	tkr, err := x.feed.GetTicker(ctx, pricingPair(pair))
	if err != nil {
		return nil, fmt.Errorf("price for %s: %w", pair, err)
	}

	var rec *OrderRecord
	switch mode {
	case ModePaper:
		rec, err = x.executePaper(pair, side, quoteUSD, tkr.Price)
	case ModeLive:
		rec, err = x.executeLive(ctx, pair, side, quoteUSD, tkr.Price)
	default:
		return nil, riskErrf("unknown mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	x.olog.Append(*rec)
	IncOrder(string(rec.Mode), string(rec.Side))
	SetLedgerMetrics(x.ledger.Balances())
	x.notify.OrderExecuted(*rec)
	log.Printf("[ORDER] %s %s %s %.2f USD qty=%.6f price=%.2f id=%s",
		rec.Mode, rec.Side, rec.ProductID, rec.QuoteUSD, rec.Quantity, rec.Price, rec.ID)
	return rec, nil
}

// executePaper fills against the simulated ledger at the current price.
func (x *OrderExecutor) executePaper(pair string, side OrderSide, quoteUSD, price float64) (*OrderRecord, error) {
	var qty float64
	switch side {
	case SideBuy:
		qty = x.ledger.Buy(quoteUSD, price)
	case SideSell:
		target := quoteUSD / price
		sold, proceeds := x.ledger.Sell(target, price)
		if sold <= 0 {
			return nil, fmt.Errorf("paper sell %s: no base balance held", pair)
		}
		qty, quoteUSD = sold, proceeds
	default:
		return nil, riskErrf("unknown side %q", side)
	}
	return &OrderRecord{
		ID:        uuid.New().String(),
		ProductID: pair,
		Side:      side,
		QuoteUSD:  quoteUSD,
		Mode:      ModePaper,
		Price:     price,
		Quantity:  qty,
		Time:      time.Now().UTC(),
	}, nil
}

// executeLive submits a market order through the gateway.
func (x *OrderExecutor) executeLive(ctx context.Context, pair string, side OrderSide, quoteUSD, price float64) (*OrderRecord, error) {
	body := buildOrderBody(pair, side, quoteUSD, price)
	ack, err := x.gateway.SubmitOrder(ctx, body)
	if err != nil {
		return nil, err
	}
	qty := roundBase(quoteUSD / price)
	return &OrderRecord{
		ID:        ack.OrderID,
		ProductID: pair,
		Side:      side,
		QuoteUSD:  quoteUSD,
		Mode:      ModeLive,
		Price:     price,
		Quantity:  qty,
		Time:      time.Now().UTC(),
	}, nil
}

// buildOrderBody constructs the brokerage market-order body: quote-sized
// for buys, base-sized (derived from the current price) for sells.
func buildOrderBody(pair string, side OrderSide, quoteUSD, price float64) OrderBody {
	cfg := OrderConfiguration{}
	if side == SideBuy {
		cfg.MarketIOC.QuoteSize = fmt.Sprintf("%.2f", quoteUSD)
	} else {
		cfg.MarketIOC.BaseSize = strconv.FormatFloat(roundBase(quoteUSD/price), 'f', baseQtyDecimals, 64)
	}
	return OrderBody{
		ClientOrderID:      uuid.New().String(),
		ProductID:          pair,
		Side:               string(side),
		OrderConfiguration: cfg,
	}
}
