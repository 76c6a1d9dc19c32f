package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFeed returns canned values; errors when price <= 0.
type fakeFeed struct {
	price float64
	avg   float64
	atr   float64
}

func (f *fakeFeed) GetTicker(ctx context.Context, pair string) (Ticker, error) {
	if f.price <= 0 {
		return Ticker{}, errors.New("feed down")
	}
	return Ticker{Price: f.price, Bid: f.price - 1, Ask: f.price + 1}, nil
}

func (f *fakeFeed) HistoricalAverage(ctx context.Context, pair string, hours int) (float64, error) {
	return f.avg, nil
}

func (f *fakeFeed) AverageTrueRange(ctx context.Context, pair string, hours int) float64 {
	return f.atr
}

// fakeGateway records submitted bodies and answers with a fixed ack.
type fakeGateway struct {
	bodies []OrderBody
	err    error
}

func (g *fakeGateway) SubmitOrder(ctx context.Context, body OrderBody) (*OrderAck, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.bodies = append(g.bodies, body)
	return &OrderAck{OrderID: "ord-1"}, nil
}

func testConfig() Config {
	return Config{
		PaperTrading: true,
		MaxTradeUSD:  250,
		AllowedPairs: []string{"BTC-USD", "ETH-USD"},
		ProductID:    "BTC-USD",
	}
}

func newTestExecutor(cfg Config, feed PriceSource, gw OrderGateway) (*OrderExecutor, *Ledger, *OrderLog) {
	ledger := NewLedger()
	olog := NewOrderLog()
	return NewOrderExecutor(cfg, feed, ledger, gw, olog, nil), ledger, olog
}

func TestExecuteRejectsDisallowedPair(t *testing.T) {
	x, _, olog := newTestExecutor(testConfig(), &fakeFeed{price: 50000}, &fakeGateway{})

	_, err := x.Execute(context.Background(), "DOGE-USD", SideBuy, 100, ModePaper)
	var riskErr *RiskError
	require.ErrorAs(t, err, &riskErr)
	require.Empty(t, olog.Recent())
}

func TestExecuteRejectsBadAmounts(t *testing.T) {
	x, _, _ := newTestExecutor(testConfig(), &fakeFeed{price: 50000}, &fakeGateway{})

	for _, amount := range []float64{0, -5, 250.01} {
		_, err := x.Execute(context.Background(), "BTC-USD", SideBuy, amount, ModePaper)
		var riskErr *RiskError
		require.ErrorAs(t, err, &riskErr, "amount %v", amount)
	}
}

func TestExecuteLiveBlockedWhilePaperTrading(t *testing.T) {
	gw := &fakeGateway{}
	x, ledger, olog := newTestExecutor(testConfig(), &fakeFeed{price: 50000}, gw)

	_, err := x.Execute(context.Background(), "BTC-USD", SideBuy, 100, ModeLive)
	require.ErrorIs(t, err, ErrLiveBlocked)
	require.Empty(t, gw.bodies)
	require.Empty(t, olog.Recent())
	base, quote := ledger.Balances()
	require.Zero(t, base)
	require.Zero(t, quote)
}

func TestExecutePaperBuyMutatesLedgerAndLog(t *testing.T) {
	x, ledger, olog := newTestExecutor(testConfig(), &fakeFeed{price: 50000}, &fakeGateway{})

	rec, err := x.Execute(context.Background(), "btc-usd", SideBuy, 100, ModePaper)
	require.NoError(t, err)
	require.Equal(t, "BTC-USD", rec.ProductID)
	require.Equal(t, ModePaper, rec.Mode)
	require.Equal(t, 0.002, rec.Quantity)
	require.Equal(t, 50000.0, rec.Price)

	base, quote := ledger.Balances()
	require.Equal(t, 0.002, base)
	require.Equal(t, -100.0, quote)

	require.Len(t, olog.Recent(), 1)
	require.Equal(t, rec.ID, olog.Recent()[0].ID)
}

func TestExecutePaperSellCapsAtHeld(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTradeUSD = 5000
	x, ledger, _ := newTestExecutor(cfg, &fakeFeed{price: 50000}, &fakeGateway{})

	_, err := x.Execute(context.Background(), "BTC-USD", SideBuy, 500, ModePaper)
	require.NoError(t, err) // held base = 0.01

	// Target 0.05 BTC (2500 USD) exceeds the held 0.01; executes at 0.01.
	rec, err := x.Execute(context.Background(), "BTC-USD", SideSell, 2500, ModePaper)
	require.NoError(t, err)
	require.Equal(t, 0.01, rec.Quantity)
	require.Equal(t, 500.0, rec.QuoteUSD)

	base, _ := ledger.Balances()
	require.Zero(t, base)
}

func TestExecutePaperSellWithoutBalanceFails(t *testing.T) {
	x, _, olog := newTestExecutor(testConfig(), &fakeFeed{price: 50000}, &fakeGateway{})

	_, err := x.Execute(context.Background(), "BTC-USD", SideSell, 100, ModePaper)
	require.Error(t, err)
	require.Empty(t, olog.Recent())
}

func TestExecuteLiveSubmitsThroughGatewayOnly(t *testing.T) {
	cfg := testConfig()
	cfg.PaperTrading = false
	gw := &fakeGateway{}
	x, ledger, olog := newTestExecutor(cfg, &fakeFeed{price: 50000}, gw)

	rec, err := x.Execute(context.Background(), "BTC-USD", SideBuy, 100, ModeLive)
	require.NoError(t, err)
	require.Equal(t, "ord-1", rec.ID)
	require.Equal(t, ModeLive, rec.Mode)

	require.Len(t, gw.bodies, 1)
	body := gw.bodies[0]
	require.Equal(t, "BTC-USD", body.ProductID)
	require.Equal(t, "BUY", body.Side)
	require.Equal(t, "100.00", body.OrderConfiguration.MarketIOC.QuoteSize)
	require.Empty(t, body.OrderConfiguration.MarketIOC.BaseSize)

	// Live calls never touch the simulated ledger.
	base, quote := ledger.Balances()
	require.Zero(t, base)
	require.Zero(t, quote)
	require.Len(t, olog.Recent(), 1)
}

func TestOrderBodyRoundTrip(t *testing.T) {
	buy := buildOrderBody("BTC-USD", SideBuy, 100, 50000)
	bs, err := json.Marshal(buy)
	require.NoError(t, err)

	var back OrderBody
	require.NoError(t, json.Unmarshal(bs, &back))
	require.Equal(t, buy.ProductID, back.ProductID)
	require.Equal(t, buy.Side, back.Side)
	require.Equal(t, "100.00", back.OrderConfiguration.MarketIOC.QuoteSize)

	sell := buildOrderBody("BTC-USD", SideSell, 100, 50000)
	bs, err = json.Marshal(sell)
	require.NoError(t, err)
	back = OrderBody{}
	require.NoError(t, json.Unmarshal(bs, &back))
	require.Equal(t, "0.002000", back.OrderConfiguration.MarketIOC.BaseSize)
	require.Empty(t, back.OrderConfiguration.MarketIOC.QuoteSize)
}
