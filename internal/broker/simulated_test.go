package broker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/market"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

var t0 = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

func frictionlessRules(t *testing.T) *market.Rules {
	t.Helper()
	cfg := market.DefaultConfig()
	cfg.Fees = market.FeeRates{}
	rules, err := market.NewRules(cfg)
	require.NoError(t, err)
	return rules
}

func newVenue(t *testing.T, slippageBps int64) *Simulated {
	t.Helper()
	return NewSimulated(frictionlessRules(t), Config{
		InitialCash: decimal.NewFromInt(100000),
		SlippageBps: slippageBps,
	})
}

func marketBuy(symbol string, qty int64) domain.OrderIntent {
	return domain.OrderIntent{Symbol: symbol, Side: domain.SideBuy, Quantity: qty, Type: domain.OrderTypeMarket}
}

func marketSell(symbol string, qty int64) domain.OrderIntent {
	return domain.OrderIntent{Symbol: symbol, Side: domain.SideSell, Quantity: qty, Type: domain.OrderTypeMarket}
}

func TestMarketBuyFillsAtMark(t *testing.T) {
	venue := newVenue(t, 0)
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	order, err := venue.PlaceOrder(t.Context(), marketBuy("AAA", 100))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)
	assert.True(t, order.AvgFillPrice.Equal(decimal.NewFromInt(100)))

	positions, err := venue.Positions(t.Context())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(100), positions[0].Quantity)

	state, err := venue.AccountState(t.Context())
	require.NoError(t, err)
	assert.True(t, state.Cash.Equal(decimal.NewFromInt(90000)), "cash %s", state.Cash)

	fills := venue.Fills()
	require.Len(t, fills, 1)
	assert.Equal(t, domain.SideBuy, fills[0].Side)
}

func TestMarketOrderWithoutPriceRejected(t *testing.T) {
	venue := newVenue(t, 0)
	_, err := venue.PlaceOrder(t.Context(), marketBuy("GHOST", 10))
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}

func TestSlippageMovesAgainstTrader(t *testing.T) {
	// 100 bps on a 100.00 mark
	venue := newVenue(t, 100)
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	buy, err := venue.PlaceOrder(t.Context(), marketBuy("AAA", 10))
	require.NoError(t, err)
	assert.True(t, buy.AvgFillPrice.Equal(decimal.RequireFromString("101")), "buy fill %s", buy.AvgFillPrice)

	sell, err := venue.PlaceOrder(t.Context(), marketSell("AAA", 10))
	require.NoError(t, err)
	assert.True(t, sell.AvgFillPrice.Equal(decimal.RequireFromString("99")), "sell fill %s", sell.AvgFillPrice)
}

func TestLimitOrderRestsUntilCrossed(t *testing.T) {
	venue := newVenue(t, 0)
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	order, err := venue.PlaceOrder(t.Context(), domain.OrderIntent{
		Symbol:     "AAA",
		Side:       domain.SideBuy,
		Quantity:   50,
		Type:       domain.OrderTypeLimit,
		LimitPrice: decimal.NewFromInt(99),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusSubmitted, order.Status)

	fills := venue.MarkPrice("AAA", decimal.RequireFromString("99.50"), t0.Add(time.Minute))
	assert.Empty(t, fills)

	fills = venue.MarkPrice("AAA", decimal.RequireFromString("98.90"), t0.Add(2*time.Minute))
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(99)))

	status, err := venue.OrderStatus(t.Context(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, status.Status)
}

func TestMarketableLimitFillsImmediately(t *testing.T) {
	venue := newVenue(t, 0)
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	order, err := venue.PlaceOrder(t.Context(), domain.OrderIntent{
		Symbol:     "AAA",
		Side:       domain.SideBuy,
		Quantity:   50,
		Type:       domain.OrderTypeLimit,
		LimitPrice: decimal.RequireFromString("100.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)
	assert.True(t, order.AvgFillPrice.Equal(decimal.RequireFromString("100.50")))
}

func TestCancelLifecycle(t *testing.T) {
	venue := newVenue(t, 0)
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	order, err := venue.PlaceOrder(t.Context(), domain.OrderIntent{
		Symbol:     "AAA",
		Side:       domain.SideBuy,
		Quantity:   50,
		Type:       domain.OrderTypeLimit,
		LimitPrice: decimal.NewFromInt(90),
	})
	require.NoError(t, err)

	require.NoError(t, venue.CancelOrder(t.Context(), order.ID))
	status, err := venue.OrderStatus(t.Context(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, status.Status)

	assert.ErrorIs(t, venue.CancelOrder(t.Context(), order.ID), domain.ErrOrderTerminal)
	assert.ErrorIs(t, venue.CancelOrder(t.Context(), "missing"), ports.ErrOrderNotFound)

	// a cancelled order no longer fills
	fills := venue.MarkPrice("AAA", decimal.NewFromInt(80), t0.Add(time.Minute))
	assert.Empty(t, fills)
}

func TestSellWithoutPositionRejected(t *testing.T) {
	venue := newVenue(t, 0)
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	_, err := venue.PlaceOrder(t.Context(), marketSell("AAA", 10))
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
}

func TestInsufficientCashRejected(t *testing.T) {
	venue := NewSimulated(frictionlessRules(t), Config{
		InitialCash: decimal.NewFromInt(1000),
		SlippageBps: 0,
	})
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	_, err := venue.PlaceOrder(t.Context(), marketBuy("AAA", 100))
	assert.ErrorIs(t, err, ErrInsufficientCash)
}

func TestRoundTripSettlesCash(t *testing.T) {
	venue := newVenue(t, 0)
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	_, err := venue.PlaceOrder(t.Context(), marketBuy("AAA", 100))
	require.NoError(t, err)

	venue.MarkPrice("AAA", decimal.NewFromInt(110), t0.Add(time.Hour))
	_, err = venue.PlaceOrder(t.Context(), marketSell("AAA", 100))
	require.NoError(t, err)

	positions, err := venue.Positions(t.Context())
	require.NoError(t, err)
	assert.Empty(t, positions)

	state, err := venue.AccountState(t.Context())
	require.NoError(t, err)
	assert.True(t, state.Cash.Equal(decimal.NewFromInt(101000)), "cash %s", state.Cash)
	assert.True(t, state.Equity().Equal(decimal.NewFromInt(101000)))
}

func TestFeesReduceCash(t *testing.T) {
	rules, err := market.NewRules(market.DefaultConfig())
	require.NoError(t, err)
	venue := NewSimulated(rules, Config{InitialCash: decimal.NewFromInt(100000), SlippageBps: 0})
	venue.MarkPrice("AAA", decimal.NewFromInt(100), t0)

	_, err = venue.PlaceOrder(t.Context(), marketBuy("AAA", 100))
	require.NoError(t, err)

	value := decimal.NewFromInt(10000)
	expected := decimal.NewFromInt(100000).Sub(value).Sub(rules.CalculateFees(value, false).Total)

	state, err := venue.AccountState(t.Context())
	require.NoError(t, err)
	assert.True(t, state.Cash.Equal(expected), "cash %s want %s", state.Cash, expected)
}

func TestApplySlippageAndFeesPreview(t *testing.T) {
	venue := newVenue(t, 5)

	intent, err := venue.ApplySlippageAndFees(t.Context(), marketBuy("AAA", 10), decimal.NewFromInt(100))
	require.NoError(t, err)
	// 100 * 1.0005 = 100.05, half-up on the 0.10 tick gives 100.10
	assert.True(t, intent.LimitPrice.Equal(decimal.RequireFromString("100.10")), "price %s", intent.LimitPrice)
}
