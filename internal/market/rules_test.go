package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

func newRules(t *testing.T) *Rules {
	t.Helper()
	r, err := NewRules(DefaultConfig())
	require.NoError(t, err)
	return r
}

func TestTickSizeBands(t *testing.T) {
	r := newRules(t)

	tests := []struct {
		price string
		tick  string
	}{
		{"12.40", "0.05"},
		{"99.99", "0.05"},
		{"100.00", "0.10"},
		{"499.90", "0.10"},
		{"500.00", "0.50"},
		{"2412.00", "0.50"},
	}
	for _, tt := range tests {
		got := r.TickSize(decimal.RequireFromString(tt.price))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.tick)),
			"price %s: tick = %s, want %s", tt.price, got, tt.tick)
	}
}

func TestRoundToTickIdempotent(t *testing.T) {
	r := newRules(t)

	prices := []string{"12.43", "99.98", "100.04", "123.456", "499.97", "500.30", "2411.76"}
	for _, p := range prices {
		price := decimal.RequireFromString(p)
		once := r.RoundToTick(price)
		twice := r.RoundToTick(once)
		assert.True(t, once.Equal(twice), "price %s: %s != %s", p, once, twice)

		tick := r.TickSize(once)
		assert.True(t, once.Mod(tick).IsZero(), "price %s: %s is not a multiple of %s", p, once, tick)
	}
}

func TestRoundToTickHalfUp(t *testing.T) {
	r := newRules(t)

	// 12.425 sits exactly between 12.40 and 12.45.
	got := r.RoundToTick(decimal.RequireFromString("12.425"))
	assert.True(t, got.Equal(decimal.RequireFromString("12.45")), "got %s", got)
}

func TestValidateQuantity(t *testing.T) {
	r := newRules(t)

	lots, err := r.ValidateQuantity(decimal.RequireFromString("10.9"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), lots)

	_, err = r.ValidateQuantity(decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = r.ValidateQuantity(decimal.RequireFromString("-3"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = r.ValidateQuantity(decimal.RequireFromString("0.4"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestApplyPriceBand(t *testing.T) {
	r := newRules(t)
	prevClose := decimal.NewFromInt(100)

	assert.True(t, r.ApplyPriceBand(decimal.NewFromInt(130), prevClose).Equal(decimal.NewFromInt(120)))
	assert.True(t, r.ApplyPriceBand(decimal.NewFromInt(70), prevClose).Equal(decimal.NewFromInt(80)))
	assert.True(t, r.ApplyPriceBand(decimal.NewFromInt(105), prevClose).Equal(decimal.NewFromInt(105)))
}

func TestCalculateFees(t *testing.T) {
	r := newRules(t)
	value := decimal.NewFromInt(100000)

	buy := r.CalculateFees(value, false)
	assert.True(t, buy.STT.IsZero(), "buy stt = %s", buy.STT)

	sell := r.CalculateFees(value, true)
	assert.True(t, sell.STT.IsPositive())

	for _, b := range []FeeBreakdown{buy, sell} {
		sum := b.Brokerage.Add(b.STT).Add(b.Transaction).Add(b.GST).Add(b.SEBI)
		assert.True(t, sum.Equal(b.Total), "components %s != total %s", sum, b.Total)
	}
}

func TestApplySlippageAdverse(t *testing.T) {
	r := newRules(t)
	price := decimal.NewFromInt(200)

	buy := r.ApplySlippage(price, 10, domain.SideBuy)
	sell := r.ApplySlippage(price, 10, domain.SideSell)

	assert.True(t, buy.GreaterThan(price), "buy slips up, got %s", buy)
	assert.True(t, sell.LessThan(price), "sell slips down, got %s", sell)
	assert.True(t, buy.Equal(decimal.RequireFromString("200.2")), "got %s", buy)
}
