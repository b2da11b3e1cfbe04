package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func balances(vals ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestPerformanceTotalReturn(t *testing.T) {
	p := Performance(balances(100000, 105000, 110000))
	assert.True(t, p.TotalReturn.Equal(decimal.RequireFromString("0.1")), "return %s", p.TotalReturn)
}

func TestPerformanceMaxDrawdown(t *testing.T) {
	// peak 120000, trough 90000 -> 25% drawdown
	p := Performance(balances(100000, 120000, 90000, 110000))
	assert.True(t, p.MaxDrawdown.Equal(decimal.RequireFromString("0.25")), "drawdown %s", p.MaxDrawdown)
}

func TestPerformanceSharpeSignsWithDrift(t *testing.T) {
	up := Performance(balances(100, 102, 103, 106, 107))
	down := Performance(balances(107, 106, 103, 102, 100))
	assert.True(t, up.Sharpe.IsPositive())
	assert.True(t, down.Sharpe.IsNegative())
}

func TestPerformanceDegenerateInputs(t *testing.T) {
	assert.Equal(t, PerfSummary{}, Performance(nil))
	assert.Equal(t, PerfSummary{}, Performance(balances(100)))

	flat := Performance(balances(100, 100, 100))
	assert.True(t, flat.Sharpe.IsZero())
	assert.True(t, flat.MaxDrawdown.IsZero())
}
