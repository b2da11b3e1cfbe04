package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// PerfSummary condenses an equity curve into the headline run metrics.
type PerfSummary struct {
	TotalReturn decimal.Decimal
	Sharpe      decimal.Decimal
	MaxDrawdown decimal.Decimal
}

// Performance computes total return, an unannualized Sharpe ratio over the
// point-to-point deltas, and the maximum peak-to-trough drawdown of the
// balance series. Fewer than two points yield a zero summary.
func Performance(balances []decimal.Decimal) PerfSummary {
	var out PerfSummary
	if len(balances) < 2 {
		return out
	}

	first, last := balances[0], balances[len(balances)-1]
	if first.IsPositive() {
		out.TotalReturn = last.Sub(first).Div(first)
	}

	deltas := make([]float64, 0, len(balances)-1)
	for i := 1; i < len(balances); i++ {
		d, _ := balances[i].Sub(balances[i-1]).Float64()
		deltas = append(deltas, d)
	}
	if sd := stddev(deltas); sd > 0 {
		out.Sharpe = decimal.NewFromFloat(mean(deltas) / sd)
	}

	peak := balances[0]
	for _, b := range balances[1:] {
		if b.GreaterThan(peak) {
			peak = b
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(b).Div(peak)
		if dd.GreaterThan(out.MaxDrawdown) {
			out.MaxDrawdown = dd
		}
	}
	return out
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
