package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StopLevel is a protective stop attached to a position. Trailing updates
// may only move the stop in the position's favor.
type StopLevel struct {
	StopPrice  decimal.Decimal
	Mode       StopMode
	KATR       decimal.Decimal
	FloorPrice decimal.Decimal
}

// Tighten raises the stop of a long position (lowers it for a short).
// A proposal that would loosen the stop is ignored.
func (s *StopLevel) Tighten(proposed decimal.Decimal, long bool) bool {
	if long {
		if proposed.GreaterThan(s.StopPrice) {
			s.StopPrice = proposed
			return true
		}
		return false
	}
	if proposed.LessThan(s.StopPrice) {
		s.StopPrice = proposed
		return true
	}
	return false
}

// Position is the mutable per-symbol aggregate. It is owned by a single
// writer (strategy or broker simulation) and updated only on fills or ticks.
type Position struct {
	Symbol       string
	Quantity     int64
	AvgCost      decimal.Decimal
	CurrentPrice decimal.Decimal
	RealizedPnl  decimal.Decimal
	Stops        []StopLevel
	LadderStage  int
	EntryTime    time.Time
	InitialStop  decimal.Decimal
}

// ApplyFill folds an execution into the position, updating average cost on
// size increases and realized pnl on reductions.
func (p *Position) ApplyFill(fill Fill) {
	qty := fill.Quantity
	if fill.Side == SideSell {
		qty = -qty
	}

	switch {
	case p.Quantity == 0 || sameSign(p.Quantity, qty):
		total := decimal.NewFromInt(p.Quantity).Abs().Mul(p.AvgCost).
			Add(decimal.NewFromInt(qty).Abs().Mul(fill.Price))
		p.Quantity += qty
		if p.Quantity != 0 {
			p.AvgCost = total.Div(decimal.NewFromInt(p.Quantity).Abs())
		}
	default:
		closed := min64(abs64(qty), abs64(p.Quantity))
		diff := fill.Price.Sub(p.AvgCost)
		if p.Quantity < 0 {
			diff = diff.Neg()
		}
		p.RealizedPnl = p.RealizedPnl.Add(diff.Mul(decimal.NewFromInt(closed)))
		p.Quantity += qty
		if p.Quantity == 0 {
			p.AvgCost = decimal.Decimal{}
		}
	}
	p.RealizedPnl = p.RealizedPnl.Sub(fill.Fee)
	p.CurrentPrice = fill.Price
}

// MarkPrice updates the last observed price.
func (p *Position) MarkPrice(price decimal.Decimal) {
	p.CurrentPrice = price
}

// UnrealizedPnl values the open quantity at the current price.
func (p *Position) UnrealizedPnl() decimal.Decimal {
	if p.Quantity == 0 {
		return decimal.Decimal{}
	}
	return p.CurrentPrice.Sub(p.AvgCost).Mul(decimal.NewFromInt(p.Quantity))
}

// Notional returns the absolute market value of the position.
func (p *Position) Notional() decimal.Decimal {
	return p.CurrentPrice.Mul(decimal.NewFromInt(abs64(p.Quantity)))
}

// RMultiple expresses open profit as a multiple of the initial stop distance.
// Returns zero when the position has no initial stop.
func (p *Position) RMultiple() decimal.Decimal {
	if p.Quantity == 0 || p.InitialStop.IsZero() {
		return decimal.Decimal{}
	}
	risk := p.AvgCost.Sub(p.InitialStop)
	if p.Quantity < 0 {
		risk = risk.Neg()
	}
	if !risk.IsPositive() {
		return decimal.Decimal{}
	}
	move := p.CurrentPrice.Sub(p.AvgCost)
	if p.Quantity < 0 {
		move = move.Neg()
	}
	return move.Div(risk)
}

// IsOpen reports whether any quantity is held.
func (p *Position) IsOpen() bool {
	return p.Quantity != 0
}

// IsLong reports whether the position is net long.
func (p *Position) IsLong() bool {
	return p.Quantity > 0
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
