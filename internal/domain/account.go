package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Score is a per-symbol ranking snapshot from the warm-up window.
// Scores are read-only after computation and replaced on recompute.
type Score struct {
	Symbol         string
	ShortReturn    decimal.Decimal
	VolumeSpike    decimal.Decimal
	OBVDelta       decimal.Decimal
	SectorStrength decimal.Decimal
	RangeCompress  decimal.Decimal
	SpreadPenalty  decimal.Decimal
	Total          decimal.Decimal
	ComputedAt     time.Time
}

// LeaderScore ranks open positions while tracking the session leader.
type LeaderScore struct {
	Symbol     string
	RMultiple  decimal.Decimal
	Momentum   decimal.Decimal
	TotalScore decimal.Decimal
	ComputedAt time.Time
}

// AccountState is a point-in-time snapshot of cash and exposure. It is
// recomputed from scratch, never incrementally patched, to avoid drift.
type AccountState struct {
	Timestamp       time.Time
	Cash            decimal.Decimal
	MarginUsed      decimal.Decimal
	MarginAvailable decimal.Decimal
	DayPnl          decimal.Decimal
	TotalPnl        decimal.Decimal
	Positions       []Position
}

// ComputeAccountState derives a fresh snapshot from cash and open positions.
func ComputeAccountState(ts time.Time, cash decimal.Decimal, positions map[string]*Position) AccountState {
	state := AccountState{
		Timestamp: ts,
		Cash:      cash,
	}

	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		p := positions[symbol]
		state.Positions = append(state.Positions, *p)
		state.MarginUsed = state.MarginUsed.Add(p.Notional())
		state.DayPnl = state.DayPnl.Add(p.RealizedPnl).Add(p.UnrealizedPnl())
	}
	state.TotalPnl = state.DayPnl
	state.MarginAvailable = state.Cash
	return state
}

// Equity returns cash plus the market value of open positions.
func (a AccountState) Equity() decimal.Decimal {
	equity := a.Cash
	for i := range a.Positions {
		equity = equity.Add(a.Positions[i].Notional())
	}
	return equity
}
