package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

// Config parameterizes the Top-3 Concentrate & Pyramid session.
type Config struct {
	// Selection window; scores are computed once when the window closes.
	SelectionStart domain.TimeOfDay
	SelectionEnd   domain.TimeOfDay
	// EODCutoff forces every position flat, unconditionally.
	EODCutoff domain.TimeOfDay

	// TopN symbols survive selection.
	TopN int

	// RotationInterval is how often the session checks that some position
	// has proven itself.
	RotationInterval time.Duration
	// LeaderRThreshold is the minimum R-multiple a position must reach for
	// the rotation check to pass.
	LeaderRThreshold decimal.Decimal

	// AddLevels are the R-multiples at which the leader position pyramids,
	// each taken once per ladder stage.
	AddLevels []decimal.Decimal
	// AddFraction sizes each add as a fraction of the current position.
	AddFraction decimal.Decimal

	// InitialBalance seeds risk sizing.
	InitialBalance decimal.Decimal
	// RiskPerTrade is the balance fraction risked per entry.
	RiskPerTrade decimal.Decimal
	// InitialStopPct places the initial stop below the entry price.
	InitialStopPct decimal.Decimal
	// TrailingStopPct trails the stop below the latest close, tightening only.
	TrailingStopPct decimal.Decimal

	MinShares int64
	MaxShares int64
}

// DefaultConfig returns the session defaults: 09:15-09:50 selection,
// 15:15 EOD cutoff, 20 minute rotation, adds at 0.75R/1.25R/2.0R.
func DefaultConfig() Config {
	return Config{
		SelectionStart:   domain.MustTimeOfDay("09:15"),
		SelectionEnd:     domain.MustTimeOfDay("09:50"),
		EODCutoff:        domain.MustTimeOfDay("15:15"),
		TopN:             3,
		RotationInterval: 20 * time.Minute,
		LeaderRThreshold: decimal.RequireFromString("0.5"),
		AddLevels: []decimal.Decimal{
			decimal.RequireFromString("0.75"),
			decimal.RequireFromString("1.25"),
			decimal.RequireFromString("2.0"),
		},
		AddFraction:     decimal.RequireFromString("0.5"),
		InitialBalance:  decimal.NewFromInt(1_000_000),
		RiskPerTrade:    decimal.RequireFromString("0.01"),
		InitialStopPct:  decimal.RequireFromString("0.02"),
		TrailingStopPct: decimal.RequireFromString("0.03"),
		MinShares:       1,
		MaxShares:       10_000,
	}
}

// Validate rejects configs that cannot run a session.
func (c Config) Validate() error {
	if c.SelectionStart >= c.SelectionEnd {
		return ports.NewConfigError("selection", "start %s must precede end %s", c.SelectionStart, c.SelectionEnd)
	}
	if c.SelectionEnd >= c.EODCutoff {
		return ports.NewConfigError("eodCutoff", "cutoff %s must follow selection end %s", c.EODCutoff, c.SelectionEnd)
	}
	if c.TopN <= 0 {
		return ports.NewConfigError("topN", "must be > 0")
	}
	if c.RotationInterval <= 0 {
		return ports.NewConfigError("rotationInterval", "must be > 0")
	}
	if !c.RiskPerTrade.IsPositive() || !c.InitialStopPct.IsPositive() {
		return ports.NewConfigError("risk", "riskPerTrade and initialStopPct must be > 0")
	}
	if !c.InitialBalance.IsPositive() {
		return ports.NewConfigError("initialBalance", "must be > 0")
	}
	for i := 1; i < len(c.AddLevels); i++ {
		if !c.AddLevels[i].GreaterThan(c.AddLevels[i-1]) {
			return ports.NewConfigError("addLevels", "levels must be strictly ascending")
		}
	}
	return nil
}
