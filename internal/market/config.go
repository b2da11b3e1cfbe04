package market

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

var (
	ErrNoTickBands  = errors.New("market: no tick bands configured")
	ErrBandOrdering = errors.New("market: tick bands must be sorted by ascending floor")
	ErrBandTick     = errors.New("market: tick size must be > 0")
	ErrPriceBandPct = errors.New("market: price band percentages must satisfy lower < 0 < upper")
	ErrNegativeRate = errors.New("market: fee rate must be >= 0")
)

// TickBand maps a price floor to the tick increment that applies at and
// above that floor, up to the next band's floor.
type TickBand struct {
	Floor decimal.Decimal `json:"floor"`
	Tick  decimal.Decimal `json:"tick"`
}

// FeeRates are the linear charge rates applied to trade value.
// STT applies only on the sell side.
type FeeRates struct {
	Brokerage   decimal.Decimal `json:"brokerage"`
	STT         decimal.Decimal `json:"stt"`
	Transaction decimal.Decimal `json:"transaction"`
	GST         decimal.Decimal `json:"gst"`
	SEBI        decimal.Decimal `json:"sebi"`
}

// Config carries the exchange microstructure parameters.
type Config struct {
	TickBands    []TickBand      `json:"tickBands"`
	LowerBandPct decimal.Decimal `json:"lowerBandPct"`
	UpperBandPct decimal.Decimal `json:"upperBandPct"`
	Fees         FeeRates        `json:"fees"`
}

// DefaultConfig returns NSE-style defaults: three tick bands, a +/-20% daily
// price band, and intraday charge rates.
func DefaultConfig() Config {
	return Config{
		TickBands: []TickBand{
			{Floor: decimal.Zero, Tick: decimal.RequireFromString("0.05")},
			{Floor: decimal.NewFromInt(100), Tick: decimal.RequireFromString("0.10")},
			{Floor: decimal.NewFromInt(500), Tick: decimal.RequireFromString("0.50")},
		},
		LowerBandPct: decimal.RequireFromString("-0.20"),
		UpperBandPct: decimal.RequireFromString("0.20"),
		Fees: FeeRates{
			Brokerage:   decimal.RequireFromString("0.0003"),
			STT:         decimal.RequireFromString("0.00025"),
			Transaction: decimal.RequireFromString("0.0000345"),
			GST:         decimal.RequireFromString("0.18"),
			SEBI:        decimal.RequireFromString("0.000001"),
		},
	}
}

// Validate checks band ordering and rate signs.
func (c Config) Validate() error {
	if len(c.TickBands) == 0 {
		return ErrNoTickBands
	}
	if !sort.SliceIsSorted(c.TickBands, func(i, j int) bool {
		return c.TickBands[i].Floor.LessThan(c.TickBands[j].Floor)
	}) {
		return ErrBandOrdering
	}
	for _, band := range c.TickBands {
		if !band.Tick.IsPositive() {
			return ErrBandTick
		}
	}
	if !c.LowerBandPct.IsNegative() || !c.UpperBandPct.IsPositive() {
		return ErrPriceBandPct
	}
	for _, rate := range []decimal.Decimal{c.Fees.Brokerage, c.Fees.STT, c.Fees.Transaction, c.Fees.GST, c.Fees.SEBI} {
		if rate.IsNegative() {
			return ErrNegativeRate
		}
	}
	return nil
}
