package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

var (
	ErrBarRange  = errors.New("bar: high/low does not contain open/close")
	ErrBarVolume = errors.New("bar: negative volume")
)

// Bar is an immutable OHLCV sample. Bars are produced by the data feed and
// are the sole external trigger for state changes in the engine.
type Bar struct {
	Timestamp time.Time
	Symbol    string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
	Timeframe Timeframe
}

// Validate checks the OHLC containment invariant.
func (b Bar) Validate() error {
	if b.Volume < 0 {
		return ErrBarVolume
	}
	hi := decimal.Max(b.Open, b.Close, b.Low)
	lo := decimal.Min(b.Open, b.Close, b.High)
	if b.High.LessThan(hi) || b.Low.GreaterThan(lo) {
		return ErrBarRange
	}
	return nil
}

// Range returns high minus low.
func (b Bar) Range() decimal.Decimal {
	return b.High.Sub(b.Low)
}

// Body returns the absolute open-to-close distance.
func (b Bar) Body() decimal.Decimal {
	return b.Close.Sub(b.Open).Abs()
}

// ClosePositionInRange returns where the close sits inside [low, high],
// normalized to [0, 1]. A doji-less bar closing at the high returns 1.
func (b Bar) ClosePositionInRange() decimal.Decimal {
	r := b.Range()
	if r.IsZero() {
		return decimal.NewFromInt(1)
	}
	return b.Close.Sub(b.Low).Div(r)
}
