package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

// EMA is a streaming exponential moving average.
type EMA struct {
	period int
	alpha  decimal.Decimal
	value  decimal.Decimal
	init   bool
}

// NewEMA creates an EMA with alpha = 2/(period+1).
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period) + 1)),
	}
}

// Update folds the next price into the average.
func (e *EMA) Update(price decimal.Decimal) {
	if !e.init {
		e.value = price
		e.init = true
		return
	}
	one := decimal.NewFromInt(1)
	e.value = price.Mul(e.alpha).Add(e.value.Mul(one.Sub(e.alpha)))
}

// Value returns the current average.
func (e *EMA) Value() decimal.Decimal {
	return e.value
}

// Ready reports whether at least one sample was seen.
func (e *EMA) Ready() bool {
	return e.init
}

// ATR is a streaming average true range smoothed with an EMA.
type ATR struct {
	period  int
	ema     *EMA
	prev    *domain.Bar
	samples int
}

// NewATR creates an ATR over the given period.
func NewATR(period int) *ATR {
	return &ATR{period: period, ema: NewEMA(period)}
}

// Update folds the next bar's true range into the average.
func (a *ATR) Update(bar domain.Bar) {
	if a.prev == nil {
		b := bar
		a.prev = &b
		return
	}
	tr1 := bar.High.Sub(bar.Low)
	tr2 := bar.High.Sub(a.prev.Close).Abs()
	tr3 := bar.Low.Sub(a.prev.Close).Abs()
	a.ema.Update(decimal.Max(tr1, tr2, tr3))

	b := bar
	a.prev = &b
	a.samples++
}

// Value returns the smoothed true range.
func (a *ATR) Value() decimal.Decimal {
	return a.ema.Value()
}

// Ready reports whether a full period of samples was seen.
func (a *ATR) Ready() bool {
	return a.samples >= a.period
}

// OBV is a streaming on-balance volume accumulator.
type OBV struct {
	prevClose decimal.Decimal
	value     decimal.Decimal
	init      bool
}

// NewOBV creates an empty accumulator.
func NewOBV() *OBV {
	return &OBV{}
}

// Update adds bar volume on up-closes and subtracts it on down-closes.
func (o *OBV) Update(bar domain.Bar) {
	if !o.init {
		o.prevClose = bar.Close
		o.init = true
		return
	}
	vol := decimal.NewFromInt(bar.Volume)
	switch {
	case bar.Close.GreaterThan(o.prevClose):
		o.value = o.value.Add(vol)
	case bar.Close.LessThan(o.prevClose):
		o.value = o.value.Sub(vol)
	}
	o.prevClose = bar.Close
}

// Value returns the accumulated on-balance volume.
func (o *OBV) Value() decimal.Decimal {
	return o.value
}
