package market

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

var (
	ErrInvalidQuantity = errors.New("market: quantity must be > 0")
	ErrInvalidPrice    = errors.New("market: price must be > 0")
)

// Rules evaluates exchange microstructure constraints. All methods are pure:
// no observable side effects beyond the return value.
type Rules struct {
	cfg Config
}

// NewRules builds a rules evaluator after validating the config.
func NewRules(cfg Config) (*Rules, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rules{cfg: cfg}, nil
}

// TickSize returns the tick increment for the band containing price.
func (r *Rules) TickSize(price decimal.Decimal) decimal.Decimal {
	tick := r.cfg.TickBands[0].Tick
	for _, band := range r.cfg.TickBands {
		if price.GreaterThanOrEqual(band.Floor) {
			tick = band.Tick
		}
	}
	return tick
}

// RoundToTick rounds price to the nearest tick multiple, half up.
// The operation is idempotent: rounding an already-rounded price is a no-op.
func (r *Rules) RoundToTick(price decimal.Decimal) decimal.Decimal {
	tick := r.TickSize(price)
	steps := price.Div(tick).Round(0)
	rounded := steps.Mul(tick)

	// Rounding can push the price into the next band; re-snap with that
	// band's tick so the result is always an exact multiple of its own tick.
	if next := r.TickSize(rounded); !next.Equal(tick) {
		return rounded.Div(next).Round(0).Mul(next)
	}
	return rounded
}

// ValidateQuantity truncates qty to an integer lot. Quantities that are not
// strictly positive after truncation are rejected.
func (r *Rules) ValidateQuantity(qty decimal.Decimal) (int64, error) {
	if !qty.IsPositive() {
		return 0, ErrInvalidQuantity
	}
	lots := qty.Truncate(0).IntPart()
	if lots <= 0 {
		return 0, ErrInvalidQuantity
	}
	return lots, nil
}

// ApplyPriceBand clamps price into the daily band around prevClose.
func (r *Rules) ApplyPriceBand(price, prevClose decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	lower := prevClose.Mul(one.Add(r.cfg.LowerBandPct))
	upper := prevClose.Mul(one.Add(r.cfg.UpperBandPct))
	if price.LessThan(lower) {
		return lower
	}
	if price.GreaterThan(upper) {
		return upper
	}
	return price
}

// ApplySlippage moves price against the trader by bps basis points.
// Buys pay up, sells receive less. Applied before tick rounding.
func (r *Rules) ApplySlippage(price decimal.Decimal, bps int64, side domain.Side) decimal.Decimal {
	adj := price.Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(10000))
	if side == domain.SideSell {
		return price.Sub(adj)
	}
	return price.Add(adj)
}
