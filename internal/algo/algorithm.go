// Package algo turns generic scanner output into risk-sized trade signals
// and runs registered algorithms concurrently with per-algorithm failure
// isolation.
package algo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

// Context is the shared state every algorithm sees for one execution step.
// Algorithms only read it; position and account mutation happens on the
// scheduler's single sequential path.
type Context struct {
	TradingDate    time.Time
	Now            time.Time
	Positions      map[string]domain.Position
	AccountBalance decimal.Decimal
	RiskPerTrade   decimal.Decimal
	MaxPositions   int
}

// OpenPositionCount returns the number of non-flat positions.
func (c *Context) OpenPositionCount() int {
	n := 0
	for _, p := range c.Positions {
		if p.Quantity != 0 {
			n++
		}
	}
	return n
}

// HasPosition reports whether symbol has an open position.
func (c *Context) HasPosition(symbol string) bool {
	p, ok := c.Positions[symbol]
	return ok && p.Quantity != 0
}

// TradingAlgorithm is the capability set every algorithm implements.
// Implementations are selected at startup via the manager's registry.
type TradingAlgorithm interface {
	Name() string
	Initialize(ctx context.Context, actx *Context) error
	ProcessMarketData(ctx context.Context, bars []domain.Bar, actx *Context) ([]domain.Signal, error)
	HandleSignals(ctx context.Context, signals []domain.Signal, actx *Context) ([]domain.Signal, error)
	UpdatePositions(ctx context.Context, positions map[string]domain.Position, actx *Context) ([]domain.Signal, error)
}

// Result captures one algorithm's output for a single execution.
type Result struct {
	Algorithm   string
	Signals     []domain.Signal
	Errors      []error
	Duration    time.Duration
	SignalCount int
}

// Failed reports whether the execution recorded any error.
func (r Result) Failed() bool {
	return len(r.Errors) > 0
}
