// Package backtest runs registered algorithms over historical data in day
// chunks: signal computation fans out per chunk, portfolio effects apply on
// a single sequential path so results are reproducible.
package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

const (
	defaultChunkDays       = 30
	defaultWorkers         = 4
	defaultMemoryCeilingMB = 1024
)

// Config parameterizes one optimizer run.
type Config struct {
	Symbols    []string
	Algorithms []string
	Start      time.Time
	End        time.Time
	Timeframe  domain.Timeframe

	ChunkDays int
	Workers   int

	InitialBalance decimal.Decimal
	RiskPerTrade   decimal.Decimal
	MaxPositions   int

	MemoryCeilingMB uint64
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.ChunkDays <= 0 {
		c.ChunkDays = defaultChunkDays
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.MemoryCeilingMB == 0 {
		c.MemoryCeilingMB = defaultMemoryCeilingMB
	}
	if c.Timeframe == "" {
		c.Timeframe = domain.TimeframeMinute
	}
	return c
}

// Validate rejects configs that cannot produce a meaningful run.
func (c Config) Validate() error {
	if !c.Start.Before(c.End) {
		return ports.NewConfigError("dateRange", "start %s must precede end %s", c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
	}
	if len(c.Symbols) == 0 {
		return ports.NewConfigError("symbols", "at least one symbol required")
	}
	if len(c.Algorithms) == 0 {
		return ports.NewConfigError("algorithms", "at least one algorithm required")
	}
	if !c.InitialBalance.IsPositive() {
		return ports.NewConfigError("initialBalance", "must be > 0")
	}
	if !c.RiskPerTrade.IsPositive() {
		return ports.NewConfigError("riskPerTrade", "must be > 0")
	}
	return nil
}
