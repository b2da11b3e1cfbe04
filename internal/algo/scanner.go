package algo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

// Candidate is a raw detection from an external scanner before risk sizing.
type Candidate struct {
	Symbol     string
	Price      decimal.Decimal
	StopPrice  decimal.Decimal
	Reason     string
	Confidence float64
	Timestamp  time.Time
}

// Scanner detects trade candidates from market data.
type Scanner interface {
	Scan(ctx context.Context, bars []domain.Bar, actx *Context) ([]Candidate, error)
}

// SizingConfig bounds risk-based position sizing.
type SizingConfig struct {
	MinShares int64 `json:"minShares"`
	MaxShares int64 `json:"maxShares"`
}

// DefaultSizingConfig returns the share clamp defaults.
func DefaultSizingConfig() SizingConfig {
	return SizingConfig{MinShares: 1, MaxShares: 10000}
}

// ScannerBasedAlgorithm wraps a Scanner into a TradingAlgorithm: candidates
// are filtered against the current position book and sized by risk budget.
type ScannerBasedAlgorithm struct {
	name    string
	scanner Scanner
	sizing  SizingConfig
}

var _ TradingAlgorithm = (*ScannerBasedAlgorithm)(nil)

// NewScannerBased wraps scanner under the given registry name.
func NewScannerBased(name string, scanner Scanner, sizing SizingConfig) *ScannerBasedAlgorithm {
	if sizing.MinShares <= 0 {
		sizing.MinShares = 1
	}
	return &ScannerBasedAlgorithm{name: name, scanner: scanner, sizing: sizing}
}

func (a *ScannerBasedAlgorithm) Name() string {
	return a.name
}

func (a *ScannerBasedAlgorithm) Initialize(ctx context.Context, actx *Context) error {
	return nil
}

// ProcessMarketData scans for candidates, drops duplicates and over-limit
// entries, and emits risk-sized entry signals.
func (a *ScannerBasedAlgorithm) ProcessMarketData(ctx context.Context, bars []domain.Bar, actx *Context) ([]domain.Signal, error) {
	candidates, err := a.scanner.Scan(ctx, bars, actx)
	if err != nil {
		return nil, err
	}

	var signals []domain.Signal
	open := actx.OpenPositionCount()
	for _, c := range candidates {
		if actx.HasPosition(c.Symbol) {
			continue
		}
		if actx.MaxPositions > 0 && open+len(signals) >= actx.MaxPositions {
			continue
		}
		qty, ok := a.size(actx, c)
		if !ok {
			continue
		}
		signals = append(signals, domain.NewSignal(
			c.Symbol, domain.SignalEntry, c.Price, qty, c.Reason, c.Confidence, c.Timestamp,
		))
	}
	return signals, nil
}

// HandleSignals passes through signals that survive validation.
func (a *ScannerBasedAlgorithm) HandleSignals(ctx context.Context, signals []domain.Signal, actx *Context) ([]domain.Signal, error) {
	out := make([]domain.Signal, 0, len(signals))
	for _, s := range signals {
		if err := s.Validate(); err != nil {
			logs.Infof("drop signal %s %s: %v", s.Symbol, s.Kind, err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdatePositions is a no-op for scanner-driven entries; exits belong to the
// strategy state machine.
func (a *ScannerBasedAlgorithm) UpdatePositions(ctx context.Context, positions map[string]domain.Position, actx *Context) ([]domain.Signal, error) {
	return nil, nil
}

// size computes floor(balance * riskPerTrade / stopDistance) clamped to the
// configured share bounds. Returns false when the candidate is untradable.
func (a *ScannerBasedAlgorithm) size(actx *Context, c Candidate) (int64, bool) {
	if !c.Price.IsPositive() {
		return 0, false
	}
	stopDistance := c.Price.Sub(c.StopPrice).Abs()
	if stopDistance.IsZero() {
		return 0, false
	}
	riskBudget := actx.AccountBalance.Mul(actx.RiskPerTrade)
	shares := riskBudget.Div(stopDistance).Floor().IntPart()
	if shares < a.sizing.MinShares {
		return 0, false
	}
	if a.sizing.MaxShares > 0 && shares > a.sizing.MaxShares {
		shares = a.sizing.MaxShares
	}
	return shares, true
}
