// Package ports defines the abstract interfaces the engine core depends on.
// Implementations live at the edges (feed, broker, storage, analytics); the
// strategy and scheduler only ever see these contracts.
package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

// SessionWindow restricts a historical query to an intraday time range.
type SessionWindow struct {
	Start domain.TimeOfDay
	End   domain.TimeOfDay
}

// DataFeed produces bars, ordered by timestamp. Backtest feeds are finite;
// live feeds are unbounded until the context is cancelled.
type DataFeed interface {
	Subscribe(ctx context.Context, symbols []string, timeframe domain.Timeframe) (<-chan domain.Bar, error)
	HistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe domain.Timeframe, session *SessionWindow) ([]domain.Bar, error)
	AvailableSymbols(ctx context.Context) ([]string, error)
}

// Analytics scores symbols and computes indicator values. Its numeric
// internals are an implementation detail behind this contract.
type Analytics interface {
	WarmupFeatures(ctx context.Context, date time.Time, symbols []string, start, end domain.TimeOfDay) (map[string]domain.Score, error)
	LeaderScores(ctx context.Context, symbols []string, date time.Time, now time.Time, entryTimes map[string]time.Time) (map[string]domain.LeaderScore, error)
	ATR(ctx context.Context, symbol string, date time.Time, window int, timeframe domain.Timeframe) (decimal.Decimal, error)
	EMA(ctx context.Context, symbol string, date time.Time, window int, timeframe domain.Timeframe) (decimal.Decimal, error)
	OBV(ctx context.Context, symbol string, date time.Time, timeframe domain.Timeframe) (decimal.Decimal, error)
	EntryTriggers(ctx context.Context, symbol string, bar domain.Bar, ema9, ema30 decimal.Decimal) (map[string]bool, error)
}

// Broker accepts order intents and reports executions and account state.
type Broker interface {
	PlaceOrder(ctx context.Context, intent domain.OrderIntent) (*domain.Order, error)
	AmendOrder(ctx context.Context, orderID string, price decimal.Decimal, quantity int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	OrderStatus(ctx context.Context, orderID string) (*domain.Order, error)
	Positions(ctx context.Context) ([]domain.Position, error)
	AccountState(ctx context.Context) (domain.AccountState, error)
	ApplySlippageAndFees(ctx context.Context, intent domain.OrderIntent, marketPrice decimal.Decimal) (domain.OrderIntent, error)
}

// PnlPoint is one sample of the realized+unrealized pnl series of a run.
type PnlPoint struct {
	Timestamp time.Time
	Pnl       decimal.Decimal
	Balance   decimal.Decimal
}

// RunMetrics summarizes a persisted run.
type RunMetrics struct {
	RunID       string
	TotalReturn decimal.Decimal
	SharpeRatio decimal.Decimal
	MaxDrawdown decimal.Decimal
	SignalCount int64
	OrderCount  int64
	FillCount   int64
}

// Repository persists run artifacts keyed by run id and symbol/date.
type Repository interface {
	SaveBars(ctx context.Context, bars []domain.Bar) error
	SaveSignals(ctx context.Context, runID string, signals []domain.Signal) error
	SaveOrders(ctx context.Context, runID string, orders []domain.Order) error
	SaveFills(ctx context.Context, runID string, fills []domain.Fill) error
	SavePositions(ctx context.Context, runID string, positions []domain.Position) error
	SaveScores(ctx context.Context, runID string, scores []domain.Score) error
	SaveRunMetadata(ctx context.Context, meta domain.RunMetadata) error
	LoadBars(ctx context.Context, symbol string, start, end time.Time, timeframe domain.Timeframe) ([]domain.Bar, error)
	LoadSignals(ctx context.Context, runID string) ([]domain.Signal, error)
	PnlSeries(ctx context.Context, runID string) ([]PnlPoint, error)
	RunMetrics(ctx context.Context, runID string) (RunMetrics, error)
}

// Strategy is the behavior the runner drives in both modes. OnBar and
// OnTimer must be deterministic in their inputs so a replayed bar sequence
// reproduces the exact signal sequence.
type Strategy interface {
	OnBar(ctx context.Context, bar domain.Bar) ([]domain.Signal, error)
	OnFill(ctx context.Context, fill domain.Fill) error
	OnTimer(ctx context.Context, now time.Time) ([]domain.Signal, error)
}
