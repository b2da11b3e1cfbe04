package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/algo"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/feed"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

var runStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// meanReverter buys one share when a bar closes at or under 100 and sells
// one share otherwise. Signals depend only on the bars, so any chunking of
// the same range must produce the same sequence.
type meanReverter struct{}

func (meanReverter) Name() string { return "mean-reverter" }
func (meanReverter) Initialize(context.Context, *algo.Context) error { return nil }
func (meanReverter) HandleSignals(_ context.Context, s []domain.Signal, _ *algo.Context) ([]domain.Signal, error) {
	return s, nil
}
func (meanReverter) UpdatePositions(context.Context, map[string]domain.Position, *algo.Context) ([]domain.Signal, error) {
	return nil, nil
}

func (meanReverter) ProcessMarketData(_ context.Context, bars []domain.Bar, _ *algo.Context) ([]domain.Signal, error) {
	var out []domain.Signal
	for _, b := range bars {
		kind := domain.SignalExit
		if b.Close.LessThanOrEqual(decimal.NewFromInt(100)) {
			kind = domain.SignalEntry
		}
		out = append(out, domain.NewSignal(b.Symbol, kind, b.Close, 1, "revert", 0.6, b.Timestamp))
	}
	return out, nil
}

func dayBar(symbol string, day int, close int64) domain.Bar {
	c := decimal.NewFromInt(close)
	return domain.Bar{
		Timestamp: runStart.AddDate(0, 0, day).Add(10 * time.Hour),
		Symbol:    symbol,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    1000,
		Timeframe: domain.TimeframeMinute,
	}
}

// alternating 100/110 closes: each day pair nets +10
func alternatingBars(symbol string, days int) []domain.Bar {
	out := make([]domain.Bar, 0, days)
	for i := range days {
		close := int64(100)
		if i%2 == 1 {
			close = 110
		}
		out = append(out, dayBar(symbol, i, close))
	}
	return out
}

func newManager(t *testing.T) *algo.Manager {
	t.Helper()
	m := algo.NewManager()
	require.NoError(t, m.Register(meanReverter{}))
	require.NoError(t, m.Activate(t.Context(), "mean-reverter", &algo.Context{
		Positions:      map[string]domain.Position{},
		AccountBalance: decimal.NewFromInt(10000),
		RiskPerTrade:   decimal.RequireFromString("0.01"),
	}))
	return m
}

func baseConfig(days, chunkDays int) Config {
	return Config{
		Symbols:        []string{"AAA"},
		Algorithms:     []string{"mean-reverter"},
		Start:          runStart,
		End:            runStart.AddDate(0, 0, days),
		ChunkDays:      chunkDays,
		InitialBalance: decimal.NewFromInt(10000),
		RiskPerTrade:   decimal.RequireFromString("0.01"),
	}
}

func runBacktest(t *testing.T, days, chunkDays int) *Result {
	t.Helper()
	f := feed.NewMemoryFeed(alternatingBars("AAA", days))
	s, err := NewScheduler(baseConfig(days, chunkDays), f, newManager(t), nil)
	require.NoError(t, err)

	result, err := s.Run(t.Context())
	require.NoError(t, err)
	return result
}

func TestChunkingDoesNotChangeOutcome(t *testing.T) {
	single := runBacktest(t, 90, 90)
	split := runBacktest(t, 90, 30)

	require.Len(t, single.Chunks, 1)
	require.Len(t, split.Chunks, 3)
	assert.True(t, single.FinalBalance.Equal(split.FinalBalance),
		"single %s vs split %s", single.FinalBalance, split.FinalBalance)

	// 45 buy/sell pairs at +10 each
	assert.True(t, single.FinalBalance.Equal(decimal.NewFromInt(10450)), "final %s", single.FinalBalance)
}

func TestEmptyChunkCapturedAndRunContinues(t *testing.T) {
	// data covers only the first 30 days of a 60 day range
	f := feed.NewMemoryFeed(alternatingBars("AAA", 30))
	s, err := NewScheduler(baseConfig(60, 30), f, newManager(t), nil)
	require.NoError(t, err)

	result, err := s.Run(t.Context())
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	assert.Empty(t, result.Chunks[0].Errors)
	require.NotEmpty(t, result.Chunks[1].Errors)
	assert.ErrorIs(t, result.Chunks[1].Errors[0], ErrNoChunkData)
	assert.True(t, result.FinalBalance.Equal(decimal.NewFromInt(10150)))
}

func TestSchedulerRejectsBadConfig(t *testing.T) {
	m := newManager(t)
	f := feed.NewMemoryFeed(nil)

	cfg := baseConfig(30, 30)
	cfg.Symbols = nil
	_, err := NewScheduler(cfg, f, m, nil)
	var cfgErr *ports.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "symbols", cfgErr.Field)

	cfg = baseConfig(30, 30)
	cfg.Algorithms = []string{"ghost"}
	_, err = NewScheduler(cfg, f, m, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "algorithms", cfgErr.Field)
}

func TestCancellationStopsBetweenChunks(t *testing.T) {
	f := feed.NewMemoryFeed(alternatingBars("AAA", 90))
	s, err := NewScheduler(baseConfig(90, 30), f, newManager(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	require.NotEmpty(t, result.Errors)
	assert.ErrorIs(t, result.Errors[0], context.Canceled)
	assert.True(t, result.FinalBalance.Equal(decimal.NewFromInt(10000)))
}

func TestApplySignalsClampsOversell(t *testing.T) {
	positions := map[string]domain.Position{
		"AAA": {Symbol: "AAA", Quantity: 5},
	}
	balance := applySignals(decimal.NewFromInt(1000), positions, []domain.Signal{
		domain.NewSignal("AAA", domain.SignalExit, decimal.NewFromInt(10), 50, "exit", 1.0, runStart),
	})

	// only the held 5 shares settle
	assert.True(t, balance.Equal(decimal.NewFromInt(1050)), "balance %s", balance)
	assert.NotContains(t, positions, "AAA")
}

func TestMemoryMonitorAdvisesCleanupUnderPressure(t *testing.T) {
	tight := NewMemoryMonitor(1, 1) // 1 MB ceiling is always exceeded
	assert.True(t, tight.Observe())
	stats := tight.Stats()
	assert.Equal(t, uint64(1), stats.Cleanups)
	assert.Positive(t, stats.Peak)

	roomy := NewMemoryMonitor(1<<20, 1)
	assert.False(t, roomy.Observe())
}
