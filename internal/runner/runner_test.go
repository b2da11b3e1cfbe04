package runner

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/broker"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/feed"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/market"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

var day0 = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

// onceLong buys a fixed quantity on the first bar of each symbol and flattens
// everything on a timer at or past the cutoff. OnTimer is a no-op before the
// cutoff, so its behavior only depends on the bar stream.
type onceLong struct {
	qty     int64
	cutoff  domain.TimeOfDay
	entered map[string]bool
	held    map[string]int64
	last    map[string]decimal.Decimal
	flat    bool
}

func newOnceLong(qty int64) *onceLong {
	return &onceLong{
		qty:     qty,
		cutoff:  domain.MustTimeOfDay("15:15"),
		entered: make(map[string]bool),
		held:    make(map[string]int64),
		last:    make(map[string]decimal.Decimal),
	}
}

func (s *onceLong) OnBar(_ context.Context, bar domain.Bar) ([]domain.Signal, error) {
	s.last[bar.Symbol] = bar.Close
	if s.entered[bar.Symbol] || s.flat {
		return nil, nil
	}
	s.entered[bar.Symbol] = true
	return []domain.Signal{
		domain.NewSignal(bar.Symbol, domain.SignalEntry, bar.Close, s.qty, "first bar", 0.6, bar.Timestamp),
	}, nil
}

func (s *onceLong) OnFill(_ context.Context, fill domain.Fill) error {
	if fill.Side == domain.SideBuy {
		s.held[fill.Symbol] += fill.Quantity
	} else {
		s.held[fill.Symbol] -= fill.Quantity
	}
	return nil
}

func (s *onceLong) OnTimer(_ context.Context, now time.Time) ([]domain.Signal, error) {
	if s.flat || domain.TimeOfDayOf(now) < s.cutoff {
		return nil, nil
	}
	s.flat = true
	var out []domain.Signal
	for _, sym := range []string{"AAA", "BBB"} {
		if s.held[sym] > 0 {
			out = append(out, domain.NewSignal(sym, domain.SignalExit, s.last[sym], s.held[sym], "cutoff", 1.0, now))
		}
	}
	return out, nil
}

func sessionBar(symbol string, clock string, close int64) domain.Bar {
	tod := domain.MustTimeOfDay(clock)
	c := decimal.NewFromInt(close)
	return domain.Bar{
		Timestamp: tod.At(day0),
		Symbol:    symbol,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    1000,
		Timeframe: domain.TimeframeMinute,
	}
}

func newTestVenue(t *testing.T) *broker.Simulated {
	t.Helper()
	cfg := market.DefaultConfig()
	cfg.Fees = market.FeeRates{}
	rules, err := market.NewRules(cfg)
	require.NoError(t, err)
	return broker.NewSimulated(rules, broker.Config{InitialCash: decimal.NewFromInt(100000)})
}

func testConfig() Config {
	return Config{
		Symbols: []string{"AAA", "BBB"},
		Start:   day0,
		End:     day0.AddDate(0, 0, 1),
	}
}

func intradayBars() []domain.Bar {
	return []domain.Bar{
		sessionBar("AAA", "10:00", 100),
		sessionBar("BBB", "10:00", 50),
		sessionBar("AAA", "10:01", 102),
		sessionBar("BBB", "10:01", 51),
	}
}

func TestBacktestRoundTripFlattensAtCutoff(t *testing.T) {
	f := feed.NewMemoryFeed(intradayBars())
	bt, err := NewBacktest(testConfig(), f, newTestVenue(t), newOnceLong(10), nil)
	require.NoError(t, err)

	report, err := bt.Run(t.Context())
	require.NoError(t, err)
	assert.Empty(t, report.Errors)

	// one entry per symbol, one exit each at the end-of-stream cutoff
	assert.Equal(t, 4, report.Bars)
	assert.Equal(t, 4, report.Signals)
	assert.Equal(t, 4, report.Orders)
	assert.Equal(t, 4, report.Fills)
	assert.Empty(t, report.Account.Positions)

	// AAA: buy 10@100 sell 10@102, BBB: buy 10@50 sell 10@51 = +30
	assert.True(t, report.Account.Cash.Equal(decimal.NewFromInt(100030)), "cash %s", report.Account.Cash)

	assert.Equal(t, uint64(4), report.Metrics.BarsProcessed)
	assert.Equal(t, uint64(4), report.Metrics.OrdersPlaced)
	assert.Equal(t, uint64(2), report.Metrics.SignalCounts[domain.SignalEntry])
	assert.Equal(t, uint64(2), report.Metrics.SignalCounts[domain.SignalExit])
}

func TestLiveMatchesBacktest(t *testing.T) {
	btReport := func() *Report {
		bt, err := NewBacktest(testConfig(), feed.NewMemoryFeed(intradayBars()), newTestVenue(t), newOnceLong(10), nil)
		require.NoError(t, err)
		report, err := bt.Run(t.Context())
		require.NoError(t, err)
		return report
	}()

	cfg := testConfig()
	cfg.TickInterval = time.Hour // keep the wall clock out of the comparison
	lv, err := NewLive(cfg, feed.NewMemoryFeed(intradayBars()), newTestVenue(t), newOnceLong(10), nil)
	require.NoError(t, err)
	liveReport, err := lv.Run(t.Context())
	require.NoError(t, err)
	assert.Empty(t, liveReport.Errors)

	// the live loop never saw a cutoff timer, so only entries compare
	assert.Equal(t, btReport.Bars, liveReport.Bars)
	assert.Equal(t, uint64(2), liveReport.Metrics.SignalCounts[domain.SignalEntry])
	assert.Equal(t, btReport.Metrics.SignalCounts[domain.SignalEntry], liveReport.Metrics.SignalCounts[domain.SignalEntry])
	require.Len(t, liveReport.Account.Positions, 2)
}

func TestBacktestClosesDayBeforeNext(t *testing.T) {
	bars := []domain.Bar{
		sessionBar("AAA", "10:00", 100),
		{
			Timestamp: domain.MustTimeOfDay("10:00").At(day0.AddDate(0, 0, 1)),
			Symbol:    "AAA",
			Open:      decimal.NewFromInt(104),
			High:      decimal.NewFromInt(104),
			Low:       decimal.NewFromInt(104),
			Close:     decimal.NewFromInt(104),
			Volume:    1000,
			Timeframe: domain.TimeframeMinute,
		},
	}
	cfg := testConfig()
	cfg.Symbols = []string{"AAA"}
	cfg.End = day0.AddDate(0, 0, 2)

	strat := newOnceLong(10)
	bt, err := NewBacktest(cfg, feed.NewMemoryFeed(bars), newTestVenue(t), strat, nil)
	require.NoError(t, err)

	report, err := bt.Run(t.Context())
	require.NoError(t, err)

	// day one entered and was flattened at its cutoff before day two ran
	assert.True(t, strat.flat)
	assert.Equal(t, 2, report.Signals)
	assert.Empty(t, report.Account.Positions)
}

func TestBacktestRejectsBadConfig(t *testing.T) {
	var cfgErr *ports.ConfigError

	cfg := testConfig()
	cfg.Symbols = nil
	_, err := NewBacktest(cfg, feed.NewMemoryFeed(nil), newTestVenue(t), newOnceLong(1), nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "symbols", cfgErr.Field)

	cfg = testConfig()
	cfg.End = cfg.Start
	_, err = NewBacktest(cfg, feed.NewMemoryFeed(nil), newTestVenue(t), newOnceLong(1), nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dateRange", cfgErr.Field)
}

func TestBacktestWithoutDataFails(t *testing.T) {
	bt, err := NewBacktest(testConfig(), feed.NewMemoryFeed(nil), newTestVenue(t), newOnceLong(1), nil)
	require.NoError(t, err)

	_, err = bt.Run(t.Context())
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}
