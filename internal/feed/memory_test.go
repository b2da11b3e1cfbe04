package feed

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

func minuteBar(symbol string, ts time.Time, close int64) domain.Bar {
	c := decimal.NewFromInt(close)
	return domain.Bar{
		Timestamp: ts,
		Symbol:    symbol,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    100,
		Timeframe: domain.TimeframeMinute,
	}
}

func TestSubscribeReplaysInOrder(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	// stored shuffled; equal timestamps break on symbol
	f := NewMemoryFeed([]domain.Bar{
		minuteBar("BBB", base.Add(time.Minute), 51),
		minuteBar("AAA", base, 100),
		minuteBar("BBB", base, 50),
		minuteBar("AAA", base.Add(time.Minute), 101),
	})

	ch, err := f.Subscribe(t.Context(), []string{"AAA", "BBB"}, domain.TimeframeMinute)
	require.NoError(t, err)

	var got []string
	for bar := range ch {
		got = append(got, bar.Symbol+bar.Close.String())
	}
	assert.Equal(t, []string{"AAA100", "BBB50", "AAA101", "BBB51"}, got)
}

func TestSubscribeFiltersSymbolsAndTimeframe(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	daily := minuteBar("AAA", base, 1)
	daily.Timeframe = domain.TimeframeDay

	f := NewMemoryFeed([]domain.Bar{
		minuteBar("AAA", base, 100),
		minuteBar("CCC", base, 10),
		daily,
	})

	ch, err := f.Subscribe(t.Context(), []string{"AAA"}, domain.TimeframeMinute)
	require.NoError(t, err)

	var got []domain.Bar
	for bar := range ch {
		got = append(got, bar)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "AAA", got[0].Symbol)
}

func TestHistoricalBarsSessionWindow(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	f := NewMemoryFeed([]domain.Bar{
		minuteBar("AAA", domain.MustTimeOfDay("09:10").At(day), 1),
		minuteBar("AAA", domain.MustTimeOfDay("09:15").At(day), 2),
		minuteBar("AAA", domain.MustTimeOfDay("09:49").At(day), 3),
		minuteBar("AAA", domain.MustTimeOfDay("09:50").At(day), 4),
	})

	session := &ports.SessionWindow{
		Start: domain.MustTimeOfDay("09:15"),
		End:   domain.MustTimeOfDay("09:50"),
	}
	bars, err := f.HistoricalBars(t.Context(), "AAA", day, day.Add(24*time.Hour), domain.TimeframeMinute, session)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.True(t, bars[0].Close.Equal(decimal.NewFromInt(2)))
	assert.True(t, bars[1].Close.Equal(decimal.NewFromInt(3)))
}

func TestAvailableSymbolsSorted(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	f := NewMemoryFeed([]domain.Bar{
		minuteBar("CCC", base, 1),
		minuteBar("AAA", base, 1),
		minuteBar("BBB", base, 1),
	})

	symbols, err := f.AvailableSymbols(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbols)
}

func TestBarMessageConversion(t *testing.T) {
	msg := barMessage{
		EventType: "bar",
		Timestamp: time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC).UnixMilli(),
		Symbol:    "AAA",
		Open:      "99.50",
		High:      "100.10",
		Low:       "99.40",
		Close:     "100.00",
		Volume:    1200,
		Timeframe: "1m",
	}

	bar, err := msg.toBar()
	require.NoError(t, err)
	assert.Equal(t, "AAA", bar.Symbol)
	assert.True(t, bar.Close.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, domain.TimeframeMinute, bar.Timeframe)

	msg.High = "not-a-number"
	_, err = msg.toBar()
	assert.Error(t, err)
}
