package algo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

func momentumBar(symbol string, minute int, low, close int64, volume int64) domain.Bar {
	l := decimal.NewFromInt(low)
	c := decimal.NewFromInt(close)
	return domain.Bar{
		Timestamp: time.Date(2026, 1, 5, 10, minute, 0, 0, time.UTC),
		Symbol:    symbol,
		Open:      l,
		High:      c,
		Low:       l,
		Close:     c,
		Volume:    volume,
		Timeframe: domain.TimeframeMinute,
	}
}

func TestMomentumScannerFlagsVolumeSpikeAtHigh(t *testing.T) {
	s := NewMomentumScanner(5)

	// build volume history around 1000
	var warmup []domain.Bar
	for i := range 5 {
		warmup = append(warmup, momentumBar("AAA", i, 99, 100, 1000))
	}
	_, err := s.Scan(t.Context(), warmup, testContext())
	require.NoError(t, err)

	// closes at the high on 2x average volume
	out, err := s.Scan(t.Context(), []domain.Bar{momentumBar("AAA", 6, 99, 101, 2000)}, testContext())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "AAA", out[0].Symbol)
	assert.True(t, out[0].Price.Equal(decimal.NewFromInt(101)))
	assert.True(t, out[0].StopPrice.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, "momentum", out[0].Reason)
}

func TestMomentumScannerIgnoresQuietOrWeakCloses(t *testing.T) {
	s := NewMomentumScanner(5)

	var warmup []domain.Bar
	for i := range 5 {
		warmup = append(warmup, momentumBar("AAA", i, 99, 100, 1000))
	}
	_, err := s.Scan(t.Context(), warmup, testContext())
	require.NoError(t, err)

	// average volume, no spike
	out, err := s.Scan(t.Context(), []domain.Bar{momentumBar("AAA", 6, 99, 101, 1000)}, testContext())
	require.NoError(t, err)
	assert.Empty(t, out)

	// spike but close in the lower half of the range
	weak := momentumBar("AAA", 7, 99, 105, 2000)
	weak.Close = decimal.NewFromInt(101)
	weak.High = decimal.NewFromInt(105)
	out, err = s.Scan(t.Context(), []domain.Bar{weak}, testContext())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMomentumScannerNeedsHistory(t *testing.T) {
	s := NewMomentumScanner(5)

	// first bar has no volume baseline
	out, err := s.Scan(t.Context(), []domain.Bar{momentumBar("AAA", 0, 99, 101, 5000)}, testContext())
	require.NoError(t, err)
	assert.Empty(t, out)
}
