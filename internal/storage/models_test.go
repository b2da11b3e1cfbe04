package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

func TestBarRowRoundTrip(t *testing.T) {
	bar := domain.Bar{
		Timestamp: time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC),
		Symbol:    "AAA",
		Open:      decimal.RequireFromString("99.50"),
		High:      decimal.RequireFromString("100.10"),
		Low:       decimal.RequireFromString("99.40"),
		Close:     decimal.RequireFromString("100.00"),
		Volume:    1200,
		Timeframe: domain.TimeframeMinute,
	}
	assert.Equal(t, bar, newBarRow(bar).toDomain())
}

func TestSignalRowRoundTrip(t *testing.T) {
	sig := domain.NewSignal("AAA", domain.SignalAddPosition,
		decimal.RequireFromString("101.50"), 250, "pyramid add", 1.0,
		time.Date(2026, 1, 5, 10, 10, 0, 0, time.UTC))

	row := newSignalRow("run-1", sig)
	assert.Equal(t, "run-1", row.RunID)
	assert.Equal(t, "ADD_POSITION", row.Kind)
	assert.Equal(t, sig, row.toDomain())
}

func TestEnumParsers(t *testing.T) {
	kinds := []domain.SignalKind{
		domain.SignalEntry, domain.SignalExit, domain.SignalAddPosition,
		domain.SignalStopLoss, domain.SignalTakeProfit,
	}
	for _, k := range kinds {
		assert.Equal(t, k, parseSignalKind(k.String()))
	}
	assert.Equal(t, domain.SignalUnknown, parseSignalKind("garbage"))

	assert.Equal(t, domain.SideBuy, parseSide("BUY"))
	assert.Equal(t, domain.SideSell, parseSide("SELL"))
	assert.Equal(t, domain.SideUnknown, parseSide(""))
}
