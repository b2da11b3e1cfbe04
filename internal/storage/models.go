// Package storage persists run artifacts to PostgreSQL through gorm.
// Every table except bars is keyed by run id so runs never interfere.
package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

type BarRow struct {
	ID        uint            `gorm:"primaryKey"`
	Symbol    string          `gorm:"index:idx_bars_lookup,priority:1"`
	Timeframe string          `gorm:"index:idx_bars_lookup,priority:2"`
	Timestamp time.Time       `gorm:"index:idx_bars_lookup,priority:3"`
	Open      decimal.Decimal `gorm:"type:numeric"`
	High      decimal.Decimal `gorm:"type:numeric"`
	Low       decimal.Decimal `gorm:"type:numeric"`
	Close     decimal.Decimal `gorm:"type:numeric"`
	Volume    int64
}

func (BarRow) TableName() string { return "bars" }

type SignalRow struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index"`
	SignalID   string `gorm:"uniqueIndex"`
	Symbol     string
	Kind       string
	Price      decimal.Decimal `gorm:"type:numeric"`
	Quantity   int64
	Reason     string
	Confidence float64
	Timestamp  time.Time
}

func (SignalRow) TableName() string { return "signals" }

type OrderRow struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index"`
	OrderID      string `gorm:"uniqueIndex"`
	Symbol       string
	Side         string
	Type         string
	Quantity     int64
	LimitPrice   decimal.Decimal `gorm:"type:numeric"`
	Status       string
	FilledQty    int64
	AvgFillPrice decimal.Decimal `gorm:"type:numeric"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (OrderRow) TableName() string { return "orders" }

type FillRow struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index"`
	OrderID   string `gorm:"index"`
	Symbol    string
	Side      string
	Quantity  int64
	Price     decimal.Decimal `gorm:"type:numeric"`
	Fee       decimal.Decimal `gorm:"type:numeric"`
	Timestamp time.Time
}

func (FillRow) TableName() string { return "fills" }

type PositionRow struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index"`
	Symbol       string
	Quantity     int64
	AvgCost      decimal.Decimal `gorm:"type:numeric"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric"`
	RealizedPnl  decimal.Decimal `gorm:"type:numeric"`
	LadderStage  int
	EntryTime    time.Time
	InitialStop  decimal.Decimal `gorm:"type:numeric"`
}

func (PositionRow) TableName() string { return "positions" }

type ScoreRow struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index"`
	Symbol         string
	ShortReturn    decimal.Decimal `gorm:"type:numeric"`
	VolumeSpike    decimal.Decimal `gorm:"type:numeric"`
	OBVDelta       decimal.Decimal `gorm:"type:numeric"`
	SectorStrength decimal.Decimal `gorm:"type:numeric"`
	RangeCompress  decimal.Decimal `gorm:"type:numeric"`
	SpreadPenalty  decimal.Decimal `gorm:"type:numeric"`
	Total          decimal.Decimal `gorm:"type:numeric"`
	ComputedAt     time.Time
}

func (ScoreRow) TableName() string { return "scores" }

type RunRow struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"uniqueIndex"`
	Mode           string
	Start          time.Time
	End            time.Time
	ConfigSnapshot string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (RunRow) TableName() string { return "runs" }

type RunMetricsRow struct {
	ID          uint            `gorm:"primaryKey"`
	RunID       string          `gorm:"uniqueIndex"`
	TotalReturn decimal.Decimal `gorm:"type:numeric"`
	SharpeRatio decimal.Decimal `gorm:"type:numeric"`
	MaxDrawdown decimal.Decimal `gorm:"type:numeric"`
}

func (RunMetricsRow) TableName() string { return "run_metrics" }

func newBarRow(b domain.Bar) BarRow {
	return BarRow{
		Symbol:    b.Symbol,
		Timeframe: string(b.Timeframe),
		Timestamp: b.Timestamp,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

func (r BarRow) toDomain() domain.Bar {
	return domain.Bar{
		Timestamp: r.Timestamp,
		Symbol:    r.Symbol,
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
		Timeframe: domain.Timeframe(r.Timeframe),
	}
}

func newSignalRow(runID string, s domain.Signal) SignalRow {
	return SignalRow{
		RunID:      runID,
		SignalID:   s.ID,
		Symbol:     s.Symbol,
		Kind:       s.Kind.String(),
		Price:      s.Price,
		Quantity:   s.Quantity,
		Reason:     s.Reason,
		Confidence: s.Confidence,
		Timestamp:  s.Timestamp,
	}
}

func (r SignalRow) toDomain() domain.Signal {
	return domain.Signal{
		ID:         r.SignalID,
		Symbol:     r.Symbol,
		Kind:       parseSignalKind(r.Kind),
		Price:      r.Price,
		Quantity:   r.Quantity,
		Reason:     r.Reason,
		Confidence: r.Confidence,
		Timestamp:  r.Timestamp,
	}
}

func newOrderRow(runID string, o domain.Order) OrderRow {
	return OrderRow{
		RunID:        runID,
		OrderID:      o.ID,
		Symbol:       o.Symbol,
		Side:         o.Side.String(),
		Type:         o.Type.String(),
		Quantity:     o.Quantity,
		LimitPrice:   o.LimitPrice,
		Status:       o.Status.String(),
		FilledQty:    o.FilledQty,
		AvgFillPrice: o.AvgFillPrice,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func newFillRow(runID string, f domain.Fill) FillRow {
	return FillRow{
		RunID:     runID,
		OrderID:   f.OrderID,
		Symbol:    f.Symbol,
		Side:      f.Side.String(),
		Quantity:  f.Quantity,
		Price:     f.Price,
		Fee:       f.Fee,
		Timestamp: f.Timestamp,
	}
}

func newPositionRow(runID string, p domain.Position) PositionRow {
	return PositionRow{
		RunID:        runID,
		Symbol:       p.Symbol,
		Quantity:     p.Quantity,
		AvgCost:      p.AvgCost,
		CurrentPrice: p.CurrentPrice,
		RealizedPnl:  p.RealizedPnl,
		LadderStage:  p.LadderStage,
		EntryTime:    p.EntryTime,
		InitialStop:  p.InitialStop,
	}
}

func newScoreRow(runID string, s domain.Score) ScoreRow {
	return ScoreRow{
		RunID:          runID,
		Symbol:         s.Symbol,
		ShortReturn:    s.ShortReturn,
		VolumeSpike:    s.VolumeSpike,
		OBVDelta:       s.OBVDelta,
		SectorStrength: s.SectorStrength,
		RangeCompress:  s.RangeCompress,
		SpreadPenalty:  s.SpreadPenalty,
		Total:          s.Total,
		ComputedAt:     s.ComputedAt,
	}
}

func newRunRow(m domain.RunMetadata) RunRow {
	return RunRow{
		RunID:          m.RunID,
		Mode:           string(m.Mode),
		Start:          m.Start,
		End:            m.End,
		ConfigSnapshot: m.ConfigSnapshot,
		CreatedAt:      m.CreatedAt,
	}
}

func parseSignalKind(s string) domain.SignalKind {
	switch s {
	case "ENTRY":
		return domain.SignalEntry
	case "EXIT":
		return domain.SignalExit
	case "ADD_POSITION":
		return domain.SignalAddPosition
	case "STOP_LOSS":
		return domain.SignalStopLoss
	case "TAKE_PROFIT":
		return domain.SignalTakeProfit
	default:
		return domain.SignalUnknown
	}
}

func parseSide(s string) domain.Side {
	switch s {
	case "BUY":
		return domain.SideBuy
	case "SELL":
		return domain.SideSell
	default:
		return domain.SideUnknown
	}
}
