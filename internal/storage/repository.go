package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/pkg/conn"
)

const batchSize = 500

// Repository implements ports.Repository over PostgreSQL.
type Repository struct {
	db *gorm.DB
}

var _ ports.Repository = (*Repository)(nil)

// NewRepository wraps a connected client.
func NewRepository(client *conn.Client) *Repository {
	return &Repository{db: client.DB()}
}

// Migrate creates or updates every table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&BarRow{},
		&SignalRow{},
		&OrderRow{},
		&FillRow{},
		&PositionRow{},
		&ScoreRow{},
		&RunRow{},
		&RunMetricsRow{},
	)
}

func (r *Repository) SaveBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]BarRow, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, newBarRow(b))
	}
	return errors.Wrap(r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error, "save bars")
}

func (r *Repository) SaveSignals(ctx context.Context, runID string, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	rows := make([]SignalRow, 0, len(signals))
	for _, s := range signals {
		rows = append(rows, newSignalRow(runID, s))
	}
	return errors.Wrap(r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error, "save signals")
}

func (r *Repository) SaveOrders(ctx context.Context, runID string, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	rows := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, newOrderRow(runID, o))
	}
	return errors.Wrap(r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error, "save orders")
}

func (r *Repository) SaveFills(ctx context.Context, runID string, fills []domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}
	rows := make([]FillRow, 0, len(fills))
	for _, f := range fills {
		rows = append(rows, newFillRow(runID, f))
	}
	return errors.Wrap(r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error, "save fills")
}

func (r *Repository) SavePositions(ctx context.Context, runID string, positions []domain.Position) error {
	if len(positions) == 0 {
		return nil
	}
	rows := make([]PositionRow, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, newPositionRow(runID, p))
	}
	return errors.Wrap(r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error, "save positions")
}

func (r *Repository) SaveScores(ctx context.Context, runID string, scores []domain.Score) error {
	if len(scores) == 0 {
		return nil
	}
	rows := make([]ScoreRow, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, newScoreRow(runID, s))
	}
	return errors.Wrap(r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error, "save scores")
}

func (r *Repository) SaveRunMetadata(ctx context.Context, meta domain.RunMetadata) error {
	row := newRunRow(meta)
	return errors.Wrap(r.db.WithContext(ctx).Create(&row).Error, "save run metadata")
}

// SaveRunMetrics persists the computed headline metrics for a run. Not part
// of the Repository port; the scheduler uses it when available.
func (r *Repository) SaveRunMetrics(ctx context.Context, m ports.RunMetrics) error {
	row := RunMetricsRow{
		RunID:       m.RunID,
		TotalReturn: m.TotalReturn,
		SharpeRatio: m.SharpeRatio,
		MaxDrawdown: m.MaxDrawdown,
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(&row).Error, "save run metrics")
}

func (r *Repository) LoadBars(ctx context.Context, symbol string, start, end time.Time, timeframe domain.Timeframe) ([]domain.Bar, error) {
	var rows []BarRow
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp < ?", symbol, string(timeframe), start, end).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load bars %s", symbol)
	}

	bars := make([]domain.Bar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, row.toDomain())
	}
	return bars, nil
}

func (r *Repository) LoadSignals(ctx context.Context, runID string) ([]domain.Signal, error) {
	var rows []SignalRow
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load signals %s", runID)
	}

	signals := make([]domain.Signal, 0, len(rows))
	for _, row := range rows {
		signals = append(signals, row.toDomain())
	}
	return signals, nil
}

// PnlSeries reconstructs the realized cash curve of a run from its fills:
// sells add value, buys subtract, fees always subtract. Open positions are
// not marked to market.
func (r *Repository) PnlSeries(ctx context.Context, runID string) ([]ports.PnlPoint, error) {
	var rows []FillRow
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load fills %s", runID)
	}

	points := make([]ports.PnlPoint, 0, len(rows))
	running := decimal.Decimal{}
	for _, row := range rows {
		value := row.Price.Mul(decimal.NewFromInt(row.Quantity))
		if parseSide(row.Side) == domain.SideSell {
			running = running.Add(value)
		} else {
			running = running.Sub(value)
		}
		running = running.Sub(row.Fee)
		points = append(points, ports.PnlPoint{
			Timestamp: row.Timestamp,
			Pnl:       running,
			Balance:   running,
		})
	}
	return points, nil
}

func (r *Repository) RunMetrics(ctx context.Context, runID string) (ports.RunMetrics, error) {
	out := ports.RunMetrics{RunID: runID}

	var metricsRow RunMetricsRow
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&metricsRow).Error
	switch {
	case err == nil:
		out.TotalReturn = metricsRow.TotalReturn
		out.SharpeRatio = metricsRow.SharpeRatio
		out.MaxDrawdown = metricsRow.MaxDrawdown
	case errors.Is(err, gorm.ErrRecordNotFound):
		// counts still apply
	default:
		return out, errors.Wrapf(err, "load run metrics %s", runID)
	}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&SignalRow{}, &out.SignalCount},
		{&OrderRow{}, &out.OrderCount},
		{&FillRow{}, &out.FillCount},
	}
	for _, c := range counts {
		if err := r.db.WithContext(ctx).Model(c.model).Where("run_id = ?", runID).Count(c.dst).Error; err != nil {
			return out, errors.Wrapf(err, "count for %s", runID)
		}
	}
	return out, nil
}
