package runner

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

// Backtest replays a finite bar history through the pipeline in strict
// timestamp order. The same sequence of bars always produces the same
// sequence of signals, orders and fills.
type Backtest struct {
	cfg  Config
	feed ports.DataFeed
	pipe *pipeline
}

// NewBacktest wires a replay run. repo may be nil for throwaway runs.
func NewBacktest(cfg Config, feed ports.DataFeed, venue Venue, strat ports.Strategy, repo ports.Repository) (*Backtest, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Start.Before(cfg.End) {
		return nil, ports.NewConfigError("dateRange", "start %s must precede end %s", cfg.Start.Format("2006-01-02"), cfg.End.Format("2006-01-02"))
	}
	return &Backtest{
		cfg:  cfg,
		feed: feed,
		pipe: newPipeline(strat, venue, repo, false),
	}, nil
}

// Run replays the configured range. Each trading day is closed out with a
// timer at the EOD cutoff before the next day's bars are processed.
func (b *Backtest) Run(ctx context.Context) (*Report, error) {
	bars, err := b.loadBars(ctx)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, errors.Wrapf(ports.ErrDataUnavailable, "%s..%s", b.cfg.Start.Format("2006-01-02"), b.cfg.End.Format("2006-01-02"))
	}

	snapshot, _ := json.Marshal(b.cfg)
	meta := domain.NewRunMetadata(domain.RunModeBacktest, b.cfg.Start, b.cfg.End, string(snapshot))
	if err := b.pipe.begin(ctx, meta); err != nil {
		return nil, err
	}

	var day, lastTs time.Time
	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			b.pipe.capture(err)
			break
		}

		barDay := bar.Timestamp.Truncate(24 * time.Hour)
		if !day.IsZero() && !barDay.Equal(day) {
			b.pipe.handleTimer(ctx, b.cfg.EODCutoff.At(lastTs))
		}
		day = barDay

		b.pipe.handleBar(ctx, bar)
		b.pipe.handleTimer(ctx, bar.Timestamp)
		lastTs = bar.Timestamp
	}
	if !lastTs.IsZero() {
		b.pipe.handleTimer(ctx, b.cfg.EODCutoff.At(lastTs))
	}

	report := b.pipe.finish(ctx)
	logs.Infof("backtest %s done: %d bars, %d signals, %d orders, %d fills, equity %s",
		report.RunID, report.Bars, report.Signals, report.Orders, report.Fills, report.Account.Equity())
	return report, nil
}

// loadBars fetches the range per symbol and merges it in timestamp order
// with a symbol tie-break. A symbol without data is skipped.
func (b *Backtest) loadBars(ctx context.Context) ([]domain.Bar, error) {
	var merged []domain.Bar
	for _, symbol := range b.cfg.Symbols {
		bars, err := b.feed.HistoricalBars(ctx, symbol, b.cfg.Start, b.cfg.End, b.cfg.Timeframe, b.cfg.Session)
		if err != nil {
			if errors.Is(err, ports.ErrDataUnavailable) {
				logs.Infof("no data for %s, skipping", symbol)
				continue
			}
			return nil, errors.Wrapf(err, "load %s", symbol)
		}
		merged = append(merged, bars...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].Symbol < merged[j].Symbol
	})
	return merged, nil
}
