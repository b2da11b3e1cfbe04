package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/obs"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

// Live consumes a bar subscription and paces OnTimer with a wall-clock
// ticker. The bar path is identical to the backtest pipeline; only the
// clock source differs.
type Live struct {
	cfg  Config
	feed ports.DataFeed
	pipe *pipeline
	seq  *obs.CycleSeq
}

// NewLive wires a live run against a subscribing feed.
func NewLive(cfg Config, feed ports.DataFeed, venue Venue, strat ports.Strategy, repo ports.Repository) (*Live, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Live{
		cfg:  cfg,
		feed: feed,
		pipe: newPipeline(strat, venue, repo, true),
		seq:  obs.NewCycleSeq(0),
	}, nil
}

// Run processes events until the context is cancelled, the process shuts
// down or the feed closes. Stops happen between bar events, never inside
// the pipeline.
func (l *Live) Run(ctx context.Context) (*Report, error) {
	ch, err := l.feed.Subscribe(ctx, l.cfg.Symbols, l.cfg.Timeframe)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe bars")
	}

	started := time.Now().UTC()
	snapshot, _ := json.Marshal(l.cfg)
	meta := domain.NewRunMetadata(domain.RunModeLive, started, time.Time{}, string(snapshot))
	if err := l.pipe.begin(ctx, meta); err != nil {
		return nil, err
	}
	logs.Infof("live run %s started for %v", meta.RunID, l.cfg.Symbols)

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sys.Shutdown():
			logs.Infof("live run %s: shutdown signal", meta.RunID)
			return l.pipe.finish(ctx), nil

		case <-ctx.Done():
			l.pipe.capture(ctx.Err())
			return l.pipe.finish(ctx), nil

		case bar, ok := <-ch:
			if !ok {
				logs.Infof("live run %s: feed closed", meta.RunID)
				return l.pipe.finish(ctx), nil
			}
			cycle := l.seq.Next()
			l.pipe.handleBar(ctx, bar)
			l.publishAccount(ctx, cycle)

		case now := <-ticker.C:
			l.pipe.handleTimer(ctx, now)
		}
	}
}

// publishAccount refreshes the equity and position gauges after a bar.
func (l *Live) publishAccount(ctx context.Context, cycle uint64) {
	account, err := l.pipe.venue.AccountState(ctx)
	if err != nil {
		logs.Errorf("cycle %d: account state: %v", cycle, err)
		return
	}
	obs.PublishAccount(account.Equity(), len(account.Positions))
}
