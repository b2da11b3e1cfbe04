// Package runner drives the strategy over a bar stream. The backtest loop
// replays a finite history and the live loop consumes a subscription plus a
// wall-clock ticker, but both feed the same per-bar pipeline so a replayed
// day and a live day produce the same signal sequence.
package runner

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/obs"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

const defaultTickInterval = time.Minute

// Venue is the execution side of a run: the Broker port plus the marking
// and fill-draining hooks of the simulated venue.
type Venue interface {
	ports.Broker
	MarkPrice(symbol string, price decimal.Decimal, ts time.Time) []domain.Fill
	Fills() []domain.Fill
}

// Config parameterizes one run.
type Config struct {
	Symbols   []string
	Timeframe domain.Timeframe
	Start     time.Time
	End       time.Time
	EODCutoff domain.TimeOfDay
	Session   *ports.SessionWindow

	// TickInterval paces OnTimer in live mode.
	TickInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeframe == "" {
		c.Timeframe = domain.TimeframeMinute
	}
	if c.EODCutoff == 0 {
		c.EODCutoff = domain.MustTimeOfDay("15:15")
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	return c
}

// Validate rejects configs that cannot drive a run.
func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return ports.NewConfigError("symbols", "at least one symbol required")
	}
	return nil
}

// Report is the outcome of one run.
type Report struct {
	RunID   string
	Bars    int
	Signals int
	Orders  int
	Fills   int
	Account domain.AccountState
	Metrics obs.Snapshot
	Errors  []error
}

// pipeline is the mode-independent bar handling path: mark the venue, let
// the strategy react, translate signals into market orders and feed the
// resulting fills back into the strategy.
type pipeline struct {
	strat   ports.Strategy
	venue   Venue
	repo    ports.Repository
	metrics *obs.Metrics

	runID   string
	publish bool
	report  Report
}

func newPipeline(strat ports.Strategy, venue Venue, repo ports.Repository, publish bool) *pipeline {
	return &pipeline{
		strat:   strat,
		venue:   venue,
		repo:    repo,
		metrics: obs.NewMetrics(),
		publish: publish,
	}
}

// begin persists run metadata and stamps the report.
func (p *pipeline) begin(ctx context.Context, meta domain.RunMetadata) error {
	p.runID = meta.RunID
	p.report.RunID = meta.RunID
	if p.repo == nil {
		return nil
	}
	if err := p.repo.SaveRunMetadata(ctx, meta); err != nil {
		return errors.Wrap(err, "save run metadata")
	}
	return nil
}

// handleBar runs the full per-bar pipeline.
func (p *pipeline) handleBar(ctx context.Context, bar domain.Bar) {
	p.venue.MarkPrice(bar.Symbol, bar.Close, bar.Timestamp)
	p.drainFills(ctx)

	started := time.Now()
	signals, err := p.strat.OnBar(ctx, bar)
	p.metrics.ObserveBar(time.Since(started))
	if p.publish {
		obs.PublishBar()
	}
	p.report.Bars++

	if err != nil {
		p.metrics.IncBarError()
		p.capture(errors.Wrapf(err, "on bar %s@%s", bar.Symbol, bar.Timestamp.Format(time.RFC3339)))
		return
	}
	p.dispatch(ctx, signals)
}

// handleTimer forwards a clock edge to the strategy and dispatches whatever
// it decides to unwind.
func (p *pipeline) handleTimer(ctx context.Context, now time.Time) {
	signals, err := p.strat.OnTimer(ctx, now)
	if err != nil {
		p.capture(errors.Wrapf(err, "on timer %s", now.Format(time.RFC3339)))
		return
	}
	p.dispatch(ctx, signals)
}

// dispatch persists signals, places one market order per valid signal and
// feeds resulting fills back into the strategy.
func (p *pipeline) dispatch(ctx context.Context, signals []domain.Signal) {
	if len(signals) == 0 {
		return
	}
	p.report.Signals += len(signals)
	for _, sig := range signals {
		p.metrics.IncSignal(sig.Kind)
		if p.publish {
			obs.PublishSignal(sig.Kind)
		}
	}
	if p.repo != nil {
		if err := p.repo.SaveSignals(ctx, p.runID, signals); err != nil {
			p.capture(errors.Wrap(err, "persist signals"))
		}
	}

	var orders []domain.Order
	for _, sig := range signals {
		if err := sig.Validate(); err != nil {
			p.metrics.IncOrderDropped()
			logs.Infof("drop signal %s %s: %v", sig.Kind, sig.Symbol, err)
			continue
		}

		intent := domain.OrderIntent{
			Symbol:   sig.Symbol,
			Side:     sig.Side(),
			Quantity: sig.Quantity,
			Type:     domain.OrderTypeMarket,
			SignalID: sig.ID,
		}
		started := time.Now()
		order, err := p.venue.PlaceOrder(ctx, intent)
		if err != nil {
			p.metrics.IncOrderDropped()
			logs.Errorf("order for %s %s rejected: %v", sig.Kind, sig.Symbol, err)
			continue
		}
		p.metrics.ObserveOrderFlow(time.Since(started))
		p.metrics.IncOrderPlaced()
		if p.publish {
			obs.PublishOrder(order.Side)
		}
		orders = append(orders, *order)
	}
	p.report.Orders += len(orders)
	if p.repo != nil && len(orders) > 0 {
		if err := p.repo.SaveOrders(ctx, p.runID, orders); err != nil {
			p.capture(errors.Wrap(err, "persist orders"))
		}
	}

	p.drainFills(ctx)
}

// drainFills applies every execution the venue produced since the last
// drain: strategy first, persistence after.
func (p *pipeline) drainFills(ctx context.Context) {
	fills := p.venue.Fills()
	if len(fills) == 0 {
		return
	}
	p.report.Fills += len(fills)
	for _, fill := range fills {
		p.metrics.IncFill()
		if p.publish {
			obs.PublishFill(fill.Side)
		}
		if err := p.strat.OnFill(ctx, fill); err != nil {
			p.capture(errors.Wrapf(err, "fill %s %s", fill.Side, fill.Symbol))
		}
	}
	if p.repo != nil {
		if err := p.repo.SaveFills(ctx, p.runID, fills); err != nil {
			p.capture(errors.Wrap(err, "persist fills"))
		}
	}
}

// finish snapshots the account and persists final positions.
func (p *pipeline) finish(ctx context.Context) *Report {
	account, err := p.venue.AccountState(ctx)
	if err != nil {
		p.capture(errors.Wrap(err, "account state"))
	}
	p.report.Account = account

	if p.repo != nil && len(account.Positions) > 0 {
		if err := p.repo.SavePositions(ctx, p.runID, account.Positions); err != nil {
			p.capture(errors.Wrap(err, "persist positions"))
		}
	}

	p.report.Metrics = p.metrics.Snapshot()
	report := p.report
	return &report
}

func (p *pipeline) capture(err error) {
	p.report.Errors = append(p.report.Errors, err)
}
