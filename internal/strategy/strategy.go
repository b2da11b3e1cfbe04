// Package strategy implements the Top-3 Concentrate & Pyramid intraday
// session: score the universe during the opening window, enter the top
// ranked symbols on confirmed triggers, concentrate into the leader, and
// pyramid the leader at fixed R-multiples until the EOD cutoff flattens
// everything.
package strategy

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

const (
	reasonEODFlat    = "EOD flat"
	reasonRotation   = "rotation - no leader"
	reasonNonLeader  = "non-leader exit"
	reasonStopHit    = "stop hit"
	reasonPyramidAdd = "pyramid add"
)

// StopModeDefault is the stop mode attached to fresh entries.
const StopModeDefault = domain.StopModeATR

// TopThree drives one intraday cycle per trading date. All decisions are a
// pure function of the observed bar/timer sequence, so replaying the same
// inputs reproduces the same signals.
type TopThree struct {
	cfg       Config
	analytics ports.Analytics

	state SessionState
	day   time.Time

	universe map[string]bool
	selected map[string]bool

	positions    map[string]*domain.Position
	entryTimes   map[string]time.Time
	entryPrices  map[string]decimal.Decimal
	pendingStops map[string]decimal.Decimal
	exiting      map[string]bool
	nextAddStage map[string]int

	selectionDone bool
	eodDone       bool
	nextRotation  time.Time
	realizedPnl   decimal.Decimal
}

var _ ports.Strategy = (*TopThree)(nil)

// NewTopThree builds the session strategy.
func NewTopThree(cfg Config, analytics ports.Analytics) (*TopThree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &TopThree{cfg: cfg, analytics: analytics}
	s.reset(time.Time{})
	return s, nil
}

// State returns the current session state.
func (s *TopThree) State() SessionState {
	return s.state
}

// Positions returns a copy of the open position book.
func (s *TopThree) Positions() map[string]domain.Position {
	out := make(map[string]domain.Position, len(s.positions))
	for sym, p := range s.positions {
		out[sym] = *p
	}
	return out
}

// Balance is the sizing balance: initial balance plus realized pnl of
// closed positions.
func (s *TopThree) Balance() decimal.Decimal {
	return s.cfg.InitialBalance.Add(s.realizedPnl)
}

func (s *TopThree) reset(day time.Time) {
	s.state = StateWarmup
	s.day = day
	s.universe = make(map[string]bool)
	s.selected = make(map[string]bool)
	s.positions = make(map[string]*domain.Position)
	s.entryTimes = make(map[string]time.Time)
	s.entryPrices = make(map[string]decimal.Decimal)
	s.pendingStops = make(map[string]decimal.Decimal)
	s.exiting = make(map[string]bool)
	s.nextAddStage = make(map[string]int)
	s.selectionDone = false
	s.eodDone = false
	s.nextRotation = time.Time{}
}

// resetCycle clears selection and ladder state after a rotation so a fresh
// selection can run within the same day. Open positions were already exited.
func (s *TopThree) resetCycle() {
	s.selected = make(map[string]bool)
	s.pendingStops = make(map[string]decimal.Decimal)
	s.nextAddStage = make(map[string]int)
	s.selectionDone = false
	s.nextRotation = time.Time{}
	s.state = StateWarmup
}

// OnBar folds one bar into the session and returns any resulting signals.
func (s *TopThree) OnBar(ctx context.Context, bar domain.Bar) ([]domain.Signal, error) {
	if err := bar.Validate(); err != nil {
		return nil, errors.Wrapf(err, "bar %s@%s", bar.Symbol, bar.Timestamp)
	}

	day := bar.Timestamp.Truncate(24 * time.Hour)
	if !day.Equal(s.day) {
		s.reset(day)
	}

	s.universe[bar.Symbol] = true

	var signals []domain.Signal
	if sig, ok := s.markAndCheckStop(bar); ok {
		signals = append(signals, sig)
	}

	if s.eodDone {
		return signals, nil
	}

	tod := domain.TimeOfDayOf(bar.Timestamp)
	if !s.selectionDone && tod >= s.cfg.SelectionEnd {
		s.runSelection(ctx, bar.Timestamp)
	}

	if sig, ok := s.tryEntry(ctx, bar); ok {
		signals = append(signals, sig)
	}

	signals = append(signals, s.consolidate(ctx, bar.Timestamp)...)
	if sig, ok := s.tryPyramid(bar); ok {
		signals = append(signals, sig)
	}
	return signals, nil
}

// OnFill folds an execution into the position book.
func (s *TopThree) OnFill(ctx context.Context, fill domain.Fill) error {
	pos, ok := s.positions[fill.Symbol]
	if !ok {
		if fill.Side == domain.SideSell {
			return errors.Wrap(ports.ErrOrderNotFound, "sell fill without position "+fill.Symbol)
		}
		pos = &domain.Position{Symbol: fill.Symbol}
		s.positions[fill.Symbol] = pos
	}

	opening := pos.Quantity == 0 && fill.Side == domain.SideBuy
	adding := pos.Quantity > 0 && fill.Side == domain.SideBuy

	pos.ApplyFill(fill)

	switch {
	case opening:
		pos.EntryTime = fill.Timestamp
		s.entryTimes[fill.Symbol] = fill.Timestamp
		s.entryPrices[fill.Symbol] = fill.Price
		if stop, ok := s.pendingStops[fill.Symbol]; ok {
			pos.InitialStop = stop
			pos.Stops = []domain.StopLevel{{StopPrice: stop, Mode: StopModeDefault}}
			delete(s.pendingStops, fill.Symbol)
		}
		if s.state == StateSelected || s.state == StateWarmup {
			s.state = StateEntered
		}
	case adding:
		pos.LadderStage++
	}

	if pos.Quantity == 0 {
		s.realizedPnl = s.realizedPnl.Add(pos.RealizedPnl)
		delete(s.positions, fill.Symbol)
		delete(s.entryTimes, fill.Symbol)
		delete(s.entryPrices, fill.Symbol)
		delete(s.exiting, fill.Symbol)
		delete(s.nextAddStage, fill.Symbol)
	}
	return nil
}

// OnTimer runs the EOD cutoff and the rotation check.
func (s *TopThree) OnTimer(ctx context.Context, now time.Time) ([]domain.Signal, error) {
	if s.eodDone {
		return nil, nil
	}

	if domain.TimeOfDayOf(now) >= s.cfg.EODCutoff {
		signals := s.exitAll(now, domain.SignalExit, reasonEODFlat)
		s.eodDone = true
		s.state = StateFlat
		return signals, nil
	}

	if s.nextRotation.IsZero() || now.Before(s.nextRotation) {
		return nil, nil
	}
	for !s.nextRotation.After(now) {
		s.nextRotation = s.nextRotation.Add(s.cfg.RotationInterval)
	}

	if s.hasLeader() {
		return nil, nil
	}

	signals := s.exitAll(now, domain.SignalExit, reasonRotation)
	s.state = StateRotating
	s.resetCycle()
	if len(signals) > 0 {
		logs.Infof("rotation at %s: no position reached %s R, exiting %d", now.Format("15:04"), s.cfg.LeaderRThreshold, len(signals))
	}
	return signals, nil
}

// markAndCheckStop updates the open position for bar's symbol: marks the
// price, tightens the trailing stop, and emits a stop-loss exit when the
// close crosses the stop.
func (s *TopThree) markAndCheckStop(bar domain.Bar) (domain.Signal, bool) {
	pos, ok := s.positions[bar.Symbol]
	if !ok || s.exiting[bar.Symbol] {
		return domain.Signal{}, false
	}

	pos.MarkPrice(bar.Close)
	if len(pos.Stops) > 0 && s.cfg.TrailingStopPct.IsPositive() {
		trail := bar.Close.Mul(decimal.NewFromInt(1).Sub(s.cfg.TrailingStopPct))
		pos.Stops[0].Tighten(trail, pos.IsLong())
	}

	if len(pos.Stops) == 0 || !pos.IsLong() {
		return domain.Signal{}, false
	}
	if bar.Close.GreaterThan(pos.Stops[0].StopPrice) {
		return domain.Signal{}, false
	}

	s.exiting[bar.Symbol] = true
	delete(s.selected, bar.Symbol)
	return domain.NewSignal(
		bar.Symbol, domain.SignalStopLoss, bar.Close, pos.Quantity, reasonStopHit, 1.0, bar.Timestamp,
	), true
}

// runSelection scores the warm-up window once and keeps the top N symbols.
// A scoring failure leaves the selection empty for the cycle.
func (s *TopThree) runSelection(ctx context.Context, now time.Time) {
	s.selectionDone = true
	s.state = StateSelected
	s.nextRotation = now.Add(s.cfg.RotationInterval)

	symbols := sortedKeys(s.universe)
	scores, err := s.analytics.WarmupFeatures(ctx, s.day, symbols, s.cfg.SelectionStart, s.cfg.SelectionEnd)
	if err != nil {
		logs.Errorf("warmup scoring failed, selecting nothing: %v", err)
		return
	}

	for _, sym := range SelectTop(scores, s.cfg.TopN) {
		s.selected[sym] = true
	}
	logs.Infof("selected %v from %d symbols", sortedKeys(s.selected), len(symbols))
}

// SelectTop ranks scores by total descending and returns the top n symbols.
// Equal totals break lexicographically so ranking is deterministic.
func SelectTop(scores map[string]domain.Score, n int) []string {
	ranked := make([]domain.Score, 0, len(scores))
	for _, sc := range scores {
		ranked = append(ranked, sc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Total.Equal(ranked[j].Total) {
			return ranked[i].Total.GreaterThan(ranked[j].Total)
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, 0, n)
	for _, sc := range ranked[:n] {
		out = append(out, sc.Symbol)
	}
	return out
}

// tryEntry emits a risk-sized entry for a selected symbol on a confirmed
// trigger. Both triggers firing together raise the confidence.
func (s *TopThree) tryEntry(ctx context.Context, bar domain.Bar) (domain.Signal, bool) {
	if !s.selectionDone || !s.selected[bar.Symbol] {
		return domain.Signal{}, false
	}
	if _, open := s.positions[bar.Symbol]; open {
		return domain.Signal{}, false
	}
	if _, pending := s.pendingStops[bar.Symbol]; pending {
		return domain.Signal{}, false
	}

	ema9, err := s.analytics.EMA(ctx, bar.Symbol, s.day, 9, bar.Timeframe)
	if err != nil {
		return domain.Signal{}, false
	}
	ema30, err := s.analytics.EMA(ctx, bar.Symbol, s.day, 30, bar.Timeframe)
	if err != nil {
		return domain.Signal{}, false
	}
	triggers, err := s.analytics.EntryTriggers(ctx, bar.Symbol, bar, ema9, ema30)
	if err != nil {
		return domain.Signal{}, false
	}

	momentum := triggers["momentum"]
	rangeBreak := triggers["range_break"]
	if !momentum && !rangeBreak {
		return domain.Signal{}, false
	}

	confidence := 0.6
	reason := "momentum"
	switch {
	case momentum && rangeBreak:
		confidence = 0.8
		reason = "momentum+range_break"
	case rangeBreak:
		reason = "range_break"
	}

	stop := bar.Close.Mul(decimal.NewFromInt(1).Sub(s.cfg.InitialStopPct))
	qty, ok := s.entrySize(bar.Close, stop)
	if !ok {
		return domain.Signal{}, false
	}

	s.pendingStops[bar.Symbol] = stop
	return domain.NewSignal(
		bar.Symbol, domain.SignalEntry, bar.Close, qty, reason, confidence, bar.Timestamp,
	), true
}

// consolidate exits every open position that is not the current leader.
func (s *TopThree) consolidate(ctx context.Context, now time.Time) []domain.Signal {
	open := s.openSymbols()
	if len(open) < 2 {
		return nil
	}

	scores, err := s.analytics.LeaderScores(ctx, open, s.day, now, s.entryTimes)
	if err != nil {
		logs.Errorf("leader scoring failed, keeping all positions: %v", err)
		return nil
	}

	leader := ""
	var best decimal.Decimal
	for _, sym := range open {
		sc, ok := scores[sym]
		if !ok {
			continue
		}
		if leader == "" || sc.TotalScore.GreaterThan(best) {
			leader, best = sym, sc.TotalScore
		}
	}
	if leader == "" {
		return nil
	}

	var signals []domain.Signal
	for _, sym := range open {
		if sym == leader {
			continue
		}
		pos := s.positions[sym]
		s.exiting[sym] = true
		delete(s.selected, sym)
		signals = append(signals, domain.NewSignal(
			sym, domain.SignalExit, pos.CurrentPrice, pos.Quantity, reasonNonLeader, 1.0, now,
		))
	}
	if len(signals) > 0 {
		s.state = StateConsolidating
	}
	return signals
}

// tryPyramid adds to the single remaining position when its R-multiple
// crosses the next ladder level. Each level fires at most once.
func (s *TopThree) tryPyramid(bar domain.Bar) (domain.Signal, bool) {
	open := s.openSymbols()
	if len(open) != 1 || open[0] != bar.Symbol || s.exiting[bar.Symbol] {
		return domain.Signal{}, false
	}
	pos := s.positions[bar.Symbol]

	stage := s.nextAddStage[bar.Symbol]
	if stage >= len(s.cfg.AddLevels) {
		return domain.Signal{}, false
	}
	if s.rMultiple(bar.Symbol).LessThan(s.cfg.AddLevels[stage]) {
		return domain.Signal{}, false
	}

	qty := decimal.NewFromInt(pos.Quantity).Mul(s.cfg.AddFraction).Floor().IntPart()
	if qty < 1 {
		return domain.Signal{}, false
	}

	s.nextAddStage[bar.Symbol] = stage + 1
	s.state = StatePyramiding
	return domain.NewSignal(
		bar.Symbol, domain.SignalAddPosition, bar.Close, qty, reasonPyramidAdd, 1.0, bar.Timestamp,
	), true
}

// exitAll emits a full exit for every open position, sorted by symbol.
func (s *TopThree) exitAll(now time.Time, kind domain.SignalKind, reason string) []domain.Signal {
	var signals []domain.Signal
	for _, sym := range s.openSymbols() {
		if s.exiting[sym] {
			continue
		}
		pos := s.positions[sym]
		if !pos.CurrentPrice.IsPositive() {
			continue
		}
		s.exiting[sym] = true
		delete(s.selected, sym)
		signals = append(signals, domain.NewSignal(
			sym, kind, pos.CurrentPrice, pos.Quantity, reason, 1.0, now,
		))
	}
	return signals
}

// hasLeader reports whether any open position has proven itself past the
// rotation threshold.
func (s *TopThree) hasLeader() bool {
	for _, sym := range s.openSymbols() {
		if !s.rMultiple(sym).LessThan(s.cfg.LeaderRThreshold) {
			return true
		}
	}
	return false
}

// rMultiple measures open profit against the original entry price and
// initial stop. The entry price is pinned at the opening fill so pyramid
// adds do not move the ladder.
func (s *TopThree) rMultiple(sym string) decimal.Decimal {
	pos, ok := s.positions[sym]
	if !ok || !pos.IsOpen() {
		return decimal.Decimal{}
	}
	entry, ok := s.entryPrices[sym]
	if !ok || pos.InitialStop.IsZero() {
		return pos.RMultiple()
	}
	risk := entry.Sub(pos.InitialStop)
	if !risk.IsPositive() {
		return decimal.Decimal{}
	}
	return pos.CurrentPrice.Sub(entry).Div(risk)
}

// entrySize computes floor(balance * riskPerTrade / stopDistance) clamped
// to the configured share bounds.
func (s *TopThree) entrySize(price, stop decimal.Decimal) (int64, bool) {
	if !price.IsPositive() {
		return 0, false
	}
	dist := price.Sub(stop)
	if !dist.IsPositive() {
		return 0, false
	}
	shares := s.Balance().Mul(s.cfg.RiskPerTrade).Div(dist).Floor().IntPart()
	if shares < s.cfg.MinShares {
		return 0, false
	}
	if s.cfg.MaxShares > 0 && shares > s.cfg.MaxShares {
		shares = s.cfg.MaxShares
	}
	return shares, true
}

func (s *TopThree) openSymbols() []string {
	syms := make([]string, 0, len(s.positions))
	for sym, p := range s.positions {
		if p.IsOpen() {
			syms = append(syms, sym)
		}
	}
	sort.Strings(syms)
	return syms
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
