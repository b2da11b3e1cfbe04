// Package analytics implements the Analytics port on top of an in-memory
// bar store. Every computation is a deterministic function of the observed
// bar sequence, which is what backtest/live parity testing relies on.
package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

// Weights blend the warm-up features into a single selection score.
type Weights struct {
	ShortReturn    decimal.Decimal `json:"shortReturn"`
	VolumeSpike    decimal.Decimal `json:"volumeSpike"`
	OBVDelta       decimal.Decimal `json:"obvDelta"`
	SectorStrength decimal.Decimal `json:"sectorStrength"`
	RangeCompress  decimal.Decimal `json:"rangeCompress"`
	SpreadPenalty  decimal.Decimal `json:"spreadPenalty"`
}

// DefaultWeights mirrors the blend used for symbol selection.
func DefaultWeights() Weights {
	return Weights{
		ShortReturn:    decimal.RequireFromString("0.35"),
		VolumeSpike:    decimal.RequireFromString("0.20"),
		OBVDelta:       decimal.RequireFromString("0.15"),
		SectorStrength: decimal.RequireFromString("0.10"),
		RangeCompress:  decimal.RequireFromString("0.10"),
		SpreadPenalty:  decimal.RequireFromString("0.10"),
	}
}

// Config parameterizes the analytics engine.
type Config struct {
	Weights Weights           `json:"weights"`
	Sectors map[string]string `json:"sectors"`

	// UpperBodyPct is the minimum close position inside the bar range for
	// the momentum trigger to fire.
	UpperBodyPct decimal.Decimal `json:"upperBodyPct"`
	// VolumeBreakMult is the volume multiple over the rolling average that
	// confirms a range break.
	VolumeBreakMult decimal.Decimal `json:"volumeBreakMult"`
	// RangeBreakLookback is how many prior bars define the broken range.
	RangeBreakLookback int `json:"rangeBreakLookback"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Weights:            DefaultWeights(),
		UpperBodyPct:       decimal.RequireFromString("0.60"),
		VolumeBreakMult:    decimal.RequireFromString("1.50"),
		RangeBreakLookback: 20,
	}
}

// Engine is a bar-driven Analytics implementation. Bars are appended via
// Observe in timestamp order per symbol.
type Engine struct {
	cfg Config

	mu   sync.RWMutex
	bars map[string][]domain.Bar
}

var _ ports.Analytics = (*Engine)(nil)

// NewEngine creates an empty engine.
func NewEngine(cfg Config) *Engine {
	if cfg.RangeBreakLookback <= 0 {
		cfg.RangeBreakLookback = DefaultConfig().RangeBreakLookback
	}
	if cfg.UpperBodyPct.IsZero() {
		cfg.UpperBodyPct = DefaultConfig().UpperBodyPct
	}
	if cfg.VolumeBreakMult.IsZero() {
		cfg.VolumeBreakMult = DefaultConfig().VolumeBreakMult
	}
	return &Engine{cfg: cfg, bars: make(map[string][]domain.Bar)}
}

// Observe appends a bar to the symbol's history.
func (e *Engine) Observe(bar domain.Bar) {
	e.mu.Lock()
	e.bars[bar.Symbol] = append(e.bars[bar.Symbol], bar)
	e.mu.Unlock()
}

// Reset drops all stored bars. Used between backtest days.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.bars = make(map[string][]domain.Bar)
	e.mu.Unlock()
}

func (e *Engine) window(symbol string, date time.Time, start, end domain.TimeOfDay) []domain.Bar {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []domain.Bar
	for _, bar := range e.bars[symbol] {
		y, m, d := bar.Timestamp.Date()
		dy, dm, dd := date.Date()
		if y != dy || m != dm || d != dd {
			continue
		}
		tod := domain.TimeOfDayOf(bar.Timestamp)
		if tod < start || tod > end {
			continue
		}
		out = append(out, bar)
	}
	return out
}

// WarmupFeatures scores symbols over the selection window. Symbols with no
// bars in the window are omitted from the result.
func (e *Engine) WarmupFeatures(ctx context.Context, date time.Time, symbols []string, start, end domain.TimeOfDay) (map[string]domain.Score, error) {
	scores := make(map[string]domain.Score, len(symbols))

	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	// Sector strength needs every symbol's short return first.
	returns := make(map[string]decimal.Decimal, len(sorted))
	for _, symbol := range sorted {
		bars := e.window(symbol, date, start, end)
		if len(bars) < 2 {
			continue
		}
		first, last := bars[0], bars[len(bars)-1]
		if first.Open.IsZero() {
			continue
		}
		returns[symbol] = last.Close.Sub(first.Open).Div(first.Open)
	}
	sectorReturns := e.sectorReturns(returns)

	for _, symbol := range sorted {
		ret, ok := returns[symbol]
		if !ok {
			continue
		}
		bars := e.window(symbol, date, start, end)
		score := domain.Score{
			Symbol:         symbol,
			ShortReturn:    ret,
			VolumeSpike:    volumeSpike(bars),
			OBVDelta:       obvDelta(bars),
			SectorStrength: sectorReturns[e.cfg.Sectors[symbol]],
			RangeCompress:  rangeCompression(bars),
			SpreadPenalty:  spreadPenalty(bars),
			ComputedAt:     end.At(date),
		}
		w := e.cfg.Weights
		score.Total = score.ShortReturn.Mul(w.ShortReturn).
			Add(score.VolumeSpike.Mul(w.VolumeSpike)).
			Add(score.OBVDelta.Mul(w.OBVDelta)).
			Add(score.SectorStrength.Mul(w.SectorStrength)).
			Add(score.RangeCompress.Mul(w.RangeCompress)).
			Sub(score.SpreadPenalty.Mul(w.SpreadPenalty))
		scores[symbol] = score
	}
	return scores, nil
}

// LeaderScores ranks open positions by performance since entry plus recent
// momentum.
func (e *Engine) LeaderScores(ctx context.Context, symbols []string, date time.Time, now time.Time, entryTimes map[string]time.Time) (map[string]domain.LeaderScore, error) {
	out := make(map[string]domain.LeaderScore, len(symbols))

	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	for _, symbol := range sorted {
		e.mu.RLock()
		bars := e.bars[symbol]
		e.mu.RUnlock()
		if len(bars) == 0 {
			continue
		}

		last := bars[len(bars)-1]
		entry, ok := entryTimes[symbol]
		if !ok {
			continue
		}

		entryClose := bars[0].Close
		for _, bar := range bars {
			if bar.Timestamp.After(entry) {
				break
			}
			entryClose = bar.Close
		}

		score := domain.LeaderScore{Symbol: symbol, ComputedAt: now}
		if entryClose.IsPositive() {
			score.RMultiple = last.Close.Sub(entryClose).Div(entryClose)
		}
		if len(bars) > 5 {
			ref := bars[len(bars)-6].Close
			if ref.IsPositive() {
				score.Momentum = last.Close.Sub(ref).Div(ref)
			}
		}
		score.TotalScore = score.RMultiple.Mul(decimal.RequireFromString("0.7")).
			Add(score.Momentum.Mul(decimal.RequireFromString("0.3")))
		out[symbol] = score
	}
	return out, nil
}

// ATR computes the average true range over the symbol's bars for date.
func (e *Engine) ATR(ctx context.Context, symbol string, date time.Time, window int, timeframe domain.Timeframe) (decimal.Decimal, error) {
	bars := e.dayBars(symbol, date, timeframe)
	if len(bars) < 2 {
		return decimal.Decimal{}, ports.ErrDataUnavailable
	}
	atr := NewATR(window)
	for _, bar := range bars {
		atr.Update(bar)
	}
	return atr.Value(), nil
}

// EMA computes the exponential moving average of closes for date.
func (e *Engine) EMA(ctx context.Context, symbol string, date time.Time, window int, timeframe domain.Timeframe) (decimal.Decimal, error) {
	bars := e.dayBars(symbol, date, timeframe)
	if len(bars) == 0 {
		return decimal.Decimal{}, ports.ErrDataUnavailable
	}
	ema := NewEMA(window)
	for _, bar := range bars {
		ema.Update(bar.Close)
	}
	return ema.Value(), nil
}

// OBV computes on-balance volume over the symbol's bars for date.
func (e *Engine) OBV(ctx context.Context, symbol string, date time.Time, timeframe domain.Timeframe) (decimal.Decimal, error) {
	bars := e.dayBars(symbol, date, timeframe)
	if len(bars) == 0 {
		return decimal.Decimal{}, ports.ErrDataUnavailable
	}
	obv := NewOBV()
	for _, bar := range bars {
		obv.Update(bar)
	}
	return obv.Value(), nil
}

// EntryTriggers evaluates the two independent entry conditions on bar.
// Keys: "momentum" (EMA alignment + upper-body close) and "range_break"
// (volume-confirmed break of the recent high).
func (e *Engine) EntryTriggers(ctx context.Context, symbol string, bar domain.Bar, ema9, ema30 decimal.Decimal) (map[string]bool, error) {
	triggers := map[string]bool{
		"momentum":    false,
		"range_break": false,
	}

	if ema9.GreaterThan(ema30) && bar.ClosePositionInRange().GreaterThanOrEqual(e.cfg.UpperBodyPct) {
		triggers["momentum"] = true
	}

	e.mu.RLock()
	bars := e.bars[symbol]
	e.mu.RUnlock()

	lookback := e.cfg.RangeBreakLookback
	if len(bars) > lookback {
		window := bars[len(bars)-lookback-1 : len(bars)-1]
		high := window[0].High
		var volSum int64
		for _, b := range window {
			if b.High.GreaterThan(high) {
				high = b.High
			}
			volSum += b.Volume
		}
		avgVol := decimal.NewFromInt(volSum).Div(decimal.NewFromInt(int64(len(window))))
		volOK := decimal.NewFromInt(bar.Volume).GreaterThanOrEqual(avgVol.Mul(e.cfg.VolumeBreakMult))
		if bar.Close.GreaterThan(high) && volOK {
			triggers["range_break"] = true
		}
	}
	return triggers, nil
}

func (e *Engine) dayBars(symbol string, date time.Time, timeframe domain.Timeframe) []domain.Bar {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []domain.Bar
	dy, dm, dd := date.Date()
	for _, bar := range e.bars[symbol] {
		y, m, d := bar.Timestamp.Date()
		if y != dy || m != dm || d != dd {
			continue
		}
		if timeframe != "" && bar.Timeframe != "" && bar.Timeframe != timeframe {
			continue
		}
		out = append(out, bar)
	}
	return out
}

func (e *Engine) sectorReturns(returns map[string]decimal.Decimal) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for symbol, ret := range returns {
		sector := e.cfg.Sectors[symbol]
		sums[sector] = sums[sector].Add(ret)
		counts[sector]++
	}
	out := make(map[string]decimal.Decimal, len(sums))
	for sector, sum := range sums {
		out[sector] = sum.Div(decimal.NewFromInt(counts[sector]))
	}
	return out
}

func volumeSpike(bars []domain.Bar) decimal.Decimal {
	if len(bars) == 0 {
		return decimal.Decimal{}
	}
	recent := bars
	if len(bars) > 5 {
		recent = bars[len(bars)-5:]
	}
	var total, recentTotal int64
	for _, b := range bars {
		total += b.Volume
	}
	for _, b := range recent {
		recentTotal += b.Volume
	}
	if total == 0 {
		return decimal.Decimal{}
	}
	avg := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(len(bars))))
	recentAvg := decimal.NewFromInt(recentTotal).Div(decimal.NewFromInt(int64(len(recent))))
	if avg.IsZero() {
		return decimal.Decimal{}
	}
	return recentAvg.Div(avg).Sub(decimal.NewFromInt(1))
}

func obvDelta(bars []domain.Bar) decimal.Decimal {
	obv := NewOBV()
	var totalVol int64
	for _, b := range bars {
		obv.Update(b)
		totalVol += b.Volume
	}
	if totalVol == 0 {
		return decimal.Decimal{}
	}
	return obv.Value().Div(decimal.NewFromInt(totalVol))
}

// rangeCompression rewards tightening ranges: the ratio of early average
// range to late average range, minus one, clamped at zero.
func rangeCompression(bars []domain.Bar) decimal.Decimal {
	if len(bars) < 4 {
		return decimal.Decimal{}
	}
	half := len(bars) / 2
	early := avgRange(bars[:half])
	late := avgRange(bars[half:])
	if late.IsZero() {
		return decimal.Decimal{}
	}
	v := early.Div(late).Sub(decimal.NewFromInt(1))
	if v.IsNegative() {
		return decimal.Decimal{}
	}
	return v
}

func avgRange(bars []domain.Bar) decimal.Decimal {
	var sum decimal.Decimal
	for _, b := range bars {
		sum = sum.Add(b.Range())
	}
	return sum.Div(decimal.NewFromInt(int64(len(bars))))
}

func spreadPenalty(bars []domain.Bar) decimal.Decimal {
	var sum decimal.Decimal
	var n int64
	for _, b := range bars {
		if b.Close.IsZero() {
			continue
		}
		sum = sum.Add(b.Range().Div(b.Close))
		n++
	}
	if n == 0 {
		return decimal.Decimal{}
	}
	return sum.Div(decimal.NewFromInt(n))
}
