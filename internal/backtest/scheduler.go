package backtest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/algo"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/analytics"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

var ErrNoChunkData = errors.New("backtest: no data for chunk")

const memorySampleEvery = 8

// ChunkResult records the outcome of one chunk.
type ChunkResult struct {
	Start   time.Time
	End     time.Time
	Bars    int
	Signals int
	Errors  []error
}

// Result is the full run outcome.
type Result struct {
	RunID          string
	FinalBalance   decimal.Decimal
	BalanceHistory []decimal.Decimal
	Performance    analytics.PerfSummary
	Memory         MemoryStats
	Chunks         []ChunkResult
	Errors         []error
	Duration       time.Duration
}

// runMetricsSaver is the optional persistence extension for headline
// metrics; satisfied by the storage repository.
type runMetricsSaver interface {
	SaveRunMetrics(ctx context.Context, m ports.RunMetrics) error
}

// Scheduler chunks the date range, computes signals in parallel per chunk
// and applies portfolio effects on a single sequential path.
type Scheduler struct {
	cfg     Config
	feed    ports.DataFeed
	manager *algo.Manager
	repo    ports.Repository

	cache *barCache
	mem   *MemoryMonitor
}

// NewScheduler validates cfg against the manager's registry. repo may be
// nil for runs that do not persist.
func NewScheduler(cfg Config, feed ports.DataFeed, manager *algo.Manager, repo ports.Repository) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, name := range cfg.Algorithms {
		if !manager.IsActive(name) {
			return nil, ports.NewConfigError("algorithms", "%s is not registered and active", name)
		}
	}
	return &Scheduler{
		cfg:     cfg,
		feed:    feed,
		manager: manager,
		repo:    repo,
		cache:   newBarCache(),
		mem:     NewMemoryMonitor(cfg.MemoryCeilingMB, memorySampleEvery),
	}, nil
}

// Run executes the whole backtest. Chunk failures are captured in the
// result; only context cancellation and persistence setup abort early.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	snapshot, _ := json.Marshal(s.cfg)
	meta := domain.NewRunMetadata(domain.RunModeBacktest, s.cfg.Start, s.cfg.End, string(snapshot))
	if s.repo != nil {
		if err := s.repo.SaveRunMetadata(ctx, meta); err != nil {
			return nil, errors.Wrap(err, "save run metadata")
		}
	}

	result := &Result{RunID: meta.RunID}
	balance := s.cfg.InitialBalance
	result.BalanceHistory = append(result.BalanceHistory, balance)
	positions := make(map[string]domain.Position)

	for _, chunk := range s.chunks() {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}

		cr := ChunkResult{Start: chunk.start, End: chunk.end}
		bars, loadErrs := s.loadChunk(ctx, chunk)
		cr.Errors = append(cr.Errors, loadErrs...)
		cr.Bars = len(bars)
		if len(bars) == 0 {
			cr.Errors = append(cr.Errors, errors.Wrapf(ErrNoChunkData, "%s..%s", chunk.start.Format("2006-01-02"), chunk.end.Format("2006-01-02")))
			result.Chunks = append(result.Chunks, cr)
			continue
		}

		if s.mem.Observe() {
			s.cache.Clear()
		}

		actx := &algo.Context{
			TradingDate:    chunk.start,
			Now:            chunk.end,
			Positions:      positions,
			AccountBalance: balance,
			RiskPerTrade:   s.cfg.RiskPerTrade,
			MaxPositions:   s.cfg.MaxPositions,
		}
		var signals []domain.Signal
		for _, res := range s.manager.ExecuteAlgorithms(ctx, bars, actx) {
			cr.Errors = append(cr.Errors, res.Errors...)
			signals = append(signals, res.Signals...)
		}
		sortSignals(signals)

		balance = applySignals(balance, positions, signals)
		cr.Signals = len(signals)

		if s.repo != nil && len(signals) > 0 {
			if err := s.repo.SaveSignals(ctx, meta.RunID, signals); err != nil {
				cr.Errors = append(cr.Errors, errors.Wrap(err, "persist signals"))
			}
		}

		result.BalanceHistory = append(result.BalanceHistory, balance)
		result.Chunks = append(result.Chunks, cr)
		result.Errors = append(result.Errors, cr.Errors...)
	}

	result.FinalBalance = balance
	result.Performance = analytics.Performance(result.BalanceHistory)
	result.Memory = s.mem.Stats()
	result.Duration = time.Since(started)

	s.persistOutcome(ctx, meta.RunID, positions, result)
	logs.Infof("backtest %s done: balance %s, %d chunks, %d errors", meta.RunID, balance, len(result.Chunks), len(result.Errors))
	return result, nil
}

type chunk struct {
	start time.Time
	end   time.Time
}

// chunks splits [Start, End) into ChunkDays-sized windows.
func (s *Scheduler) chunks() []chunk {
	var out []chunk
	step := time.Duration(s.cfg.ChunkDays) * 24 * time.Hour
	for start := s.cfg.Start; start.Before(s.cfg.End); start = start.Add(step) {
		end := start.Add(step)
		if end.After(s.cfg.End) {
			end = s.cfg.End
		}
		out = append(out, chunk{start: start, end: end})
	}
	return out
}

// loadChunk fetches bars for every symbol through a bounded worker pool and
// returns them merged in timestamp order. Loads hit the chunk cache first.
func (s *Scheduler) loadChunk(ctx context.Context, c chunk) ([]domain.Bar, []error) {
	key := chunkKey(s.cfg.Symbols, c.start, c.end)
	if bars, ok := s.cache.Get(key); ok {
		return bars, nil
	}

	var (
		mu     sync.Mutex
		merged []domain.Bar
		errs   []error
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for range s.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				bars, err := s.feed.HistoricalBars(ctx, symbol, c.start, c.end, s.cfg.Timeframe, nil)
				mu.Lock()
				if err != nil {
					errs = append(errs, errors.Wrapf(err, "load %s", symbol))
				} else {
					merged = append(merged, bars...)
				}
				mu.Unlock()
			}
		}()
	}
	for _, symbol := range s.cfg.Symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].Symbol < merged[j].Symbol
	})

	if len(merged) > 0 {
		s.cache.Put(key, merged)
	}
	return merged, errs
}

// sortSignals orders signals chronologically with a symbol tie-break so the
// sequential apply path is deterministic regardless of algorithm scheduling.
func sortSignals(signals []domain.Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		if !signals[i].Timestamp.Equal(signals[j].Timestamp) {
			return signals[i].Timestamp.Before(signals[j].Timestamp)
		}
		return signals[i].Symbol < signals[j].Symbol
	})
}

// applySignals folds signals into cash and the position book. Entries and
// adds reduce cash by notional; exits credit it back. Signals the balance
// cannot fund are skipped.
func applySignals(balance decimal.Decimal, positions map[string]domain.Position, signals []domain.Signal) decimal.Decimal {
	for _, sig := range signals {
		if err := sig.Validate(); err != nil {
			logs.Infof("drop signal %s %s: %v", sig.Symbol, sig.Kind, err)
			continue
		}
		notional := sig.Price.Mul(decimal.NewFromInt(sig.Quantity))

		switch sig.Side() {
		case domain.SideBuy:
			if balance.LessThan(notional) {
				logs.Infof("skip %s %s: notional %s exceeds balance %s", sig.Kind, sig.Symbol, notional, balance)
				continue
			}
			pos := positions[sig.Symbol]
			pos.Symbol = sig.Symbol
			pos.Quantity += sig.Quantity
			pos.CurrentPrice = sig.Price
			positions[sig.Symbol] = pos
			balance = balance.Sub(notional)
		case domain.SideSell:
			pos, ok := positions[sig.Symbol]
			if !ok || pos.Quantity <= 0 {
				continue
			}
			qty := sig.Quantity
			if qty > pos.Quantity {
				qty = pos.Quantity
			}
			balance = balance.Add(sig.Price.Mul(decimal.NewFromInt(qty)))
			pos.Quantity -= qty
			if pos.Quantity == 0 {
				delete(positions, sig.Symbol)
			} else {
				positions[sig.Symbol] = pos
			}
		}
	}
	return balance
}

// persistOutcome stores final positions and headline metrics, best effort.
func (s *Scheduler) persistOutcome(ctx context.Context, runID string, positions map[string]domain.Position, result *Result) {
	if s.repo == nil {
		return
	}

	symbols := make([]string, 0, len(positions))
	for sym := range positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	final := make([]domain.Position, 0, len(symbols))
	for _, sym := range symbols {
		final = append(final, positions[sym])
	}
	if err := s.repo.SavePositions(ctx, runID, final); err != nil {
		result.Errors = append(result.Errors, errors.Wrap(err, "persist positions"))
	}

	saver, ok := s.repo.(runMetricsSaver)
	if !ok {
		return
	}
	if err := saver.SaveRunMetrics(ctx, ports.RunMetrics{
		RunID:       runID,
		TotalReturn: result.Performance.TotalReturn,
		SharpeRatio: result.Performance.Sharpe,
		MaxDrawdown: result.Performance.MaxDrawdown,
	}); err != nil {
		result.Errors = append(result.Errors, errors.Wrap(err, "persist run metrics"))
	}
}
