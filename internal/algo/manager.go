package algo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

var (
	ErrDuplicateAlgorithm = errors.New("algo: already registered")
	ErrUnknownAlgorithm   = errors.New("algo: not registered")
)

// ExecStats aggregates per-algorithm execution counters for reporting.
type ExecStats struct {
	Calls         uint64
	Failures      uint64
	Signals       uint64
	TotalDuration time.Duration
}

// Manager is the algorithm registry and concurrent executor. Execution
// isolates failures: one algorithm's error or panic never aborts siblings.
type Manager struct {
	mu     sync.Mutex
	algos  map[string]TradingAlgorithm
	active map[string]bool
	stats  map[string]*ExecStats
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		algos:  make(map[string]TradingAlgorithm),
		active: make(map[string]bool),
		stats:  make(map[string]*ExecStats),
	}
}

// Register adds an algorithm under its name.
func (m *Manager) Register(algo TradingAlgorithm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := algo.Name()
	if _, ok := m.algos[name]; ok {
		return errors.Wrap(ErrDuplicateAlgorithm, name)
	}
	m.algos[name] = algo
	m.stats[name] = &ExecStats{}
	return nil
}

// Activate initializes the named algorithm against the shared context and
// marks it runnable.
func (m *Manager) Activate(ctx context.Context, name string, actx *Context) error {
	m.mu.Lock()
	algo, ok := m.algos[name]
	m.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrUnknownAlgorithm, name)
	}
	if err := algo.Initialize(ctx, actx); err != nil {
		return errors.Wrap(err, "initialize "+name)
	}
	m.mu.Lock()
	m.active[name] = true
	m.mu.Unlock()
	return nil
}

// Deactivate marks the named algorithm as not runnable.
func (m *Manager) Deactivate(name string) {
	m.mu.Lock()
	delete(m.active, name)
	m.mu.Unlock()
}

// IsActive reports whether name is registered and activated.
func (m *Manager) IsActive(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[name]
}

// ActiveNames returns the activated algorithm names in sorted order.
func (m *Manager) ActiveNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns a copy of the per-algorithm execution counters.
func (m *Manager) Stats() map[string]ExecStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ExecStats, len(m.stats))
	for name, s := range m.stats {
		out[name] = *s
	}
	return out
}

// ExecuteAlgorithms runs every active algorithm concurrently over bars and
// returns results in sorted name order. Results only propose signals; the
// caller applies them to shared state on its own sequential path.
func (m *Manager) ExecuteAlgorithms(ctx context.Context, bars []domain.Bar, actx *Context) []Result {
	names := m.ActiveNames()
	results := make([]Result, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		m.mu.Lock()
		algo := m.algos[name]
		m.mu.Unlock()

		wg.Add(1)
		go func(i int, name string, algo TradingAlgorithm) {
			defer wg.Done()
			results[i] = m.runOne(ctx, name, algo, bars, actx)
		}(i, name, algo)
	}
	wg.Wait()

	for i := range results {
		m.record(results[i])
	}
	return results
}

func (m *Manager) runOne(ctx context.Context, name string, algo TradingAlgorithm, bars []domain.Bar, actx *Context) (result Result) {
	result.Algorithm = name
	started := time.Now()
	defer func() {
		result.Duration = time.Since(started)
		result.SignalCount = len(result.Signals)
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, &ports.AlgorithmError{
				Algorithm: name,
				Op:        "panic",
				Err:       errors.Errorf("%v", r),
			})
			result.Signals = nil
			result.SignalCount = 0
		}
	}()

	signals, err := algo.ProcessMarketData(ctx, bars, actx)
	if err != nil {
		result.Errors = append(result.Errors, &ports.AlgorithmError{Algorithm: name, Op: "processMarketData", Err: err})
		return result
	}

	signals, err = algo.HandleSignals(ctx, signals, actx)
	if err != nil {
		result.Errors = append(result.Errors, &ports.AlgorithmError{Algorithm: name, Op: "handleSignals", Err: err})
		return result
	}

	positionSignals, err := algo.UpdatePositions(ctx, actx.Positions, actx)
	if err != nil {
		result.Errors = append(result.Errors, &ports.AlgorithmError{Algorithm: name, Op: "updatePositions", Err: err})
		return result
	}

	result.Signals = append(signals, positionSignals...)
	result.SignalCount = len(result.Signals)
	return result
}

func (m *Manager) record(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[r.Algorithm]
	if !ok {
		return
	}
	s.Calls++
	s.Signals += uint64(r.SignalCount)
	s.TotalDuration += r.Duration
	if r.Failed() {
		s.Failures++
		logs.Errorf("algorithm %s failed: %v", r.Algorithm, r.Errors[0])
	}
}
