// Package obs collects lightweight engine counters and latency stats. The
// hot path only touches atomics; exporting happens on Snapshot.
package obs

import (
	"sync/atomic"
	"time"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

const maxSignalKind = int(domain.SignalTakeProfit)

// Metrics counts engine activity and tracks bar handling latency.
type Metrics struct {
	barsProcessed uint64
	signalCounts  [maxSignalKind + 1]uint64
	ordersPlaced  uint64
	ordersDropped uint64
	fillsApplied  uint64
	barErrors     uint64

	onBarLatency LatencyStats
	orderLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	BarsProcessed uint64
	SignalCounts  map[domain.SignalKind]uint64
	OrdersPlaced  uint64
	OrdersDropped uint64
	FillsApplied  uint64
	BarErrors     uint64
	OnBarLatency  LatencySnapshot
	OrderLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveBar counts one processed bar and its strategy handling latency.
func (m *Metrics) ObserveBar(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.barsProcessed, 1)
	m.onBarLatency.Observe(d)
}

// IncSignal counts an emitted signal by kind.
func (m *Metrics) IncSignal(kind domain.SignalKind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.signalCounts) {
		atomic.AddUint64(&m.signalCounts[idx], 1)
	}
}

// IncOrderPlaced counts an accepted order.
func (m *Metrics) IncOrderPlaced() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersPlaced, 1)
}

// IncOrderDropped counts a signal that never became an order.
func (m *Metrics) IncOrderDropped() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersDropped, 1)
}

// IncFill counts an applied execution.
func (m *Metrics) IncFill() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fillsApplied, 1)
}

// IncBarError counts a bar the strategy rejected.
func (m *Metrics) IncBarError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.barErrors, 1)
}

// ObserveOrderFlow measures signal-to-order placement latency.
func (m *Metrics) ObserveOrderFlow(d time.Duration) {
	if m == nil {
		return
	}
	m.orderLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	signals := make(map[domain.SignalKind]uint64)
	for i := range m.signalCounts {
		if v := atomic.LoadUint64(&m.signalCounts[i]); v > 0 {
			signals[domain.SignalKind(i)] = v
		}
	}
	return Snapshot{
		BarsProcessed: atomic.LoadUint64(&m.barsProcessed),
		SignalCounts:  signals,
		OrdersPlaced:  atomic.LoadUint64(&m.ordersPlaced),
		OrdersDropped: atomic.LoadUint64(&m.ordersDropped),
		FillsApplied:  atomic.LoadUint64(&m.fillsApplied),
		BarErrors:     atomic.LoadUint64(&m.barErrors),
		OnBarLatency:  m.onBarLatency.Snapshot(),
		OrderLatency:  m.orderLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
