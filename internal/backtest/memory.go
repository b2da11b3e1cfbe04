package backtest

import (
	"runtime"

	"github.com/yanun0323/logs"
)

const memoryPressurePct = 80

// MemoryStats summarizes monitor observations over a run.
type MemoryStats struct {
	Samples  uint64
	Peak     uint64
	Average  uint64
	Cleanups uint64
}

// MemoryMonitor samples heap usage every sampleEvery observations and
// advises a cleanup when allocation exceeds 80% of the ceiling. It is
// advisory: the caller decides what to drop; the monitor only forces a GC.
type MemoryMonitor struct {
	ceiling     uint64
	sampleEvery int

	ops      int
	total    uint64
	samples  uint64
	peak     uint64
	cleanups uint64
}

// NewMemoryMonitor builds a monitor with the ceiling in megabytes.
func NewMemoryMonitor(ceilingMB uint64, sampleEvery int) *MemoryMonitor {
	if sampleEvery <= 0 {
		sampleEvery = 1
	}
	return &MemoryMonitor{
		ceiling:     ceilingMB << 20,
		sampleEvery: sampleEvery,
	}
}

// Observe counts one operation. On sampling ticks it reads MemStats; when
// heap allocation crosses the pressure threshold it forces a GC and returns
// true so the caller can drop caches.
func (m *MemoryMonitor) Observe() bool {
	m.ops++
	if m.ops%m.sampleEvery != 0 {
		return false
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.samples++
	m.total += ms.HeapAlloc
	if ms.HeapAlloc > m.peak {
		m.peak = ms.HeapAlloc
	}

	if ms.HeapAlloc*100 <= m.ceiling*memoryPressurePct {
		return false
	}

	m.cleanups++
	logs.Infof("memory pressure: heap %d MB over %d%% of %d MB ceiling, forcing GC", ms.HeapAlloc>>20, memoryPressurePct, m.ceiling>>20)
	runtime.GC()
	return true
}

// Stats returns the aggregated observations.
func (m *MemoryMonitor) Stats() MemoryStats {
	stats := MemoryStats{
		Samples:  m.samples,
		Peak:     m.peak,
		Cleanups: m.cleanups,
	}
	if m.samples > 0 {
		stats.Average = m.total / m.samples
	}
	return stats
}
