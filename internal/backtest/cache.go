package backtest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

// chunkKey identifies one cached chunk load by symbols and date range.
func chunkKey(symbols []string, start, end time.Time) string {
	return fmt.Sprintf("%s|%d|%d", strings.Join(symbols, ","), start.Unix(), end.Unix())
}

// barCache keeps loaded chunks so repeated passes over the same range skip
// the feed. Cleared under memory pressure.
type barCache struct {
	mu      sync.Mutex
	entries map[string][]domain.Bar
}

func newBarCache() *barCache {
	return &barCache{entries: make(map[string][]domain.Bar)}
}

func (c *barCache) Get(key string) ([]domain.Bar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bars, ok := c.entries[key]
	return bars, ok
}

func (c *barCache) Put(key string, bars []domain.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = bars
}

func (c *barCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]domain.Bar)
}

func (c *barCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
