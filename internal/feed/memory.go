// Package feed provides the DataFeed implementations: an in-memory replay
// feed for backtests, a repository-backed historical feed, and a websocket
// live feed.
package feed

import (
	"context"
	"sort"
	"time"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

// MemoryFeed replays a fixed bar set in strict timestamp order. Bars with
// equal timestamps are delivered in symbol order so replays are
// deterministic.
type MemoryFeed struct {
	bars []domain.Bar
}

var _ ports.DataFeed = (*MemoryFeed)(nil)

// NewMemoryFeed copies and sorts bars.
func NewMemoryFeed(bars []domain.Bar) *MemoryFeed {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})
	return &MemoryFeed{bars: sorted}
}

// Subscribe replays the stored bars for the requested symbols and timeframe.
// The channel closes when the replay ends or the context is cancelled.
func (f *MemoryFeed) Subscribe(ctx context.Context, symbols []string, timeframe domain.Timeframe) (<-chan domain.Bar, error) {
	want := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		want[sym] = true
	}

	out := make(chan domain.Bar)
	go func() {
		defer close(out)
		for _, bar := range f.bars {
			if bar.Timeframe != timeframe {
				continue
			}
			if len(want) > 0 && !want[bar.Symbol] {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- bar:
			}
		}
	}()
	return out, nil
}

// HistoricalBars returns bars for symbol inside [start, end), optionally
// restricted to an intraday session window.
func (f *MemoryFeed) HistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe domain.Timeframe, session *ports.SessionWindow) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, bar := range f.bars {
		if bar.Symbol != symbol || bar.Timeframe != timeframe {
			continue
		}
		if bar.Timestamp.Before(start) || !bar.Timestamp.Before(end) {
			continue
		}
		if !inSession(bar.Timestamp, session) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

// AvailableSymbols lists every symbol present in the feed, sorted.
func (f *MemoryFeed) AvailableSymbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, bar := range f.bars {
		seen[bar.Symbol] = true
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

// inSession reports whether ts falls inside the window. A nil window admits
// everything; the end bound is exclusive.
func inSession(ts time.Time, session *ports.SessionWindow) bool {
	if session == nil {
		return true
	}
	tod := domain.TimeOfDayOf(ts)
	return tod >= session.Start && tod < session.End
}
