package feed

import (
	"context"
	"time"

	"github.com/yanun0323/errors"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

// RepositoryFeed serves historical bars out of the persistence layer. It is
// a query-only source: live subscription belongs to the websocket feed.
type RepositoryFeed struct {
	repo    ports.Repository
	symbols []string
}

var _ ports.DataFeed = (*RepositoryFeed)(nil)

// NewRepositoryFeed wraps repo. The symbol universe is fixed at construction
// because the repository schema has no symbol directory.
func NewRepositoryFeed(repo ports.Repository, symbols []string) *RepositoryFeed {
	return &RepositoryFeed{repo: repo, symbols: symbols}
}

// Subscribe is not available on a historical source.
func (f *RepositoryFeed) Subscribe(ctx context.Context, symbols []string, timeframe domain.Timeframe) (<-chan domain.Bar, error) {
	return nil, errors.Wrap(ports.ErrNotSupported, "repository feed is historical only")
}

// HistoricalBars loads bars from storage and applies the session window.
func (f *RepositoryFeed) HistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe domain.Timeframe, session *ports.SessionWindow) ([]domain.Bar, error) {
	bars, err := f.repo.LoadBars(ctx, symbol, start, end, timeframe)
	if err != nil {
		return nil, errors.Wrapf(err, "load bars %s", symbol)
	}
	if session == nil {
		return bars, nil
	}

	out := bars[:0]
	for _, bar := range bars {
		if inSession(bar.Timestamp, session) {
			out = append(out, bar)
		}
	}
	return out, nil
}

// AvailableSymbols returns the configured universe.
func (f *RepositoryFeed) AvailableSymbols(ctx context.Context) ([]string, error) {
	if len(f.symbols) == 0 {
		return nil, errors.Wrap(ports.ErrDataUnavailable, "no symbols configured")
	}
	return f.symbols, nil
}
