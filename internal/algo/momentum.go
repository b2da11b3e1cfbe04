package algo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

const (
	momentumVolumeWindow = 20
	momentumVolumeFactor = "1.5"
	momentumClosePos     = "0.8"
)

// MomentumScanner flags bars that close near their high on above-average
// volume, with the bar low as the protective stop. Volume history is kept
// per symbol over a rolling window.
type MomentumScanner struct {
	window  int
	volumes map[string][]int64

	factor   decimal.Decimal
	closePos decimal.Decimal
}

var _ Scanner = (*MomentumScanner)(nil)

// NewMomentumScanner builds a scanner with the given volume window.
func NewMomentumScanner(window int) *MomentumScanner {
	if window <= 0 {
		window = momentumVolumeWindow
	}
	return &MomentumScanner{
		window:   window,
		volumes:  make(map[string][]int64),
		factor:   decimal.RequireFromString(momentumVolumeFactor),
		closePos: decimal.RequireFromString(momentumClosePos),
	}
}

// Scan records volume history and emits a candidate for every bar that
// closes in the top of its range on a volume spike.
func (s *MomentumScanner) Scan(ctx context.Context, bars []domain.Bar, actx *Context) ([]Candidate, error) {
	var out []Candidate
	for _, bar := range bars {
		history := s.volumes[bar.Symbol]
		avg := avgVolume(history)
		s.volumes[bar.Symbol] = appendBounded(history, bar.Volume, s.window)

		if avg.IsZero() {
			continue
		}
		if decimal.NewFromInt(bar.Volume).LessThan(avg.Mul(s.factor)) {
			continue
		}
		if bar.ClosePositionInRange().LessThan(s.closePos) {
			continue
		}

		out = append(out, Candidate{
			Symbol:     bar.Symbol,
			Price:      bar.Close,
			StopPrice:  bar.Low,
			Reason:     "momentum",
			Confidence: 0.6,
			Timestamp:  bar.Timestamp,
		})
	}
	return out, nil
}

func avgVolume(history []int64) decimal.Decimal {
	if len(history) == 0 {
		return decimal.Decimal{}
	}
	var sum int64
	for _, v := range history {
		sum += v
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(history))))
}

func appendBounded(history []int64, v int64, window int) []int64 {
	history = append(history, v)
	if len(history) > window {
		history = history[len(history)-window:]
	}
	return history
}
