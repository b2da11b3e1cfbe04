package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunMetadata is the write-once record identifying a single backtest or live
// run. Persisted results are correlated by RunID.
type RunMetadata struct {
	RunID          string
	Mode           RunMode
	Start          time.Time
	End            time.Time
	ConfigSnapshot string
	CreatedAt      time.Time
}

// NewRunMetadata allocates a run record with a fresh id.
func NewRunMetadata(mode RunMode, start, end time.Time, configSnapshot string) RunMetadata {
	return RunMetadata{
		RunID:          uuid.NewString(),
		Mode:           mode,
		Start:          start,
		End:            end,
		ConfigSnapshot: configSnapshot,
		CreatedAt:      time.Now().UTC(),
	}
}
