package obs

import (
	"sync/atomic"
	"time"
)

// CycleSeq numbers processing cycles so log lines from one bar or timer
// tick can be correlated.
type CycleSeq struct {
	next uint64
}

// NewCycleSeq returns a sequence seeded with the given value.
func NewCycleSeq(seed uint64) *CycleSeq {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	return &CycleSeq{next: seed}
}

// Next returns the next cycle ID.
func (s *CycleSeq) Next() uint64 {
	if s == nil {
		return 0
	}
	return atomic.AddUint64(&s.next, 1)
}
