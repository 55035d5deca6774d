package journal

import "sync/atomic"

// Sequencer is a monotonic logical clock for lifecycle rows.
//
// Thread-safety: safe for concurrent use.
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencerAt returns a sequencer whose next value is start+1.
// Used to resume a run.
func NewSequencerAt(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number. The first call on a fresh
// Sequencer returns 1.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last value handed out.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}
