package syncbuf

import (
	"runtime"
	"sync/atomic"
)

// cacheLine keeps hot counters of neighbouring slots off the same line.
const cacheLine = 64

// slot is one buffered instance plus the number of readers currently
// looking at it. The writer only rewrites a slot that is not current and
// whose reader count has drained to zero.
type slot[T any] struct {
	value   T
	readers atomic.Int32
	_       [cacheLine - 4]byte
}

// waitIdle spins until no reader holds the slot.
func (s *slot[T]) waitIdle() {
	for s.readers.Load() != 0 {
		runtime.Gosched()
	}
}
