package syncbuf

import "sync/atomic"

// ValueBuffer is a relaxed double buffer for small, copyable payloads.
//
// Publish copies the value into the write slot and then stores the front
// index. Get loads the index and copies the value out, so every caller owns
// an independent snapshot. Payloads containing pointers, maps or slices
// share their referents between copies; use SharedBuffer for those.
type ValueBuffer[T any] struct {
	slots [2]slot[T]
	front atomic.Int32

	// writer exclusive
	writing int32
}

// NewValueBuffer creates a buffer whose first readable value is initial.
func NewValueBuffer[T any](initial T) *ValueBuffer[T] {
	b := &ValueBuffer[T]{writing: 1}
	b.slots[0].value = initial
	return b
}

// Publish copies v into the write slot and makes it current.
// Only the writer goroutine may call Publish.
func (b *ValueBuffer[T]) Publish(v T) {
	s := &b.slots[b.writing]
	s.waitIdle()
	s.value = v
	b.front.Store(b.writing)
	b.writing = 1 - b.writing
}

// Get returns a copy of the most recently published value.
//
// Thread-safety: safe from any goroutine.
func (b *ValueBuffer[T]) Get() T {
	for {
		i := b.front.Load()
		s := &b.slots[i]
		s.readers.Add(1)
		if b.front.Load() == i {
			v := s.value
			s.readers.Add(-1)
			return v
		}
		s.readers.Add(-1)
	}
}
