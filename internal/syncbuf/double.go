package syncbuf

import "sync/atomic"

// DoubleBuffer is a single-writer, many-reader double buffer.
//
// The writer mutates the slot returned by Write in place and then calls
// Publish, which atomically makes that slot the current read slot. Readers
// always observe a complete value: a slot is never rewritten while a reader
// holds it.
//
// Usage pattern:
//   - Writer: Write() -> modify -> Publish()
//   - Readers: Read(fn) or Acquire()/Release()
type DoubleBuffer[T any] struct {
	slots   [2]slot[T]
	current atomic.Pointer[slot[T]]

	// writer exclusive
	write *slot[T]
}

// NewDoubleBuffer creates a buffer whose slots are prepared by init.
// init runs once per slot and may be nil. Use it to allocate per-slot
// maps or slices so the two instances never share backing storage.
func NewDoubleBuffer[T any](init func(*T)) *DoubleBuffer[T] {
	b := &DoubleBuffer[T]{}
	if init != nil {
		init(&b.slots[0].value)
		init(&b.slots[1].value)
	}
	b.current.Store(&b.slots[0])
	b.write = &b.slots[1]
	return b
}

// Write returns the writer's slot for in-place mutation.
//
// If a slow reader still holds the slot from two publishes ago, Write
// yields until that reader releases it. Only the writer goroutine may call
// Write, and the pointer is valid until the next Publish.
func (b *DoubleBuffer[T]) Write() *T {
	b.write.waitIdle()
	return &b.write.value
}

// Publish makes the writer's slot current and hands the previous current
// slot back to the writer.
func (b *DoubleBuffer[T]) Publish() {
	b.write = b.current.Swap(b.write)
}

// Acquire pins the current slot for reading. The caller must Release the
// returned handle promptly; the writer cannot reuse the slot until then.
//
// Thread-safety: safe from any goroutine.
func (b *DoubleBuffer[T]) Acquire() ReadHandle[T] {
	for {
		s := b.current.Load()
		s.readers.Add(1)
		if b.current.Load() == s {
			return ReadHandle[T]{s: s}
		}
		// Lost a race with Publish; the slot may be handed to the writer.
		s.readers.Add(-1)
	}
}

// Read calls fn with the current value. The pointer must not escape fn.
//
// Thread-safety: safe from any goroutine.
func (b *DoubleBuffer[T]) Read(fn func(*T)) {
	h := b.Acquire()
	defer h.Release()
	fn(h.Value())
}

// ReadHandle pins one slot of a DoubleBuffer.
type ReadHandle[T any] struct {
	s *slot[T]
}

// Value returns the pinned value. It must not be modified.
func (h ReadHandle[T]) Value() *T {
	return &h.s.value
}

// Release unpins the slot. Releasing twice corrupts the reader count.
func (h ReadHandle[T]) Release() {
	h.s.readers.Add(-1)
}
