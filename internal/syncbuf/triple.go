package syncbuf

import "sync/atomic"

const (
	indexMask uint32 = 0b011
	dirtyBit  uint32 = 0b100
)

// TripleBuffer hands data from one writer to one reader without either side
// ever waiting.
//
// Three instances rotate through the write, pending and read roles. Publish
// exchanges the write slot with the pending slot and marks it dirty. Pull,
// called by the reader, exchanges the read slot with the pending slot only
// when it is dirty. The reader sees new data only after it pulls.
//
// The pending index and the dirty bit live in one atomic word, so a publish
// racing a pull is never lost.
type TripleBuffer[T any] struct {
	slots   [3]T
	pending atomic.Uint32

	// writer exclusive
	write uint32
	// reader exclusive
	read uint32
}

// NewTripleBuffer creates a buffer whose slots are prepared by init, which
// may be nil.
func NewTripleBuffer[T any](init func(*T)) *TripleBuffer[T] {
	b := &TripleBuffer[T]{write: 0, read: 2}
	b.pending.Store(1)
	if init != nil {
		for i := range b.slots {
			init(&b.slots[i])
		}
	}
	return b
}

// Write returns the writer's slot. Writer goroutine only.
func (b *TripleBuffer[T]) Write() *T {
	return &b.slots[b.write]
}

// Publish hands the writer's slot to the reader side. Writer goroutine only.
func (b *TripleBuffer[T]) Publish() {
	old := b.pending.Swap(b.write | dirtyBit)
	b.write = old & indexMask
}

// Pull makes the newest published slot readable. It reports whether new
// data arrived since the previous Pull. Reader goroutine only.
func (b *TripleBuffer[T]) Pull() bool {
	if b.pending.Load()&dirtyBit == 0 {
		return false
	}
	old := b.pending.Swap(b.read)
	b.read = old & indexMask
	return true
}

// Read returns the reader's slot. Reader goroutine only; valid until the
// next Pull.
func (b *TripleBuffer[T]) Read() *T {
	return &b.slots[b.read]
}
