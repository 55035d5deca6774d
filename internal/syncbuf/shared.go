package syncbuf

import "sync/atomic"

// SharedBuffer publishes immutable values by atomic pointer swap.
//
// Each Publish allocates a fresh copy, so old values stay alive for as long
// as any reader holds them. Suitable for large or variable-size payloads.
// The zero value is ready to use and reads as the zero T.
type SharedBuffer[T any] struct {
	p atomic.Pointer[T]
}

// NewSharedBuffer creates a buffer holding initial.
func NewSharedBuffer[T any](initial T) *SharedBuffer[T] {
	b := &SharedBuffer[T]{}
	b.Publish(initial)
	return b
}

// Publish stores a copy of v.
func (b *SharedBuffer[T]) Publish(v T) {
	b.p.Store(&v)
}

// Load returns the shared current value, or nil if nothing was published.
// The value must be treated as read-only.
//
// Thread-safety: safe from any goroutine.
func (b *SharedBuffer[T]) Load() *T {
	return b.p.Load()
}

// Get returns a copy of the current value.
//
// Thread-safety: safe from any goroutine.
func (b *SharedBuffer[T]) Get() T {
	if p := b.p.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}
