// Package refcount provides an atomic reference count with a release hook.
//
// A Count starts owned by its creator (one reference). Readers that find the
// owning object through a shared pointer must use TryRetain, because the last
// release may race with them. The hook runs exactly once, on the goroutine
// that drops the final reference.
package refcount

import (
	"fmt"
	"sync/atomic"
)

// Count is an atomic reference counter. The zero value is not usable; call New.
type Count struct {
	refs   atomic.Int64
	onZero func()
}

// New returns a Count holding one reference. onZero may be nil.
func New(onZero func()) *Count {
	c := &Count{onZero: onZero}
	c.refs.Store(1)
	return c
}

// Retain adds a reference the caller already knows to be live.
// It panics if the count has reached zero.
func (c *Count) Retain() {
	if n := c.refs.Add(1); n <= 1 {
		panic(fmt.Sprintf("refcount: retain after release (refs=%d)", n-1))
	}
}

// TryRetain adds a reference unless the count has already dropped to zero.
func (c *Count) TryRetain() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops one reference and runs the hook when it was the last.
// Releasing a zero count panics: it means a double release somewhere.
func (c *Count) Release() {
	n := c.refs.Add(-1)
	switch {
	case n == 0:
		if c.onZero != nil {
			c.onZero()
		}
	case n < 0:
		panic("refcount: release of zero refcount")
	}
}

// Refs returns the current count. Only meaningful in tests and logs.
func (c *Count) Refs() int64 {
	return c.refs.Load()
}
