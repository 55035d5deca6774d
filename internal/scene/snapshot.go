package scene

import (
	"sync/atomic"

	"github.com/roach88/lockstep/internal/refcount"
)

// Snapshot is an immutable, ordered view of a node's children.
//
// A snapshot starts with one reference owned by its node. Readers obtain
// theirs through Node.AcquireSnapshot and must Release it. When the node
// replaces the snapshot it drops its own reference; the last Release frees
// the child list.
type Snapshot struct {
	children []*Node
	refs     *refcount.Count
	freed    atomic.Bool
}

func newSnapshot(children []*Node) *Snapshot {
	s := &Snapshot{children: children}
	s.refs = refcount.New(func() {
		s.children = nil
		s.freed.Store(true)
	})
	return s
}

// Children returns the children in order. The slice must not be modified.
func (s *Snapshot) Children() []*Node {
	if s == nil {
		return nil
	}
	return s.children
}

// Len returns the number of children.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.children)
}

// Release drops the caller's reference. Releasing more times than
// acquired panics.
func (s *Snapshot) Release() {
	if s == nil {
		return
	}
	s.refs.Release()
}

// Refs returns the current reference count.
func (s *Snapshot) Refs() int64 {
	return s.refs.Refs()
}

// Freed reports whether the last reference has been released.
func (s *Snapshot) Freed() bool {
	return s.freed.Load()
}
