// Package roles tracks which goroutine plays which part in the runtime.
//
// A goroutine enters a role (Main, Scheduler) for the duration of its loop.
// Code with a thread contract asserts against the registry. Assertions are
// off by default and only panic once SetChecks(true) has been called, so
// release builds pay for a single atomic load.
package roles

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Role names a goroutine's responsibility.
type Role int

const (
	Unknown Role = iota
	Main
	Scheduler
)

func (r Role) String() string {
	switch r {
	case Main:
		return "main"
	case Scheduler:
		return "scheduler"
	default:
		return "unknown"
	}
}

var (
	mu     sync.RWMutex
	byID   = map[int64]Role{}
	checks atomic.Bool
)

// Enter registers the calling goroutine under r. The returned func undoes
// the registration and must run on the same goroutine.
func Enter(r Role) (leave func()) {
	id := goroutineID()
	mu.Lock()
	prev, had := byID[id]
	byID[id] = r
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if had {
			byID[id] = prev
			return
		}
		delete(byID, id)
	}
}

// Current returns the calling goroutine's role.
func Current() Role {
	id := goroutineID()
	mu.RLock()
	defer mu.RUnlock()
	return byID[id]
}

// CurrentID returns the calling goroutine's id.
func CurrentID() int64 {
	return goroutineID()
}

// SetChecks turns contract assertions on or off process-wide.
func SetChecks(on bool) {
	checks.Store(on)
}

// ChecksEnabled reports whether assertions are on.
func ChecksEnabled() bool {
	return checks.Load()
}

// AssertNot panics when checks are enabled and the caller holds role r.
func AssertNot(r Role, op string) {
	if !checks.Load() {
		return
	}
	if cur := Current(); cur == r {
		panic(fmt.Sprintf("roles: %s called on %s goroutine", op, cur))
	}
}

// Assert panics when checks are enabled and the caller does not hold role r.
func Assert(r Role, op string) {
	if !checks.Load() {
		return
	}
	if cur := Current(); cur != r {
		panic(fmt.Sprintf("roles: %s requires %s goroutine, called on %s", op, r, cur))
	}
}
