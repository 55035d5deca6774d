package syncbuf

import "sync/atomic"

// Flag is a consumable one-shot event signal. Only presence matters:
// setting it twice before a consume is observed once.
type Flag struct {
	v atomic.Bool
}

// NewFlag creates a flag in the given state.
func NewFlag(set bool) *Flag {
	f := &Flag{}
	f.v.Store(set)
	return f
}

// Set raises the flag. Idempotent.
func (f *Flag) Set() {
	f.v.Store(true)
}

// Consume clears the flag and reports whether it had been set.
func (f *Flag) Consume() bool {
	return f.v.Swap(false)
}

// IsSet reports the flag state without clearing it.
func (f *Flag) IsSet() bool {
	return f.v.Load()
}
