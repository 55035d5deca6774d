// Package director owns the state stack and drives it from the main and
// scheduler goroutines.
//
// Stack changes (push, pop, persistent add and remove) are queued from any
// goroutine and applied in submission order at the start of the next main
// Update. After a change the director publishes a StackSnapshot: a copy of
// the stack and the persistent list that the scheduler goroutine reads
// under a short mutex, so physics never walks the live stack.
//
// Only the top of the stack and the persistent states are ticked. States
// below the top stay entered but dormant until the states above are popped.
package director
