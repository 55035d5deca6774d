// Package scheduler runs a simulation backend at a fixed timestep on its own
// goroutine.
//
// Each tick the scheduler:
//
//  1. Steps the backend by exactly the fixed dt
//  2. Publishes a SnapshotSet of every object's transform
//  3. Runs persistent callbacks, then the one-shot callbacks queued since
//     the previous tick
//  4. Waits for the next deadline
//
// Deadlines advance by the fixed step from the previous deadline, not from
// the current time, so the long-run tick rate does not drift. A scheduler
// that falls more than MaxLagTicks behind drops the backlog instead of
// bursting through it.
//
// Thread-safety model:
//   - Dispatch, Persist, CurrentSnapshot, ReadSnapshot, Stats: any goroutine
//   - Init, Shutdown: any goroutine except the scheduler itself
//   - Callbacks run on the scheduler goroutine and may call Dispatch and
//     Persist re-entrantly
package scheduler
