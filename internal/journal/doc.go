// Package journal records runs to SQLite for later inspection.
//
// A run stores:
//   - the published SnapshotSet of selected ticks, as canonical JSON
//   - director lifecycle events (push, pop, enter, exit, persist,
//     unpersist), stamped with a per-run logical sequence number
//
// Ordering uses tick and seq only, never wall-clock timestamps, so two
// journals of the same deterministic run compare equal row for row.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce run references
package journal
