// Package syncbuf provides cross-goroutine handoff buffers.
//
// Every buffer in this package has exactly one designated writer. Readers
// never take a lock, and each publish or consume costs O(1) atomic
// operations. Concurrent publishes to the same buffer are not supported.
//
// The family:
//
//   - DoubleBuffer: two instances, writer mutates its slot in place, Publish
//     swaps which slot is current. Many readers.
//   - ValueBuffer: two instances of a small value, readers get a copy.
//   - TripleBuffer: three instances, writer never waits, the single reader
//     must Pull to observe new data.
//   - SharedBuffer: atomic pointer swap of an immutable value, for large or
//     variable-size payloads.
//   - Flag: consumable one-shot event signal.
//
// Thread-safety: the writer methods (Write, Publish) must be called from one
// goroutine at a time. Reader methods are documented per type.
package syncbuf
