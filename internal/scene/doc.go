// Package scene implements the hierarchical scene tree.
//
// A Node owns a live slice of children that only the main goroutine
// mutates, and publishes an immutable, refcounted Snapshot of that slice
// for traversal. Structural changes requested through AddChild and
// RemoveChild are queued and applied in submission order by Drain, which
// runs at the end of the node's Update. Drain swaps in a fresh snapshot and
// releases the old one; a reader still holding the old snapshot keeps it
// alive until it calls Release.
//
// The scheduler goroutine traverses the same tree through PhysicsUpdate,
// which reads only an atomically acquired snapshot and never drains.
// Neither side takes a lock shared with the other for traversal.
//
// # Behaviors
//
// A node's behavior is any value. The node calls whichever of the
// capability interfaces (Enterer, Updater, PhysicsUpdater, Exiter,
// StateChanger) the behavior implements. A node's own callbacks never run
// concurrently with each other.
//
// # Ordering
//
//   - Enter and Update run parent before children
//   - Exit runs children before parent
//   - Within a Drain, every exit precedes every enter
package scene
