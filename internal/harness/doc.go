// Package harness runs scripted lifecycle scenarios against a Director.
//
// A scenario is a YAML file naming states by string and listing the
// stack operations, child operations and frames to run. Every named
// state records its callbacks into a shared trace, so a scenario run
// produces a deterministic line-per-event transcript that tests compare
// against golden files:
//
//	> push A
//	> update
//	* push A
//	enter A
//	* enter A
//	state A top
//	update A
//
// Lines starting with ">" are steps, lines starting with "*" are
// director events and the rest are state callbacks. The trace ends with
// "= stack" and "= persistent" summary lines.
//
// Scenarios are validated twice on load: once against the embedded CUE
// schema (schema.cue) and once by strict YAML decoding that rejects
// unknown fields.
//
// The harness drives the director synchronously on the calling
// goroutine. Physics steps call PhysicsUpdate directly instead of
// running a scheduler, so physics counts are exact.
package harness
