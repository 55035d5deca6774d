// Package sim defines the contract between the scheduler and a simulation
// backend, and the per-tick SnapshotSet the scheduler publishes.
package sim

import (
	"context"
	"maps"
	"time"
)

// BodyID is an opaque handle to a simulated object.
type BodyID uint32

// Vec3 is a position or velocity in world units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Quat is an orientation quaternion.
type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IdentityQuat is the zero rotation.
var IdentityQuat = Quat{W: 1}

// ObjectState is one object's transform at the end of a tick.
type ObjectState struct {
	ID       BodyID `json:"id"`
	Position Vec3   `json:"position"`
	Rotation Quat   `json:"rotation"`
}

// SnapshotSet is every object's state after one tick.
//
// A published SnapshotSet is immutable. Callers that need to keep one past
// the read scope must Clone it.
type SnapshotSet struct {
	Tick    uint64
	Objects map[BodyID]ObjectState
}

// NewSnapshotSet returns an empty set with its map allocated.
func NewSnapshotSet() SnapshotSet {
	return SnapshotSet{Objects: make(map[BodyID]ObjectState)}
}

// Get returns the state of id.
func (s *SnapshotSet) Get(id BodyID) (ObjectState, bool) {
	o, ok := s.Objects[id]
	return o, ok
}

// Len returns the number of objects.
func (s *SnapshotSet) Len() int {
	return len(s.Objects)
}

// Clone returns a deep copy that shares nothing with s.
func (s *SnapshotSet) Clone() SnapshotSet {
	out := SnapshotSet{Tick: s.Tick, Objects: make(map[BodyID]ObjectState, len(s.Objects))}
	maps.Copy(out.Objects, s.Objects)
	return out
}

// Reset empties the set for reuse, keeping the map's storage.
func (s *SnapshotSet) Reset(tick uint64) {
	s.Tick = tick
	if s.Objects == nil {
		s.Objects = make(map[BodyID]ObjectState)
		return
	}
	clear(s.Objects)
}

// Backend is a simulation world stepped at a fixed rate.
//
// Init, Step, Transforms and Close are called only from the scheduler
// goroutine, except Init, which runs before that goroutine starts.
type Backend interface {
	// Init prepares the world. A non-nil error aborts scheduler startup.
	Init(ctx context.Context) error
	// Step advances the world by exactly dt.
	Step(dt time.Duration)
	// Transforms writes every object's current state into dst.
	Transforms(dst map[BodyID]ObjectState)
	// Close releases the world.
	Close() error
}
