package sim

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Init after Close.
var ErrClosed = errors.New("sim: backend closed")

type body struct {
	pos Vec3
	vel Vec3
}

// Kinematic is a backend that integrates constant velocities. It has no
// collisions and no forces. AddBody and RemoveBody are safe from any
// goroutine, although the usual path is a Dispatch onto the scheduler.
type Kinematic struct {
	mu     sync.Mutex
	bodies map[BodyID]*body
	nextID BodyID
	steps  uint64
	closed bool
}

// NewKinematic returns an empty world.
func NewKinematic() *Kinematic {
	return &Kinematic{bodies: make(map[BodyID]*body)}
}

func (k *Kinematic) Init(context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	return nil
}

// AddBody creates a body and returns its handle. Handles start at 1.
func (k *Kinematic) AddBody(pos, vel Vec3) BodyID {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nextID++
	k.bodies[k.nextID] = &body{pos: pos, vel: vel}
	return k.nextID
}

// RemoveBody deletes a body. Unknown handles are ignored.
func (k *Kinematic) RemoveBody(id BodyID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.bodies, id)
}

func (k *Kinematic) Step(dt time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := dt.Seconds()
	for _, b := range k.bodies {
		b.pos = b.pos.Add(b.vel.Scale(s))
	}
	k.steps++
}

func (k *Kinematic) Transforms(dst map[BodyID]ObjectState) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, b := range k.bodies {
		dst[id] = ObjectState{ID: id, Position: b.pos, Rotation: IdentityQuat}
	}
}

func (k *Kinematic) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	clear(k.bodies)
	return nil
}

// Steps returns how many times Step has run.
func (k *Kinematic) Steps() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.steps
}
