// Package testutil provides recording scene behaviors shared by tests.
//
// A Recorder collects one line per lifecycle callback ("enter A",
// "update A", "exit A", "state A top") so tests and golden files can
// compare whole traces. Physics callbacks run on the scheduler goroutine
// at a timing-dependent rate, so they are counted per node instead of
// being written to the trace.
//
// Thread-safety: all methods are safe for concurrent use.
package testutil

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roach88/lockstep/internal/scene"
)

// Recorder collects lifecycle lines.
type Recorder struct {
	mu      sync.Mutex
	lines   []string
	physics map[string]int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{physics: make(map[string]int)}
}

// Record appends a formatted line.
func (r *Recorder) Record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the trace.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lines)
}

// Reset clears the trace and physics counts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
	clear(r.physics)
}

// PhysicsTicks returns how many physics callbacks name received.
func (r *Recorder) PhysicsTicks(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.physics[name]
}

func (r *Recorder) countPhysics(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.physics[name]++
}

// State returns a behavior that records into r under name.
func (r *Recorder) State(name string) *State {
	return &State{name: name, rec: r}
}

// Node returns a named node whose behavior records into r.
func (r *Recorder) Node(name string) *scene.Node {
	return scene.New(r.State(name))
}

// State is a scene behavior that implements every capability interface.
// The optional hooks run after the line is recorded.
type State struct {
	name string
	rec  *Recorder

	EnterHook  func(n *scene.Node, h scene.Host)
	UpdateHook func(n *scene.Node, h scene.Host)
	ExitHook   func(n *scene.Node, h scene.Host)
}

func (s *State) Name() string { return s.name }

func (s *State) OnEnter(n *scene.Node, h scene.Host) {
	s.rec.Record("enter %s", s.name)
	if s.EnterHook != nil {
		s.EnterHook(n, h)
	}
}

func (s *State) OnUpdate(n *scene.Node, h scene.Host, _ time.Duration) {
	s.rec.Record("update %s", s.name)
	if s.UpdateHook != nil {
		s.UpdateHook(n, h)
	}
}

func (s *State) OnPhysicsUpdate(_ *scene.Node, _ scene.Host, _ time.Duration) {
	s.rec.countPhysics(s.name)
}

func (s *State) OnExit(n *scene.Node, h scene.Host) {
	s.rec.Record("exit %s", s.name)
	if s.ExitHook != nil {
		s.ExitHook(n, h)
	}
}

func (s *State) OnStateChanged(_ *scene.Node, _ scene.Host, topmost bool) {
	if topmost {
		s.rec.Record("state %s top", s.name)
		return
	}
	s.rec.Record("state %s covered", s.name)
}
