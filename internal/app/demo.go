package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/lockstep/internal/scene"
	"github.com/roach88/lockstep/internal/scheduler"
	"github.com/roach88/lockstep/internal/sim"
)

// StatsEvery is how many frames pass between monitor log lines.
const StatsEvery = 60

// Field is a state that spawns bodies into a kinematic world when entered
// and removes them when exited. Spawns and removals are dispatched to the
// scheduler goroutine.
type Field struct {
	sched *scheduler.Scheduler
	world *sim.Kinematic
	count int

	mu  sync.Mutex
	ids []sim.BodyID
}

// NewField returns a field of count bodies laid out along X, each moving
// along Y at one unit per second.
func NewField(sched *scheduler.Scheduler, world *sim.Kinematic, count int) *Field {
	return &Field{sched: sched, world: world, count: count}
}

func (f *Field) Name() string { return "field" }

func (f *Field) OnEnter(_ *scene.Node, h scene.Host) {
	for i := range f.count {
		pos := sim.Vec3{X: float64(i)}
		vel := sim.Vec3{Y: 1}
		err := f.sched.Dispatch(func(*scheduler.Scheduler) {
			id := f.world.AddBody(pos, vel)
			f.mu.Lock()
			f.ids = append(f.ids, id)
			f.mu.Unlock()
		})
		if err != nil {
			h.Logger().Warn("body spawn dropped", "error", err)
			return
		}
	}
}

func (f *Field) OnExit(_ *scene.Node, h scene.Host) {
	err := f.sched.Dispatch(func(*scheduler.Scheduler) {
		f.mu.Lock()
		ids := f.ids
		f.ids = nil
		f.mu.Unlock()
		for _, id := range ids {
			f.world.RemoveBody(id)
		}
	})
	if err != nil {
		h.Logger().Debug("body removal dropped", "error", err)
	}
}

// Bodies returns how many spawned bodies are live.
func (f *Field) Bodies() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

// Monitor is a persistent state that counts physics updates and logs
// scheduler stats at debug level every StatsEvery frames.
type Monitor struct {
	sched   *scheduler.Scheduler
	frames  uint64
	physics atomic.Uint64
}

// NewMonitor returns a monitor for sched.
func NewMonitor(sched *scheduler.Scheduler) *Monitor {
	return &Monitor{sched: sched}
}

func (m *Monitor) Name() string { return "monitor" }

func (m *Monitor) OnUpdate(_ *scene.Node, h scene.Host, _ time.Duration) {
	m.frames++
	if m.frames%StatsEvery != 0 {
		return
	}
	st := m.sched.Stats()
	h.Logger().Debug("scheduler stats",
		"frame", m.frames,
		"ticks", st.Ticks,
		"dropped_ticks", st.DroppedTicks,
		"overruns", st.Overruns,
		"physics_updates", m.physics.Load(),
	)
}

func (m *Monitor) OnPhysicsUpdate(*scene.Node, scene.Host, time.Duration) {
	m.physics.Add(1)
}

// PhysicsUpdates returns how many physics callbacks the monitor received.
func (m *Monitor) PhysicsUpdates() uint64 {
	return m.physics.Load()
}

// LoadDemo queues the demo world: a Field of bodies pushed on the stack and
// a persistent Monitor. Both enter on the next frame.
func (a *App) LoadDemo(world *sim.Kinematic, bodies int) (*Field, *Monitor) {
	field := NewField(a.sched, world, bodies)
	mon := NewMonitor(a.sched)
	a.dir.PushState(scene.New(field))
	a.dir.AddPersistent(scene.New(mon))
	return field, mon
}
