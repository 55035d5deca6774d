package director

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/lockstep/internal/roles"
	"github.com/roach88/lockstep/internal/scene"
)

type actionKind uint8

const (
	actPush actionKind = iota + 1
	actPop
	actAddPersistent
	actRemovePersistent
)

type action struct {
	kind actionKind
	node *scene.Node
}

// Director is the top-level orchestrator. It implements scene.Host.
//
// Thread-safety model:
//   - PushState, PopState, AddPersistent, RemovePersistent, RunOnMain:
//     any goroutine, including from inside callbacks
//   - Update, ProcessPendingActions, Clear: main goroutine
//   - PhysicsUpdate: scheduler goroutine
//   - Stack, Top, Persistent: any goroutine
type Director struct {
	logger   *slog.Logger
	observer func(Event)
	mainID   int64
	frame    atomic.Uint64

	actionsMu sync.Mutex
	actions   []action

	tasksMu sync.Mutex
	tasks   []func()

	// main goroutine only
	stack      []*scene.Node
	persistent []*scene.Node

	snapMu         sync.Mutex
	snapStack      []*scene.Node
	snapPersistent []*scene.Node
}

// Option configures a Director.
type Option func(*Director)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Director) {
		d.logger = l
	}
}

// WithObserver registers fn to receive lifecycle events on the main
// goroutine.
func WithObserver(fn func(Event)) Option {
	return func(d *Director) {
		d.observer = fn
	}
}

// New creates a director bound to the calling goroutine as its main
// goroutine.
func New(opts ...Option) *Director {
	d := &Director{
		logger: slog.Default(),
		mainID: roles.CurrentID(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ scene.Host = (*Director)(nil)

// Logger implements scene.Host.
func (d *Director) Logger() *slog.Logger {
	return d.logger
}

// PushState queues n to become the new top of the stack.
func (d *Director) PushState(n *scene.Node) {
	d.enqueue(action{kind: actPush, node: n})
}

// PopState queues removal of the current top.
func (d *Director) PopState() {
	d.enqueue(action{kind: actPop})
}

// AddPersistent queues n to be ticked every frame regardless of the stack.
func (d *Director) AddPersistent(n *scene.Node) {
	d.enqueue(action{kind: actAddPersistent, node: n})
}

// RemovePersistent queues removal of a persistent state.
func (d *Director) RemovePersistent(n *scene.Node) {
	d.enqueue(action{kind: actRemovePersistent, node: n})
}

func (d *Director) enqueue(a action) {
	if a.kind != actPop && a.node == nil {
		panic("director: nil state")
	}
	d.actionsMu.Lock()
	defer d.actionsMu.Unlock()
	d.actions = append(d.actions, a)
}

// RunOnMain runs fn now when called on the main goroutine, and otherwise
// at the start of the next Update.
func (d *Director) RunOnMain(fn func()) {
	if roles.CurrentID() == d.mainID {
		fn()
		return
	}
	d.tasksMu.Lock()
	defer d.tasksMu.Unlock()
	d.tasks = append(d.tasks, fn)
}

// Frame returns the number of Update calls so far.
func (d *Director) Frame() uint64 {
	return d.frame.Load()
}

// Update runs one main-goroutine frame: queued main tasks, pending stack
// actions, then the top state and every persistent state.
func (d *Director) Update(dt time.Duration) {
	roles.Assert(roles.Main, "director.Update")
	d.frame.Add(1)

	d.runMainTasks()
	d.ProcessPendingActions()

	for _, n := range ticked(d.stack, d.persistent) {
		n.Update(d, dt)
	}
}

// PhysicsUpdate ticks the top and persistent states from the latest
// StackSnapshot.
func (d *Director) PhysicsUpdate(dt time.Duration) {
	d.snapMu.Lock()
	nodes := ticked(d.snapStack, d.snapPersistent)
	d.snapMu.Unlock()

	for _, n := range nodes {
		n.PhysicsUpdate(d, dt)
	}
}

// ticked returns the top of stack followed by persistent states, without
// duplicates. The result never aliases its inputs.
func ticked(stack, persistent []*scene.Node) []*scene.Node {
	out := make([]*scene.Node, 0, 1+len(persistent))
	if len(stack) > 0 {
		out = append(out, stack[len(stack)-1])
	}
	for _, n := range persistent {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func (d *Director) runMainTasks() {
	d.tasksMu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.tasksMu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}

// ProcessPendingActions applies queued stack changes in submission order
// and reports whether anything changed.
func (d *Director) ProcessPendingActions() bool {
	d.actionsMu.Lock()
	actions := d.actions
	d.actions = nil
	d.actionsMu.Unlock()

	changed := false
	for _, a := range actions {
		if d.apply(a) {
			changed = true
		}
	}
	if !changed {
		return false
	}

	for i, n := range d.stack {
		n.StateChanged(d, i == len(d.stack)-1)
	}
	d.publish()
	return true
}

func (d *Director) apply(a action) bool {
	switch a.kind {
	case actPush:
		d.stack = append(d.stack, a.node)
		d.emit(EventPush, a.node)
		if !a.node.Entered() {
			a.node.Enter(d)
			d.emit(EventEnter, a.node)
		}
		return true

	case actPop:
		if len(d.stack) == 0 {
			d.logger.Warn("pop on empty state stack ignored", "frame", d.Frame())
			return false
		}
		last := len(d.stack) - 1
		top := d.stack[last]
		if !slices.Contains(d.stack[:last], top) && !slices.Contains(d.persistent, top) {
			top.Exit(d)
			d.emit(EventExit, top)
		}
		d.stack[last] = nil
		d.stack = d.stack[:last]
		d.emit(EventPop, top)
		return true

	case actAddPersistent:
		if slices.Contains(d.persistent, a.node) {
			d.logger.Debug("state already persistent", "state", a.node.String())
			return false
		}
		d.persistent = append(d.persistent, a.node)
		d.emit(EventPersist, a.node)
		if !a.node.Entered() {
			a.node.Enter(d)
			d.emit(EventEnter, a.node)
		}
		return true

	case actRemovePersistent:
		i := slices.Index(d.persistent, a.node)
		if i < 0 {
			d.logger.Debug("state not persistent", "state", a.node.String())
			return false
		}
		d.persistent = slices.Delete(d.persistent, i, i+1)
		if !slices.Contains(d.stack, a.node) {
			a.node.Exit(d)
			d.emit(EventExit, a.node)
		}
		d.emit(EventUnpersist, a.node)
		return true
	}
	return false
}

// Clear exits every stacked state top to bottom, then every persistent
// state, and discards queued actions. Main goroutine only.
func (d *Director) Clear() {
	d.actionsMu.Lock()
	d.actions = nil
	d.actionsMu.Unlock()

	for len(d.stack) > 0 {
		d.apply(action{kind: actPop})
	}
	for len(d.persistent) > 0 {
		d.apply(action{kind: actRemovePersistent, node: d.persistent[0]})
	}
	d.publish()
}

// publish refreshes the StackSnapshot read by PhysicsUpdate.
func (d *Director) publish() {
	st := slices.Clone(d.stack)
	ps := slices.Clone(d.persistent)

	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	d.snapStack = st
	d.snapPersistent = ps
}

func (d *Director) emit(kind EventKind, n *scene.Node) {
	if d.observer == nil {
		return
	}
	d.observer(Event{Frame: d.Frame(), Kind: kind, Node: n.String()})
}

// Stack returns the stack bottom to top as of the last change.
func (d *Director) Stack() []*scene.Node {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	return slices.Clone(d.snapStack)
}

// Top returns the top state, or nil when the stack is empty.
func (d *Director) Top() *scene.Node {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	if len(d.snapStack) == 0 {
		return nil
	}
	return d.snapStack[len(d.snapStack)-1]
}

// Persistent returns the persistent states as of the last change.
func (d *Director) Persistent() []*scene.Node {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	return slices.Clone(d.snapPersistent)
}
