package scene

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/roles"
)

type opKind uint8

const (
	opAdd opKind = iota + 1
	opRemove
)

type pendingOp struct {
	kind  opKind
	child *Node
}

// Node is one element of the scene tree.
//
// Lock order: cbMu before mu, and a node's mu before the mu of the parent
// it takes a child from. No callback runs while mu is held.
type Node struct {
	id       uuid.UUID
	name     string
	behavior any

	// parent is written only by the draining parent, under that parent's mu.
	parent atomic.Pointer[Node]

	mu       sync.Mutex // guards children, pending and snapshot swaps
	children []*Node
	pending  []pendingOp

	cbMu    sync.Mutex // serializes this node's callbacks
	entered atomic.Bool
	snap    atomic.Pointer[Snapshot]
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithName sets the display name.
func WithName(name string) NodeOption {
	return func(n *Node) {
		n.name = name
	}
}

// New creates a detached node around behavior, which may be nil.
func New(behavior any, opts ...NodeOption) *Node {
	n := &Node{
		id:       uuid.Must(uuid.NewV7()),
		behavior: behavior,
	}
	if nm, ok := behavior.(Namer); ok {
		n.name = nm.Name()
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID returns the node's identity.
func (n *Node) ID() uuid.UUID { return n.id }

// Name returns the display name, which may be empty.
func (n *Node) Name() string { return n.name }

// Behavior returns the value passed to New.
func (n *Node) Behavior() any { return n.behavior }

// Entered reports whether the node is active.
func (n *Node) Entered() bool { return n.entered.Load() }

// String returns the name, or the id when unnamed.
func (n *Node) String() string {
	if n.name != "" {
		return n.name
	}
	return n.id.String()
}

// Parent returns the live parent.
func (n *Node) Parent() *Node { return n.parent.Load() }

// descendsFrom reports whether anc is a live ancestor of n.
func (n *Node) descendsFrom(anc *Node) bool {
	for p := n.parent.Load(); p != nil; p = p.parent.Load() {
		if p == anc {
			return true
		}
	}
	return false
}

// Children returns a copy of the live child list. Main goroutine only.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.children)
}

// AddChild queues child to be attached at the next drain. A child that
// belongs to another parent is moved. Main goroutine only.
func (n *Node) AddChild(child *Node) {
	n.queue(opAdd, child, "scene.AddChild")
}

// RemoveChild queues child to be detached at the next drain.
// Removing a node that is not a child is a no-op. Main goroutine only.
func (n *Node) RemoveChild(child *Node) {
	n.queue(opRemove, child, "scene.RemoveChild")
}

func (n *Node) queue(kind opKind, child *Node, op string) {
	roles.AssertNot(roles.Scheduler, op)
	if child == nil {
		panic(op + ": nil child")
	}
	if child == n {
		panic(op + ": node cannot be its own child")
	}
	if kind == opAdd && roles.ChecksEnabled() && n.descendsFrom(child) {
		panic(fmt.Sprintf("%s: %s is an ancestor of %s", op, child, n))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, pendingOp{kind: kind, child: child})
}

// HasPending reports whether changes are waiting for a drain.
func (n *Node) HasPending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending) > 0
}

// AcquireSnapshot returns the current children snapshot with a reference
// held for the caller, or nil if the node has never been entered. Safe from
// any goroutine.
func (n *Node) AcquireSnapshot() *Snapshot {
	for {
		s := n.snap.Load()
		if s == nil {
			return nil
		}
		if s.refs.TryRetain() {
			return s
		}
		// Replaced and freed between Load and TryRetain; the next Load
		// sees the replacement.
	}
}

// ensureSnapshot publishes the first snapshot from the live children.
func (n *Node) ensureSnapshot() {
	if n.snap.Load() != nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.snap.Load() == nil {
		n.snap.Store(newSnapshot(slices.Clone(n.children)))
	}
}

// republish swaps in a snapshot of the live children and releases the
// previous one. Caller holds n.mu.
func (n *Node) republish() {
	if n.snap.Load() == nil {
		// Not entered yet; Enter builds the first snapshot.
		return
	}
	old := n.snap.Swap(newSnapshot(slices.Clone(n.children)))
	old.Release()
}

// Enter activates the node, then its children in snapshot order.
//
// Entering an active node is a contract violation: it panics when role
// checks are enabled and is otherwise ignored.
func (n *Node) Enter(h Host) {
	n.cbMu.Lock()
	if n.entered.Load() {
		n.cbMu.Unlock()
		if roles.ChecksEnabled() {
			panic(fmt.Sprintf("scene: node %s entered twice", n))
		}
		logger(h).Warn("node entered twice, ignoring", "node", n.String())
		return
	}
	if e, ok := n.behavior.(Enterer); ok {
		e.OnEnter(n, h)
	}
	n.entered.Store(true)
	n.cbMu.Unlock()

	n.ensureSnapshot()
	snap := n.AcquireSnapshot()
	defer snap.Release()
	for _, c := range snap.Children() {
		if !c.Entered() {
			c.Enter(h)
		}
	}
}

// Update runs the node's update, updates every child in the current
// snapshot and then drains pending changes. Main goroutine only.
func (n *Node) Update(h Host, dt time.Duration) {
	n.cbMu.Lock()
	if u, ok := n.behavior.(Updater); ok {
		u.OnUpdate(n, h, dt)
	}
	n.cbMu.Unlock()

	if snap := n.AcquireSnapshot(); snap != nil {
		for _, c := range snap.Children() {
			c.Update(h, dt)
		}
		snap.Release()
	}

	n.Drain(h)
}

// PhysicsUpdate runs the node's physics update and recurses through the
// current snapshot. Inactive nodes are skipped. It never changes the tree.
// Scheduler goroutine only.
func (n *Node) PhysicsUpdate(h Host, dt time.Duration) {
	n.cbMu.Lock()
	if !n.entered.Load() {
		n.cbMu.Unlock()
		return
	}
	if p, ok := n.behavior.(PhysicsUpdater); ok {
		p.OnPhysicsUpdate(n, h, dt)
	}
	n.cbMu.Unlock()

	snap := n.AcquireSnapshot()
	if snap == nil {
		return
	}
	defer snap.Release()
	for _, c := range snap.Children() {
		c.PhysicsUpdate(h, dt)
	}
}

// Exit deactivates the live children, then the node. Exiting an inactive
// node is a no-op.
func (n *Node) Exit(h Host) {
	if !n.entered.Load() {
		return
	}
	for _, c := range n.Children() {
		c.Exit(h)
	}

	n.cbMu.Lock()
	defer n.cbMu.Unlock()
	if !n.entered.Load() {
		return
	}
	if e, ok := n.behavior.(Exiter); ok {
		e.OnExit(n, h)
	}
	n.entered.Store(false)
}

// StateChanged notifies the node and then its live children.
func (n *Node) StateChanged(h Host, topmost bool) {
	n.cbMu.Lock()
	if sc, ok := n.behavior.(StateChanger); ok {
		sc.OnStateChanged(n, h, topmost)
	}
	n.cbMu.Unlock()

	for _, c := range n.Children() {
		c.StateChanged(h, topmost)
	}
}

// Drain applies queued AddChild and RemoveChild calls in submission order,
// publishes a new snapshot and then exits removed children and enters
// added ones. Main goroutine only.
func (n *Node) Drain(h Host) {
	roles.AssertNot(roles.Scheduler, "scene.Drain")

	n.mu.Lock()
	if len(n.pending) == 0 {
		n.mu.Unlock()
		return
	}
	ops := n.pending
	n.pending = nil

	before := make(map[*Node]struct{}, len(n.children))
	for _, c := range n.children {
		before[c] = struct{}{}
	}

	// A child taken from another parent is removed there first, so it
	// always exits once even if it does not stay here.
	moved := make(map[*Node]struct{})
	for _, op := range ops {
		c := op.child
		switch op.kind {
		case opRemove:
			if i := slices.Index(n.children, c); i >= 0 {
				n.children = slices.Delete(n.children, i, i+1)
				c.parent.Store(nil)
			}
		case opAdd:
			if c.parent.Load() == n {
				continue
			}
			if n.descendsFrom(c) {
				logger(h).Warn("ignoring add of an ancestor", "node", n.String(), "child", c.String())
				continue
			}
			if old := c.parent.Load(); old != nil {
				old.detach(c)
				moved[c] = struct{}{}
			}
			c.parent.Store(n)
			n.children = append(n.children, c)
		}
	}

	after := make(map[*Node]struct{}, len(n.children))
	for _, c := range n.children {
		after[c] = struct{}{}
	}

	// Exits follow submission order.
	var exits, enters []*Node
	for _, op := range ops {
		c := op.child
		if slices.Contains(exits, c) {
			continue
		}
		_, was := before[c]
		_, still := after[c]
		_, wasMoved := moved[c]
		if wasMoved || (was && !still) {
			exits = append(exits, c)
		}
	}
	for _, c := range n.children {
		if _, ok := before[c]; !ok {
			enters = append(enters, c)
		}
	}

	n.republish()
	active := n.entered.Load()
	n.mu.Unlock()

	for _, c := range exits {
		c.Exit(h)
	}
	if !active {
		return
	}
	for _, c := range enters {
		if !c.Entered() {
			c.Enter(h)
		}
	}
}

// detach unlinks child from n without lifecycle callbacks and republishes
// n's snapshot. Called by the drain of the child's new parent.
func (n *Node) detach(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i := slices.Index(n.children, child); i >= 0 {
		n.children = slices.Delete(n.children, i, i+1)
		n.republish()
	}
}

func logger(h Host) *slog.Logger {
	if h != nil {
		if l := h.Logger(); l != nil {
			return l
		}
	}
	return slog.Default()
}
