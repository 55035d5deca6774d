package scene

import (
	"log/slog"
	"time"
)

// Host is the runtime a behavior talks to. The director implements it.
// Callbacks may receive a nil Host in tests.
type Host interface {
	PushState(n *Node)
	PopState()
	AddPersistent(n *Node)
	RemovePersistent(n *Node)
	RunOnMain(fn func())
	Logger() *slog.Logger
}

// Enterer is called once when the node becomes active.
type Enterer interface {
	OnEnter(n *Node, h Host)
}

// Updater is called every frame on the main goroutine.
type Updater interface {
	OnUpdate(n *Node, h Host, dt time.Duration)
}

// PhysicsUpdater is called every tick on the scheduler goroutine.
// It must not mutate the tree.
type PhysicsUpdater interface {
	OnPhysicsUpdate(n *Node, h Host, dt time.Duration)
}

// Exiter is called once when the node stops being active.
type Exiter interface {
	OnExit(n *Node, h Host)
}

// StateChanger is notified when the state stack changes. topmost reports
// whether the node's state is now the top of the stack.
type StateChanger interface {
	OnStateChanged(n *Node, h Host, topmost bool)
}

// Namer supplies a default display name.
type Namer interface {
	Name() string
}
