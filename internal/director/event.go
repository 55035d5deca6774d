package director

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventPush      EventKind = "push"
	EventPop       EventKind = "pop"
	EventEnter     EventKind = "enter"
	EventExit      EventKind = "exit"
	EventPersist   EventKind = "persist"
	EventUnpersist EventKind = "unpersist"
)

// Event is a state lifecycle transition reported to the observer.
type Event struct {
	Frame uint64
	Kind  EventKind
	Node  string
}
