package harness

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/lockstep/internal/director"
	"github.com/roach88/lockstep/internal/roles"
	"github.com/roach88/lockstep/internal/scene"
	"github.com/roach88/lockstep/internal/testutil"
)

// FrameDelta is the dt passed to Update and PhysicsUpdate by scenario steps.
const FrameDelta = time.Second / 60

// Result is the outcome of a scenario run.
type Result struct {
	Name string

	// Trace is the full transcript, steps and summary included.
	Trace []string

	// Events are the director events in emission order.
	Events []director.Event

	Stack      []string
	Persistent []string

	// Entered lists the active nodes in the order they were first named.
	Entered []string

	// Physics maps node name to physics callbacks received. Zero counts
	// are omitted.
	Physics map[string]int

	// Errors holds failed expectations.
	Errors []string
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// Option configures a run.
type Option func(*runner)

// WithLogger sets the director's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

type runner struct {
	logger *slog.Logger
	rec    *testutil.Recorder
	dir    *director.Director
	names  []string
	nodes  map[string]*scene.Node
	states map[string]*testutil.State
}

// Run executes s on the calling goroutine, which acts as the main
// goroutine for the duration of the run. Each run uses fresh nodes.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("harness: nil scenario")
	}
	leave := roles.Enter(roles.Main)
	defer leave()

	r := &runner{
		logger: slog.Default(),
		rec:    testutil.NewRecorder(),
		nodes:  make(map[string]*scene.Node),
		states: make(map[string]*testutil.State),
	}
	for _, opt := range opts {
		opt(r)
	}

	result := &Result{Name: s.Name, Physics: make(map[string]int)}
	r.dir = director.New(
		director.WithLogger(r.logger),
		director.WithObserver(func(e director.Event) {
			r.rec.Record("* %s %s", e.Kind, e.Node)
			result.Events = append(result.Events, e)
		}),
	)

	for _, h := range s.Hooks {
		if err := r.install(h); err != nil {
			return nil, err
		}
	}
	for i, st := range s.Steps {
		if err := r.step(st); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	result.Stack = nodeNames(r.dir.Stack())
	result.Persistent = nodeNames(r.dir.Persistent())
	for _, name := range r.names {
		if r.nodes[name].Entered() {
			result.Entered = append(result.Entered, name)
		}
		if n := r.rec.PhysicsTicks(name); n > 0 {
			result.Physics[name] = n
		}
	}

	r.rec.Record("= stack [%s]", strings.Join(result.Stack, ", "))
	r.rec.Record("= persistent [%s]", strings.Join(result.Persistent, ", "))
	result.Trace = r.rec.Lines()

	if s.Expect != nil {
		result.Errors = checkExpect(s.Expect, result)
	}
	return result, nil
}

func (r *runner) node(name string) *scene.Node {
	if n, ok := r.nodes[name]; ok {
		return n
	}
	st := r.rec.State(name)
	n := scene.New(st)
	r.names = append(r.names, name)
	r.nodes[name] = n
	r.states[name] = st
	return n
}

func (r *runner) install(h Hook) error {
	r.node(h.Node)
	st := r.states[h.Node]

	fired := false
	fire := func(n *scene.Node, host scene.Host) {
		if fired {
			return
		}
		fired = true
		switch {
		case h.Push != "":
			host.PushState(r.node(h.Push))
		case h.Pop:
			host.PopState()
		case h.AddChild != "":
			n.AddChild(r.node(h.AddChild))
		}
	}

	switch h.On {
	case HookEnter:
		st.EnterHook = chain(st.EnterHook, fire)
	case HookUpdate:
		st.UpdateHook = chain(st.UpdateHook, fire)
	case HookExit:
		st.ExitHook = chain(st.ExitHook, fire)
	default:
		return fmt.Errorf("harness: unknown hook event %q", h.On)
	}
	return nil
}

func chain(prev, next func(*scene.Node, scene.Host)) func(*scene.Node, scene.Host) {
	if prev == nil {
		return next
	}
	return func(n *scene.Node, h scene.Host) {
		prev(n, h)
		next(n, h)
	}
}

func (r *runner) step(st Step) error {
	switch {
	case st.Push != "":
		r.rec.Record("> push %s", st.Push)
		r.dir.PushState(r.node(st.Push))
	case st.Pop:
		r.rec.Record("> pop")
		r.dir.PopState()
	case st.Update > 0:
		for range st.Update {
			r.rec.Record("> update")
			r.dir.Update(FrameDelta)
		}
	case st.Physics > 0:
		r.rec.Record("> physics %d", st.Physics)
		for range st.Physics {
			r.dir.PhysicsUpdate(FrameDelta)
		}
	case st.Persist != "":
		r.rec.Record("> persist %s", st.Persist)
		r.dir.AddPersistent(r.node(st.Persist))
	case st.Unpersist != "":
		r.rec.Record("> unpersist %s", st.Unpersist)
		r.dir.RemovePersistent(r.node(st.Unpersist))
	case st.AddChild != nil:
		r.rec.Record("> add_child %s %s", st.AddChild.Parent, st.AddChild.Child)
		r.node(st.AddChild.Parent).AddChild(r.node(st.AddChild.Child))
	case st.RemoveChild != nil:
		r.rec.Record("> remove_child %s %s", st.RemoveChild.Parent, st.RemoveChild.Child)
		r.node(st.RemoveChild.Parent).RemoveChild(r.node(st.RemoveChild.Child))
	case st.Clear:
		r.rec.Record("> clear")
		r.dir.Clear()
	default:
		return fmt.Errorf("harness: empty step")
	}
	return nil
}

func nodeNames(nodes []*scene.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.String()
	}
	return out
}

func checkExpect(e *Expect, r *Result) []string {
	var errs []string
	check := func(field string, want, got []string) {
		if want == nil {
			return
		}
		if !slices.Equal(want, got) {
			errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
		}
	}
	check("stack", e.Stack, r.Stack)
	check("persistent", e.Persistent, r.Persistent)
	check("entered", e.Entered, r.Entered)

	names := make([]string, 0, len(e.Physics))
	for name := range e.Physics {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if got := r.Physics[name]; got != e.Physics[name] {
			errs = append(errs, fmt.Sprintf("physics %s: expected %d, got %d", name, e.Physics[name], got))
		}
	}
	return errs
}
