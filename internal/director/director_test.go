package director_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/director"
	"github.com/roach88/lockstep/internal/scene"
	"github.com/roach88/lockstep/internal/testutil"
)

const frameDt = 16 * time.Millisecond

func TestDirector_PushPushPop(t *testing.T) {
	rec := testutil.NewRecorder()
	d := director.New()
	a, b := rec.Node("A"), rec.Node("B")

	d.PushState(a)
	d.Update(frameDt)
	assert.Equal(t, []string{"enter A", "state A top", "update A"}, rec.Lines())

	rec.Reset()
	d.PushState(b)
	d.Update(frameDt)
	assert.Equal(t, []string{"enter B", "state A covered", "state B top", "update B"}, rec.Lines())
	assert.True(t, a.Entered(), "covered state stays entered")

	rec.Reset()
	d.PopState()
	d.Update(frameDt)
	assert.Equal(t, []string{"exit B", "state A top", "update A"}, rec.Lines())
	assert.Same(t, a, d.Top())
	assert.False(t, b.Entered())
}

func TestDirector_PopOnEmptyStack(t *testing.T) {
	d := director.New()

	d.PopState()
	assert.False(t, d.ProcessPendingActions())
	assert.Nil(t, d.Top())
}

func TestDirector_ActionsApplyInSubmissionOrder(t *testing.T) {
	rec := testutil.NewRecorder()
	d := director.New()
	a, b := rec.Node("A"), rec.Node("B")

	d.PushState(a)
	d.PushState(b)
	d.PopState()
	require.True(t, d.ProcessPendingActions())

	assert.Equal(t, []*scene.Node{a}, d.Stack())
	assert.Equal(t, []string{"enter A", "enter B", "exit B", "state A top"}, rec.Lines())
}

func TestDirector_PersistentTickedEveryFrame(t *testing.T) {
	rec := testutil.NewRecorder()
	d := director.New()
	hud, a, b := rec.Node("hud"), rec.Node("A"), rec.Node("B")

	d.AddPersistent(hud)
	d.PushState(a)
	d.PushState(b)
	d.Update(frameDt)
	rec.Reset()

	d.Update(frameDt)
	assert.Equal(t, []string{"update B", "update hud"}, rec.Lines())
	assert.Equal(t, []*scene.Node{hud}, d.Persistent())

	rec.Reset()
	d.RemovePersistent(hud)
	d.Update(frameDt)
	assert.Equal(t, []string{"exit hud", "state A covered", "state B top", "update B"}, rec.Lines())
	assert.Empty(t, d.Persistent())
}

func TestDirector_PersistentTopTickedOnce(t *testing.T) {
	rec := testutil.NewRecorder()
	d := director.New()
	a := rec.Node("A")

	d.PushState(a)
	d.AddPersistent(a)
	d.Update(frameDt)
	rec.Reset()

	d.Update(frameDt)
	assert.Equal(t, []string{"update A"}, rec.Lines())

	// Still persistent, so popping does not exit it.
	d.PopState()
	d.Update(frameDt)
	assert.True(t, a.Entered())
}

func TestDirector_DuplicatePersistentIgnored(t *testing.T) {
	d := director.New()
	n := scene.New(nil)

	d.AddPersistent(n)
	d.AddPersistent(n)
	d.ProcessPendingActions()

	assert.Len(t, d.Persistent(), 1)
}

func TestDirector_RunOnMain(t *testing.T) {
	d := director.New()

	ran := false
	d.RunOnMain(func() { ran = true })
	assert.True(t, ran, "runs inline on the main goroutine")

	ch := make(chan struct{})
	queued := false
	go func() {
		d.RunOnMain(func() { queued = true })
		close(ch)
	}()
	<-ch
	assert.False(t, queued, "deferred when called off the main goroutine")

	d.Update(frameDt)
	assert.True(t, queued)
}

func TestDirector_PushFromCallbackAppliesNextFrame(t *testing.T) {
	rec := testutil.NewRecorder()
	d := director.New()
	a := rec.State("A")
	b := rec.Node("B")
	pushed := false
	a.UpdateHook = func(_ *scene.Node, h scene.Host) {
		if !pushed {
			pushed = true
			h.PushState(b)
		}
	}

	d.PushState(scene.New(a))
	d.Update(frameDt)
	assert.False(t, b.Entered())

	d.Update(frameDt)
	assert.True(t, b.Entered())
	assert.Same(t, b, d.Top())
}

func TestDirector_PhysicsUsesPublishedStack(t *testing.T) {
	rec := testutil.NewRecorder()
	d := director.New()
	a, hud := rec.Node("A"), rec.Node("hud")

	d.PushState(a)
	d.PhysicsUpdate(frameDt)
	assert.Zero(t, rec.PhysicsTicks("A"), "queued push is invisible to physics")

	d.AddPersistent(hud)
	d.ProcessPendingActions()
	d.PhysicsUpdate(frameDt)
	assert.Equal(t, 1, rec.PhysicsTicks("A"))
	assert.Equal(t, 1, rec.PhysicsTicks("hud"))
}

func TestDirector_ObserverEvents(t *testing.T) {
	var events []director.Event
	d := director.New(director.WithObserver(func(e director.Event) {
		events = append(events, e)
	}))
	a := scene.New(nil, scene.WithName("A"))

	d.PushState(a)
	d.Update(frameDt)
	d.PopState()
	d.Update(frameDt)

	assert.Equal(t, []director.Event{
		{Frame: 1, Kind: director.EventPush, Node: "A"},
		{Frame: 1, Kind: director.EventEnter, Node: "A"},
		{Frame: 2, Kind: director.EventExit, Node: "A"},
		{Frame: 2, Kind: director.EventPop, Node: "A"},
	}, events)
}

func TestDirector_Clear(t *testing.T) {
	rec := testutil.NewRecorder()
	d := director.New()
	d.PushState(rec.Node("A"))
	d.PushState(rec.Node("B"))
	d.AddPersistent(rec.Node("hud"))
	d.Update(frameDt)
	rec.Reset()

	d.PushState(rec.Node("never"))
	d.Clear()

	assert.Equal(t, []string{"exit B", "exit A", "exit hud"}, rec.Lines())
	assert.Empty(t, d.Stack())
	assert.Empty(t, d.Persistent())
}

func TestDirector_NilStatePanics(t *testing.T) {
	d := director.New()

	assert.PanicsWithValue(t, "director: nil state", func() { d.PushState(nil) })
}
