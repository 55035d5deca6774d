package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/scene"
)

func TestRecorder_StateRecordsCallbacks(t *testing.T) {
	rec := NewRecorder()
	n := rec.Node("A")
	require.Equal(t, "A", n.Name())

	n.Enter(nil)
	n.Update(nil, time.Millisecond)
	n.PhysicsUpdate(nil, time.Millisecond)
	n.StateChanged(nil, false)
	n.Exit(nil)

	assert.Equal(t, []string{"enter A", "update A", "state A covered", "exit A"}, rec.Lines())
	assert.Equal(t, 1, rec.PhysicsTicks("A"))
}

func TestRecorder_Hooks(t *testing.T) {
	rec := NewRecorder()
	s := rec.State("A")
	hooked := false
	s.EnterHook = func(_ *scene.Node, _ scene.Host) { hooked = true }

	scene.New(s).Enter(nil)
	assert.True(t, hooked)
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	rec := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rec.Record("line")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Lines(), 400)
	rec.Reset()
	assert.Empty(t, rec.Lines())
}
