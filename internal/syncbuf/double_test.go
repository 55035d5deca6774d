package syncbuf

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pair is self-consistent when B == A*2 and every Items entry equals A.
type pair struct {
	A     int
	B     int
	Items []int
}

func (p *pair) fill(n int) {
	p.A = n
	p.B = n * 2
	for i := range p.Items {
		p.Items[i] = n
	}
}

func (p *pair) consistent() bool {
	if p.B != p.A*2 {
		return false
	}
	for _, v := range p.Items {
		if v != p.A {
			return false
		}
	}
	return true
}

func newPairBuffer() *DoubleBuffer[pair] {
	return NewDoubleBuffer(func(p *pair) { p.Items = make([]int, 32) })
}

func TestDoubleBuffer_InitialValue(t *testing.T) {
	b := newPairBuffer()

	b.Read(func(p *pair) {
		assert.Equal(t, 0, p.A)
		assert.Len(t, p.Items, 32)
	})
}

func TestDoubleBuffer_PublishMakesWriteVisible(t *testing.T) {
	b := newPairBuffer()

	b.Write().fill(7)
	b.Read(func(p *pair) {
		assert.Equal(t, 0, p.A, "unpublished write must not be visible")
	})

	b.Publish()
	b.Read(func(p *pair) {
		assert.Equal(t, 7, p.A)
		assert.True(t, p.consistent())
	})
}

func TestDoubleBuffer_SlotsDoNotShareStorage(t *testing.T) {
	b := newPairBuffer()

	b.Write().fill(1)
	b.Publish()
	b.Write().fill(2)

	b.Read(func(p *pair) {
		assert.Equal(t, 1, p.Items[0], "writer slot aliased the current slot")
	})
}

func TestDoubleBuffer_AcquireHoldsValueAcrossPublish(t *testing.T) {
	b := newPairBuffer()
	b.Write().fill(1)
	b.Publish()

	h := b.Acquire()
	assert.Equal(t, 1, h.Value().A)

	// Writer works on the other slot, so it does not wait for h.
	b.Write().fill(2)
	b.Publish()
	assert.Equal(t, 1, h.Value().A, "held value changed under the reader")

	done := make(chan struct{})
	go func() {
		// This slot is still pinned by h; Write must wait.
		b.Write().fill(3)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("writer rewrote a slot that a reader still holds")
	default:
	}
	h.Release()
	<-done
}

func TestDoubleBuffer_NoTornReads(t *testing.T) {
	b := newPairBuffer()
	const publishes = 20000

	var stop atomic.Bool
	var torn atomic.Int64
	var wg sync.WaitGroup

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				b.Read(func(p *pair) {
					if !p.consistent() {
						torn.Add(1)
					}
				})
			}
		}()
	}

	for i := 1; i <= publishes; i++ {
		b.Write().fill(i)
		b.Publish()
	}
	stop.Store(true)
	wg.Wait()

	require.Zero(t, torn.Load(), "readers observed partially written values")
	b.Read(func(p *pair) {
		assert.Equal(t, publishes, p.A)
	})
}
