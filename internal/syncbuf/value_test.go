package syncbuf

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transform struct {
	X, Y, Z float64
	Sum     float64
}

func TestValueBuffer_GetReturnsInitial(t *testing.T) {
	b := NewValueBuffer(transform{X: 1, Sum: 1})

	assert.Equal(t, transform{X: 1, Sum: 1}, b.Get())
}

func TestValueBuffer_PublishThenGet(t *testing.T) {
	b := NewValueBuffer(transform{})

	b.Publish(transform{X: 1, Y: 2, Z: 3, Sum: 6})
	assert.Equal(t, 6.0, b.Get().Sum)

	b.Publish(transform{X: 2, Y: 2, Z: 2, Sum: 6})
	assert.Equal(t, 2.0, b.Get().X)
}

func TestValueBuffer_GetReturnsCopy(t *testing.T) {
	b := NewValueBuffer(transform{X: 1})

	v := b.Get()
	v.X = 99
	assert.Equal(t, 1.0, b.Get().X)
}

func TestValueBuffer_NoTornReads(t *testing.T) {
	b := NewValueBuffer(transform{})

	var stop atomic.Bool
	var torn atomic.Int64
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				v := b.Get()
				if v.X+v.Y+v.Z != v.Sum {
					torn.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 20000; i++ {
		f := float64(i)
		b.Publish(transform{X: f, Y: f + 1, Z: f + 2, Sum: 3*f + 3})
	}
	stop.Store(true)
	wg.Wait()

	require.Zero(t, torn.Load())
}
